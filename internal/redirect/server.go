// Package redirect serves stable per-item URLs that redirect to the
// current media and preview locations.
package redirect

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/abelbrown/reel/internal/feed"
	"github.com/abelbrown/reel/internal/logging"
	"github.com/abelbrown/reel/internal/otel"
	"github.com/abelbrown/reel/internal/resolve"
)

// CacheControl is set on every redirect. Item URLs never change.
const CacheControl = "public, max-age=31536000, immutable"

// Server redirects /api/video/{id} and /api/preview/{id}.
type Server struct {
	store feed.Store
	log   *otel.Logger
}

// New creates a Server over store. log may be nil.
func New(store feed.Store, log *otel.Logger) *Server {
	return &Server{store: store, log: log}
}

// Handler returns the HTTP handler for the redirect endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/video/", http.HandlerFunc(s.handleVideo))
	mux.Handle("/api/preview/", http.HandlerFunc(s.handlePreview))
	return mux
}

func (s *Server) handleVideo(w http.ResponseWriter, r *http.Request) {
	s.serve(w, r, "/api/video/", "Video not found", func(it feed.Item) (string, error) {
		return resolve.MediaRef(it)
	})
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	s.serve(w, r, "/api/preview/", "Preview image not found", func(it feed.Item) (string, error) {
		ref, err := resolve.PreviewRef(it)
		if err != nil {
			return "", err
		}
		// Previews are relative to the site serving them.
		return resolve.Join(origin(r), ref)
	})
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request, prefix, notFound string, target func(feed.Item) (string, error)) {
	start := time.Now()
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, prefix)
	if id == "" || strings.Contains(id, "/") {
		http.Error(w, notFound, http.StatusNotFound)
		return
	}

	item, err := s.store.Get(r.Context(), id)
	if err != nil {
		logging.Error("Redirect lookup failed", "id", id, "error", err)
		s.log.Emit(otel.Event{Kind: otel.KindStoreError, Level: otel.LevelError, Comp: "redirect", ItemID: id, Err: err.Error()})
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if item == nil {
		s.record(id, prefix, http.StatusNotFound, start)
		http.Error(w, notFound, http.StatusNotFound)
		return
	}

	loc, err := target(*item)
	if err != nil {
		status := http.StatusNotFound
		if !errors.Is(err, resolve.ErrNoMedia) && !errors.Is(err, resolve.ErrNoPreview) {
			status = http.StatusInternalServerError
		}
		s.record(id, prefix, status, start)
		http.Error(w, notFound, status)
		return
	}

	w.Header().Set("Cache-Control", CacheControl)
	http.Redirect(w, r, loc, http.StatusFound)
	s.record(id, prefix, http.StatusFound, start)
}

func (s *Server) record(id, prefix string, status int, start time.Time) {
	s.log.Emit(otel.Event{
		Kind:   otel.KindRedirectServe,
		Level:  otel.LevelDebug,
		Comp:   "redirect",
		ItemID: id,
		Source: strings.Trim(prefix, "/"),
		Count:  status,
		Dur:    time.Since(start),
	})
}

// origin returns scheme://host of the request, honoring X-Forwarded-Proto.
func origin(r *http.Request) *url.URL {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if p := r.Header.Get("X-Forwarded-Proto"); p == "http" || p == "https" {
		scheme = p
	}
	return &url.URL{Scheme: scheme, Host: r.Host, Path: "/"}
}

// ListenAndServe runs the handler on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	logging.Info("Redirect service listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errc
		return nil
	}
}
