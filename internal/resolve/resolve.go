// Package resolve turns feed items into playable media URIs.
//
// Resolvers are tried in a Chain. The store resolver handles items whose
// refs are already URLs or paths under a base URL; the redirect resolver
// asks a reel redirect service; the OpenGraph resolver scrapes pages
// that embed a video.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/abelbrown/reel/internal/feed"
	"github.com/abelbrown/reel/internal/otel"
)

var (
	// ErrNoMedia means no playable media could be found for an item.
	ErrNoMedia = errors.New("resolve: no media")
	// ErrNoPreview means the item has no still image.
	ErrNoPreview = errors.New("resolve: no preview")
)

// Media is the resolved form of an item. PreviewURI may be empty.
type Media struct {
	MediaURI   string
	PreviewURI string
}

// Resolver resolves one item. Implementations must be safe for
// concurrent use.
type Resolver interface {
	Resolve(ctx context.Context, item feed.Item) (Media, error)
}

// MediaRef returns the item's media ref or ErrNoMedia.
func MediaRef(item feed.Item) (string, error) {
	ref := strings.TrimSpace(item.MediaRef)
	if ref == "" {
		return "", fmt.Errorf("item %s: %w", item.ID, ErrNoMedia)
	}
	return ref, nil
}

// PreviewRef returns the preview ref, falling back to the cover, or
// ErrNoPreview.
func PreviewRef(item feed.Item) (string, error) {
	for _, ref := range []string{item.PreviewImageRef, item.CoverImageRef} {
		if ref = strings.TrimSpace(ref); ref != "" {
			return ref, nil
		}
	}
	return "", fmt.Errorf("item %s: %w", item.ID, ErrNoPreview)
}

var mediaExts = map[string]bool{
	".mp4": true, ".webm": true, ".mov": true, ".m4v": true,
	".m3u8": true, ".mpd": true, ".ogv": true, ".mkv": true,
}

// IsDirectMedia reports whether ref names a media file rather than a page
// that embeds one. Only the path extension is checked.
func IsDirectMedia(ref string) bool {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return false
	}
	return mediaExts[strings.ToLower(path.Ext(u.Path))]
}

// Join resolves ref against base. Absolute refs are returned unchanged.
func Join(base *url.URL, ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parse ref %q: %w", ref, err)
	}
	if u.IsAbs() || base == nil {
		return u.String(), nil
	}
	return base.ResolveReference(u).String(), nil
}

// StoreResolver resolves refs stored on the item, joining relative
// paths against a base URL. Refs that are not direct media are declined
// with ErrNoMedia so a later resolver can look at the page.
type StoreResolver struct {
	base *url.URL
}

// NewStoreResolver parses base. An empty base leaves relative refs as is.
func NewStoreResolver(base string) (*StoreResolver, error) {
	if base == "" {
		return &StoreResolver{}, nil
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	return &StoreResolver{base: u}, nil
}

func (s *StoreResolver) Resolve(ctx context.Context, item feed.Item) (Media, error) {
	if err := ctx.Err(); err != nil {
		return Media{}, err
	}
	ref, err := MediaRef(item)
	if err != nil {
		return Media{}, err
	}
	if !IsDirectMedia(ref) {
		return Media{}, fmt.Errorf("item %s: %q is not a media file: %w", item.ID, ref, ErrNoMedia)
	}
	var m Media
	if m.MediaURI, err = Join(s.base, ref); err != nil {
		return Media{}, err
	}
	if still, err := PreviewRef(item); err == nil {
		// A bad preview never blocks playback.
		m.PreviewURI, _ = Join(s.base, still)
	}
	return m, nil
}

// Chain tries each resolver in order and returns the first success.
type Chain []Resolver

func (c Chain) Resolve(ctx context.Context, item feed.Item) (Media, error) {
	var errs []error
	for _, r := range c {
		m, err := r.Resolve(ctx, item)
		if err == nil {
			return m, nil
		}
		if ctx.Err() != nil {
			return Media{}, ctx.Err()
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return Media{}, fmt.Errorf("item %s: %w", item.ID, ErrNoMedia)
	}
	return Media{}, errors.Join(errs...)
}

// Options configures NewChain.
type Options struct {
	BaseURL           string
	RedirectBase      string // empty skips the redirect service
	RequestsPerSecond float64
	Timeout           time.Duration
	UserAgent         string
	// Pages enables OpenGraph scraping for refs that are not media files.
	Pages bool
}

// NewChain builds the resolvers in lookup order: the redirect service
// when configured, then refs stored on the item, then web pages.
func NewChain(opts Options) (Chain, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	var chain Chain
	if opts.RedirectBase != "" {
		rr, err := NewRedirectResolver(opts.RedirectBase, opts.RequestsPerSecond, opts.Timeout, opts.UserAgent)
		if err != nil {
			return nil, err
		}
		chain = append(chain, rr)
	}
	st, err := NewStoreResolver(opts.BaseURL)
	if err != nil {
		return nil, err
	}
	chain = append(chain, st)
	if opts.Pages {
		chain = append(chain, NewOpenGraphResolver(opts.Timeout, opts.UserAgent))
	}
	return chain, nil
}

// Logged wraps a resolver and records resolve.ok and resolve.error events.
type Logged struct {
	Resolver Resolver
	Log      *otel.Logger
	Source   string
}

func (l Logged) Resolve(ctx context.Context, item feed.Item) (Media, error) {
	start := time.Now()
	m, err := l.Resolver.Resolve(ctx, item)
	e := otel.Event{
		Kind:   otel.KindResolveOK,
		Level:  otel.LevelDebug,
		Comp:   "resolve",
		ItemID: item.ID,
		Source: l.Source,
		Dur:    time.Since(start),
	}
	if err != nil {
		e.Kind, e.Level, e.Err = otel.KindResolveError, otel.LevelWarn, err.Error()
	}
	l.Log.Emit(e)
	return m, err
}
