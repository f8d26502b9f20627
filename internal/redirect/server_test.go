package redirect

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/abelbrown/reel/internal/feed"
)

func testStore(t *testing.T) feed.Store {
	t.Helper()
	s, err := feed.NewMemoryStore([]feed.Item{
		{ID: "10", MediaRef: "https://cdn.example.com/10.mp4", PreviewImageRef: "/previews/10.jpg"},
		{ID: "11", MediaRef: "https://cdn.example.com/11.mp4"},
		{ID: "12", MediaRef: "https://cdn.example.com/12.mp4", PreviewImageRef: "https://img.example.com/12.jpg"},
	})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestRedirects(t *testing.T) {
	h := New(testStore(t), nil).Handler()

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		wantLoc    string
	}{
		{"video", http.MethodGet, "/api/video/10", http.StatusFound, "https://cdn.example.com/10.mp4"},
		{"preview relative", http.MethodGet, "/api/preview/10", http.StatusFound, "http://reel.test/previews/10.jpg"},
		{"preview absolute", http.MethodGet, "/api/preview/12", http.StatusFound, "https://img.example.com/12.jpg"},
		{"head", http.MethodHead, "/api/video/11", http.StatusFound, "https://cdn.example.com/11.mp4"},
		{"unknown video", http.MethodGet, "/api/video/99", http.StatusNotFound, ""},
		{"missing preview", http.MethodGet, "/api/preview/11", http.StatusNotFound, ""},
		{"empty id", http.MethodGet, "/api/video/", http.StatusNotFound, ""},
		{"nested path", http.MethodGet, "/api/video/10/extra", http.StatusNotFound, ""},
		{"post", http.MethodPost, "/api/video/10", http.StatusMethodNotAllowed, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "http://reel.test"+tt.path, nil)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := rec.Header().Get("Location"); got != tt.wantLoc {
				t.Errorf("Location = %q, want %q", got, tt.wantLoc)
			}
			cc := rec.Header().Get("Cache-Control")
			if tt.wantStatus == http.StatusFound && cc != CacheControl {
				t.Errorf("Cache-Control = %q", cc)
			}
			if tt.wantStatus != http.StatusFound && cc == CacheControl {
				t.Error("error response marked immutable")
			}
		})
	}
}

func TestForwardedProto(t *testing.T) {
	h := New(testStore(t), nil).Handler()
	req := httptest.NewRequest(http.MethodGet, "http://reel.test/api/preview/10", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Location"); got != "https://reel.test/previews/10.jpg" {
		t.Errorf("Location = %q", got)
	}
}

type brokenStore struct{}

func (brokenStore) List(context.Context) ([]feed.Item, error) { return nil, errors.New("down") }
func (brokenStore) Get(context.Context, string) (*feed.Item, error) {
	return nil, errors.New("down")
}

func TestStoreError(t *testing.T) {
	h := New(brokenStore{}, nil).Handler()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/video/10", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestListenAndServeStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := New(testStore(t), nil)
	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx, "127.0.0.1:0") }()
	cancel()
	if err := <-done; err != nil && !errors.Is(err, http.ErrServerClosed) {
		t.Errorf("ListenAndServe = %v", err)
	}
}
