package resolve

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/abelbrown/reel/internal/feed"
)

// RedirectResolver asks a redirect service for /api/video/{id} and
// /api/preview/{id} and reads the Location header without following it.
// Responses are immutable, so results are memoized per item.
type RedirectResolver struct {
	base    *url.URL
	client  *http.Client
	limiter *rate.Limiter
	ua      string

	mu   sync.Mutex
	memo map[string]Media
}

// NewRedirectResolver creates a resolver for the service at base.
// rps <= 0 disables rate limiting.
func NewRedirectResolver(base string, rps float64, timeout time.Duration, userAgent string) (*RedirectResolver, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse redirect base: %w", err)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("redirect base %q is not absolute", base)
	}
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &RedirectResolver{
		base: u,
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		limiter: rate.NewLimiter(limit, 1),
		ua:      userAgent,
		memo:    make(map[string]Media),
	}, nil
}

func (r *RedirectResolver) Resolve(ctx context.Context, item feed.Item) (Media, error) {
	r.mu.Lock()
	m, ok := r.memo[item.ID]
	r.mu.Unlock()
	if ok {
		return m, nil
	}

	media, err := r.lookup(ctx, "video", item.ID)
	if err != nil {
		return Media{}, err
	}
	if media == "" {
		return Media{}, fmt.Errorf("item %s: %w", item.ID, ErrNoMedia)
	}
	if !IsDirectMedia(media) {
		// The service points at a page; leave it to a scraping resolver.
		return Media{}, fmt.Errorf("item %s: redirect target %q is not a media file: %w", item.ID, media, ErrNoMedia)
	}
	preview, err := r.lookup(ctx, "preview", item.ID)
	if err != nil {
		return Media{}, err
	}

	m = Media{MediaURI: media, PreviewURI: preview}
	r.mu.Lock()
	r.memo[item.ID] = m
	r.mu.Unlock()
	return m, nil
}

// Cached returns the number of memoized items.
func (r *RedirectResolver) Cached() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.memo)
}

// lookup returns the redirect target, or "" when the service has none.
func (r *RedirectResolver) lookup(ctx context.Context, kind, id string) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", err
	}
	endpoint := r.base.JoinPath("api", kind, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	if r.ua != "" {
		req.Header.Set("User-Agent", r.ua)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("resolve %s %s: %w", kind, id, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusFound, http.StatusMovedPermanently, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		loc, err := resp.Location()
		if err != nil {
			return "", fmt.Errorf("resolve %s %s: %w", kind, id, err)
		}
		return loc.String(), nil
	case http.StatusNotFound:
		return "", nil
	default:
		return "", fmt.Errorf("resolve %s %s: HTTP %d", kind, id, resp.StatusCode)
	}
}
