package resolve

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/abelbrown/reel/internal/feed"
)

// maxPage caps how much of an HTML page is parsed.
const maxPage = 2 * 1024 * 1024

// OpenGraphResolver handles items whose media ref is a web page. It reads
// og:video and og:image from the page head. Refs that already serve
// video are returned as is.
type OpenGraphResolver struct {
	client *http.Client
	ua     string
}

// NewOpenGraphResolver creates a resolver with the given request timeout.
func NewOpenGraphResolver(timeout time.Duration, userAgent string) *OpenGraphResolver {
	return &OpenGraphResolver{client: &http.Client{Timeout: timeout}, ua: userAgent}
}

func (o *OpenGraphResolver) Resolve(ctx context.Context, item feed.Item) (Media, error) {
	ref, err := MediaRef(item)
	if err != nil {
		return Media{}, err
	}
	page, err := url.Parse(ref)
	if err != nil || !page.IsAbs() {
		return Media{}, fmt.Errorf("item %s: page %q: %w", item.ID, ref, ErrNoMedia)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return Media{}, fmt.Errorf("create request: %w", err)
	}
	if o.ua != "" {
		req.Header.Set("User-Agent", o.ua)
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return Media{}, fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Media{}, fmt.Errorf("fetch page: HTTP %d", resp.StatusCode)
	}

	ctype := resp.Header.Get("Content-Type")
	if strings.HasPrefix(ctype, "video/") {
		m := Media{MediaURI: ref}
		if still, err := PreviewRef(item); err == nil {
			m.PreviewURI, _ = Join(page, still)
		}
		return m, nil
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxPage))
	if err != nil {
		return Media{}, fmt.Errorf("parse page: %w", err)
	}

	video := firstMeta(doc, "og:video:secure_url", "og:video:url", "og:video")
	if video == "" {
		return Media{}, fmt.Errorf("item %s: no og:video: %w", item.ID, ErrNoMedia)
	}
	var m Media
	if m.MediaURI, err = Join(page, video); err != nil {
		return Media{}, err
	}
	if img := firstMeta(doc, "og:image:secure_url", "og:image"); img != "" {
		m.PreviewURI, _ = Join(page, img)
	}
	return m, nil
}

// firstMeta returns the content of the first OpenGraph property present.
func firstMeta(doc *goquery.Document, props ...string) string {
	for _, p := range props {
		sel := doc.Find(fmt.Sprintf(`meta[property=%q]`, p))
		if v, ok := sel.Attr("content"); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
