// Package fetch imports feed items from media RSS and Atom documents.
//
// Each entry needs a playable video: an enclosure or media:content with a
// video type or extension. Entries without one are skipped.
package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/abelbrown/reel/internal/feed"
	"github.com/abelbrown/reel/internal/resolve"
	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
)

// Result is one parsed document.
type Result struct {
	Title   string
	Items   []feed.Item
	Skipped int // entries without a playable video
}

// Fetcher retrieves and parses feeds over HTTP.
type Fetcher struct {
	client    *http.Client
	userAgent string
}

// NewFetcher creates a Fetcher with the given HTTP client timeout.
func NewFetcher(timeout time.Duration, userAgent string) *Fetcher {
	if userAgent == "" {
		userAgent = "reel/0.1"
	}
	return &Fetcher{client: &http.Client{Timeout: timeout}, userAgent: userAgent}
}

// Fetch downloads and parses the feed at url. It does not store anything.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch feed: HTTP %d", resp.StatusCode)
	}
	return Parse(resp.Body)
}

// Parse converts a feed document into items, in document order.
// Duplicate entries collapse onto the first occurrence.
func Parse(r io.Reader) (*Result, error) {
	doc, err := gofeed.NewParser().Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	res := &Result{Title: doc.Title}
	avatar := ""
	if doc.Image != nil {
		avatar = doc.Image.URL
	}
	seen := make(map[string]bool)
	for _, entry := range doc.Items {
		it, ok := convertEntry(entry, doc.Title, avatar)
		if !ok {
			res.Skipped++
			continue
		}
		if seen[it.ID] {
			continue
		}
		seen[it.ID] = true
		res.Items = append(res.Items, it)
	}
	return res, nil
}

func convertEntry(e *gofeed.Item, feedTitle, feedAvatar string) (feed.Item, bool) {
	video, preview, cover := "", "", ""

	for _, enc := range e.Enclosures {
		switch {
		case video == "" && isVideo(enc.Type, enc.URL):
			video = enc.URL
		case cover == "" && strings.HasPrefix(enc.Type, "image/"):
			cover = enc.URL
		}
	}
	for _, mc := range mediaExt(e, "content") {
		if video == "" && (mc.Attrs["medium"] == "video" || isVideo(mc.Attrs["type"], mc.Attrs["url"])) {
			video = mc.Attrs["url"]
		}
	}
	for _, th := range mediaExt(e, "thumbnail") {
		if preview == "" && th.Attrs["url"] != "" {
			preview = th.Attrs["url"]
		}
	}
	if cover == "" && e.Image != nil {
		cover = e.Image.URL
	}
	if video == "" {
		return feed.Item{}, false
	}

	author := feedTitle
	switch {
	case e.Author != nil && e.Author.Name != "":
		author = e.Author.Name
	case len(e.Authors) > 0 && e.Authors[0].Name != "":
		author = e.Authors[0].Name
	}

	caption := strings.TrimSpace(e.Title)
	if caption == "" {
		caption = truncate(strings.TrimSpace(e.Description), 200)
	}

	return feed.Item{
		ID:              generateID(e, video),
		MediaRef:        video,
		PreviewImageRef: preview,
		CoverImageRef:   cover,
		Caption:         caption,
		AuthorName:      author,
		AuthorAvatarRef: feedAvatar,
	}, true
}

// mediaExt returns the media RSS extension elements named name.
func mediaExt(e *gofeed.Item, name string) []ext.Extension {
	if e.Extensions == nil {
		return nil
	}
	media, ok := e.Extensions["media"]
	if !ok {
		return nil
	}
	out := append([]ext.Extension(nil), media[name]...)
	// media:group nests content and thumbnails one level down.
	for _, g := range media["group"] {
		out = append(out, g.Children[name]...)
	}
	return out
}

func isVideo(mimeType, url string) bool {
	if strings.HasPrefix(mimeType, "video/") || mimeType == "application/x-mpegURL" {
		return true
	}
	return resolve.IsDirectMedia(url)
}

// generateID hashes the GUID, falling back to the video URL.
func generateID(e *gofeed.Item, video string) string {
	key := e.GUID
	if key == "" {
		key = video
	}
	return hashString(key)
}

// hashString creates a short hash of a string for use as an ID.
func hashString(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:8])
}

// truncate shortens s to maxLen runes, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
