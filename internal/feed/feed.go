// Package feed defines the immutable feed item and the read-only store the
// runtime consumes.
package feed

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Item is one entry in the feed. Optional refs are empty strings.
// Items are never mutated after they are read from a Store.
type Item struct {
	ID              string `json:"id"`
	MediaRef        string `json:"media_ref"`
	PreviewImageRef string `json:"preview_image_ref,omitempty"`
	CoverImageRef   string `json:"cover_image_ref,omitempty"`
	Caption         string `json:"caption,omitempty"`
	AuthorName      string `json:"author_name"`
	AuthorAvatarRef string `json:"author_avatar_ref,omitempty"`
}

// HasStill reports whether the item carries any static image to show
// before playback is available.
func (it Item) HasStill() bool {
	return it.PreviewImageRef != "" || it.CoverImageRef != ""
}

var (
	// ErrDuplicateID is returned when a feed contains the same id twice.
	ErrDuplicateID = errors.New("feed: duplicate item id")
	// ErrNoMediaRef is returned by RequireMedia.
	ErrNoMediaRef = errors.New("feed: item has no media ref")
)

// Store is the ordered, read-only item source. Get returns nil, nil when
// the id is unknown.
type Store interface {
	List(ctx context.Context) ([]Item, error)
	Get(ctx context.Context, id string) (*Item, error)
}

// Validate checks that ids are present and unique. Items without a media
// ref are allowed; they fail individually when materialized.
func Validate(items []Item) error {
	seen := make(map[string]struct{}, len(items))
	for i, it := range items {
		if it.ID == "" {
			return fmt.Errorf("feed: item %d has empty id", i)
		}
		if _, ok := seen[it.ID]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicateID, it.ID)
		}
		seen[it.ID] = struct{}{}
	}
	return nil
}

// RequireMedia rejects items with a blank media ref. Stores apply it on
// save so bad imports never reach a feed.
func RequireMedia(items []Item) error {
	for _, it := range items {
		if strings.TrimSpace(it.MediaRef) == "" {
			return fmt.Errorf("%w: %q", ErrNoMediaRef, it.ID)
		}
	}
	return nil
}

// IndexOf returns the position of id in items, or -1.
func IndexOf(items []Item, id string) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}
