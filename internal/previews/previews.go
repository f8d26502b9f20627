// Package previews grabs one still frame from each item's video and records
// it as the item's preview image.
package previews

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/reel/internal/feed"
	"github.com/abelbrown/reel/internal/logging"
	"github.com/abelbrown/reel/internal/otel"
	"github.com/abelbrown/reel/internal/resolve"
)

// DefaultPrefix is where the redirect service expects previews to be served.
const DefaultPrefix = "/previews/"

// Extractor writes a single frame of src to dst.
type Extractor interface {
	Extract(ctx context.Context, src, dst string) error
}

// FFmpeg extracts frames with the ffmpeg binary.
type FFmpeg struct {
	Bin string        // defaults to "ffmpeg" on PATH
	At  time.Duration // frame offset
}

func (f FFmpeg) Extract(ctx context.Context, src, dst string) error {
	bin := f.Bin
	if bin == "" {
		bin = "ffmpeg"
	}
	cmd := exec.CommandContext(ctx, bin,
		"-y", "-loglevel", "error",
		"-ss", fmt.Sprintf("%.3f", f.At.Seconds()),
		"-i", src,
		"-frames:v", "1", "-q:v", "2",
		dst)
	if out, err := cmd.CombinedOutput(); err != nil {
		msg := strings.TrimSpace(string(out))
		if msg == "" {
			return fmt.Errorf("ffmpeg: %w", err)
		}
		return fmt.Errorf("ffmpeg: %w: %s", err, msg)
	}
	return nil
}

// Store is the subset of store.Backend the generator needs.
type Store interface {
	List(ctx context.Context) ([]feed.Item, error)
	SetPreview(ctx context.Context, id, ref string) error
}

// Generator fills in missing previews.
type Generator struct {
	Store     Store
	Resolver  resolve.Resolver
	Extractor Extractor
	Dir       string // output directory
	Prefix    string // ref recorded for each file, DefaultPrefix when empty
	Force     bool   // regenerate items that already have a preview
	Parallel  int
	Log       *otel.Logger
}

// Failure is one item that could not get a preview.
type Failure struct {
	ItemID string
	Err    error
}

// Report summarizes a run.
type Report struct {
	Done     []string
	Skipped  int
	Failures []Failure
}

// FileName is the preview file name for an item id.
func FileName(id string) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, id)
	return "preview-" + clean + ".jpg"
}

// Run extracts a frame for every item that needs one. Per-item failures
// are reported, not returned; the error is for listing or setup problems.
func (g *Generator) Run(ctx context.Context) (Report, error) {
	var rep Report
	if err := os.MkdirAll(g.Dir, 0755); err != nil {
		return rep, fmt.Errorf("create preview dir: %w", err)
	}
	items, err := g.Store.List(ctx)
	if err != nil {
		return rep, fmt.Errorf("list items: %w", err)
	}
	prefix := g.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	limit := g.Parallel
	if limit <= 0 {
		limit = 2
	}

	var mu sync.Mutex
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(limit)
	for _, it := range items {
		if it.PreviewImageRef != "" && !g.Force {
			rep.Skipped++
			continue
		}
		it := it
		eg.Go(func() error {
			err := g.one(gctx, it, prefix)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				rep.Failures = append(rep.Failures, Failure{ItemID: it.ID, Err: err})
			} else {
				rep.Done = append(rep.Done, it.ID)
			}
			return nil
		})
	}
	_ = eg.Wait()
	return rep, ctx.Err()
}

func (g *Generator) one(ctx context.Context, it feed.Item, prefix string) error {
	start := time.Now()
	m, err := g.Resolver.Resolve(ctx, it)
	if err == nil {
		name := FileName(it.ID)
		if err = g.Extractor.Extract(ctx, m.MediaURI, filepath.Join(g.Dir, name)); err == nil {
			err = g.Store.SetPreview(ctx, it.ID, strings.TrimSuffix(prefix, "/")+"/"+name)
		}
	}

	e := otel.Event{Kind: otel.KindPreviewExtract, Level: otel.LevelInfo, Comp: "previews", ItemID: it.ID, Dur: time.Since(start)}
	if err != nil {
		e.Level, e.Err = otel.LevelWarn, err.Error()
		logging.Warn("Preview failed", "item", it.ID, "error", err)
	}
	g.Log.Emit(e)
	return err
}
