// Package coord loads the feed and keeps it fresh in the background.
package coord

import (
	"context"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/reel/internal/feed"
	"github.com/abelbrown/reel/internal/fetch"
	"github.com/abelbrown/reel/internal/logging"
	"github.com/abelbrown/reel/internal/otel"
	"github.com/abelbrown/reel/internal/store"
)

// DefaultInterval is the time between import cycles.
const DefaultInterval = 15 * time.Minute

// importTimeout bounds each source fetch.
const importTimeout = 30 * time.Second

// maxConcurrentImports limits parallel source fetches.
const maxConcurrentImports = 4

// FeedLoaded carries a fresh item list from the store.
type FeedLoaded struct {
	Items []feed.Item
	Err   error
}

// ImportComplete reports one source import.
type ImportComplete struct {
	Source   string
	NewItems int
	Skipped  int
	Err      error
}

// Sender delivers messages to the UI. *tea.Program implements it.
type Sender interface {
	Send(msg tea.Msg)
}

// fetcher interface for dependency injection (testing).
type fetcher interface {
	Fetch(ctx context.Context, url string) (*fetch.Result, error)
}

// Coordinator loads the feed, then imports sources periodically.
// Context cancellation is the only stop mechanism.
type Coordinator struct {
	store    store.Backend
	fetcher  fetcher
	sources  []string // set at construction, never modified
	interval time.Duration
	log      *otel.Logger
	wg       sync.WaitGroup
}

// NewCoordinator creates a Coordinator with the real fetcher.
func NewCoordinator(s store.Backend, f *fetch.Fetcher, sources []string, log *otel.Logger) *Coordinator {
	return NewCoordinatorWithFetcher(s, f, sources, log)
}

// NewCoordinatorWithFetcher allows injecting a custom fetcher (for testing).
func NewCoordinatorWithFetcher(s store.Backend, f fetcher, sources []string, log *otel.Logger) *Coordinator {
	return &Coordinator{
		store:    s,
		fetcher:  f,
		sources:  append([]string(nil), sources...),
		interval: DefaultInterval,
		log:      log,
	}
}

// SetInterval changes the import period. Call before Start.
func (c *Coordinator) SetInterval(d time.Duration) {
	if d > 0 {
		c.interval = d
	}
}

// Start sends the stored feed immediately, then imports every source and
// repeats on the interval. program may be nil.
func (c *Coordinator) Start(ctx context.Context, program Sender) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		c.sendFeed(ctx, program)
		if len(c.sources) == 0 {
			return
		}
		c.ImportAll(ctx, program)

		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.ImportAll(ctx, program)
			}
		}
	}()
}

// Wait blocks until the background goroutine exits.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// ImportAll imports every source in parallel and returns the number of new
// items. When anything new arrived the feed is re-sent.
func (c *Coordinator) ImportAll(ctx context.Context, program Sender) int {
	var g errgroup.Group
	g.SetLimit(maxConcurrentImports)

	var mu sync.Mutex
	total := 0
	for _, src := range c.sources {
		src := src
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			n := c.importSource(ctx, src, program)
			mu.Lock()
			total += n
			mu.Unlock()
			return nil // errors are reported per source
		})
	}
	_ = g.Wait()

	if total > 0 && ctx.Err() == nil {
		c.sendFeed(ctx, program)
	}
	return total
}

func (c *Coordinator) importSource(ctx context.Context, src string, program Sender) int {
	fetchCtx, cancel := context.WithTimeout(ctx, importTimeout)
	defer cancel()

	start := time.Now()
	msg := ImportComplete{Source: src}
	res, err := c.fetcher.Fetch(fetchCtx, src)
	if err == nil {
		msg.Skipped = res.Skipped
		if len(res.Items) > 0 {
			msg.NewItems, err = c.store.SaveItems(ctx, res.Items, src)
		}
	}
	msg.Err = err

	e := otel.Event{
		Kind:   otel.KindImportComplete,
		Level:  otel.LevelInfo,
		Comp:   "coord",
		Source: src,
		Count:  msg.NewItems,
		Dur:    time.Since(start),
	}
	if err != nil {
		e.Level, e.Err = otel.LevelWarn, err.Error()
		logging.Warn("Import failed", "source", src, "error", err)
	} else {
		logging.Info("Import complete", "source", src, "new", msg.NewItems, "skipped", msg.Skipped)
	}
	c.log.Emit(e)

	if program != nil {
		program.Send(msg)
	}
	return msg.NewItems
}

func (c *Coordinator) sendFeed(ctx context.Context, program Sender) {
	items, err := c.store.List(ctx)
	if err != nil {
		c.log.Emit(otel.Event{Kind: otel.KindStoreError, Level: otel.LevelError, Comp: "coord", Err: err.Error()})
		logging.Error("Feed load failed", "error", err)
	} else {
		c.log.Emit(otel.Event{Kind: otel.KindFeedLoaded, Level: otel.LevelInfo, Comp: "coord", Count: len(items)})
	}
	if program != nil {
		program.Send(FeedLoaded{Items: items, Err: err})
	}
}
