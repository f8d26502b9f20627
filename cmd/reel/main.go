// Command reel is the terminal short-video feed.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/reel/internal/config"
	"github.com/abelbrown/reel/internal/coord"
	"github.com/abelbrown/reel/internal/feed"
	"github.com/abelbrown/reel/internal/fetch"
	"github.com/abelbrown/reel/internal/logging"
	"github.com/abelbrown/reel/internal/loop"
	"github.com/abelbrown/reel/internal/otel"
	"github.com/abelbrown/reel/internal/player"
	"github.com/abelbrown/reel/internal/reel"
	"github.com/abelbrown/reel/internal/resolve"
	"github.com/abelbrown/reel/internal/store"
	"github.com/abelbrown/reel/internal/ui"
	"github.com/abelbrown/reel/internal/work"
)

func main() {
	driver := flag.String("store", "", "Item store: memory, sqlite or postgres")
	dsn := flag.String("dsn", "", "Store DSN (sqlite path or postgres URL)")
	base := flag.String("base", "", "Origin for relative preview refs")
	debug := flag.Bool("debug", false, "Open with the debug overlay")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *driver != "" {
		cfg.Store.Driver = *driver
	}
	if *dsn != "" {
		cfg.Store.DSN = *dsn
	}
	if *base != "" {
		cfg.Media.BaseURL = *base
	}
	if *debug {
		cfg.UI.ShowDebug = true
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("%v", err)
	}

	dir := config.Dir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Fatalf("failed to create data directory: %v", err)
	}
	if err := logging.Init(dir); err != nil {
		log.Printf("Warning: file logging disabled: %v", err)
	}
	defer logging.Close()

	// Structured event log, mirrored into a ring for the debug overlay
	var events *otel.Logger
	if f, err := os.OpenFile(config.EventLogPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err != nil {
		logging.Warn("event log disabled", "err", err)
		events = otel.NewNullLogger()
	} else {
		defer f.Close()
		events = otel.NewLogger(f)
	}
	ring := otel.NewRingBuffer(1024)
	events.SetRingBuffer(ring)
	events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindStartup, Comp: "main",
		Extra: map[string]any{"store": cfg.Store.Driver}})

	backendDSN := cfg.Store.DSN
	if cfg.Store.Driver == "sqlite" && backendDSN == "" {
		backendDSN = config.DBPath()
	}
	backend, err := store.OpenBackend(ctx, cfg.Store.Driver, backendDSN)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer backend.Close()

	if n, err := store.SeedIfEmpty(ctx, backend, feed.DefaultCatalog(), "catalog"); err != nil {
		log.Fatalf("failed to seed store: %v", err)
	} else if n > 0 {
		logging.Info("seeded store", "items", n)
	}
	items, err := backend.List(ctx)
	if err != nil {
		log.Fatalf("failed to list items: %v", err)
	}

	// Resolution runs on the pool; results come back through the scheduler
	pool := work.NewPool(cfg.Media.Workers)
	pool.Start(ctx)

	resolver, err := buildResolver(cfg, events)
	if err != nil {
		log.Fatalf("failed to configure media resolution: %v", err)
	}

	sched := loop.NewTeaScheduler()
	factory := player.NewFactory(resolver, pool, sched, player.Config{
		Clip:       time.Duration(cfg.Playback.ClipSeconds) * time.Second,
		BufferStep: time.Duration(cfg.Playback.BufferMs) * time.Millisecond,
		Autoplay:   cfg.Playback.Autoplay,
	}, events)

	rt, err := reel.New(items, factory, sched, cfg.Runtime(), events)
	if err != nil {
		log.Fatalf("failed to start feed: %v", err)
	}

	app := ui.NewApp(ui.Options{
		Runtime:   rt,
		Unlock:    factory.Unlock,
		Ring:      ring,
		Pool:      pool,
		ShowDebug: cfg.UI.ShowDebug,
	})

	program := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion())
	sched.Attach(program)

	coordinator := coord.NewCoordinator(backend, fetch.NewFetcher(30*time.Second, cfg.Media.UserAgent), cfg.Sources, events)
	if cfg.UI.ImportMin > 0 {
		coordinator.SetInterval(time.Duration(cfg.UI.ImportMin) * time.Minute)
	}
	coordinator.Start(ctx, program)

	if _, err := program.Run(); err != nil {
		logging.Error("program exited", "err", err)
		log.Printf("Error: %v", err)
	}

	cancel()
	coordinator.Wait()
	pool.Stop()
	sched.Close()
	events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindShutdown, Comp: "main",
		Extra: map[string]any{"live": factory.Live(), "dropped": events.Dropped()}})
	events.Close()
}

// buildResolver chains the configured resolvers and logs every lookup.
func buildResolver(cfg *config.Config, events *otel.Logger) (resolve.Resolver, error) {
	chain, err := resolve.NewChain(resolve.Options{
		BaseURL:           cfg.Media.BaseURL,
		RedirectBase:      cfg.Media.RedirectBase,
		RequestsPerSecond: cfg.Media.RequestsPerSecond,
		Timeout:           10 * time.Second,
		UserAgent:         cfg.Media.UserAgent,
		Pages:             true,
	})
	if err != nil {
		return nil, err
	}
	return resolve.Logged{Resolver: chain, Log: events, Source: "chain"}, nil
}
