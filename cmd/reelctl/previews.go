package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/abelbrown/reel/internal/config"
	"github.com/abelbrown/reel/internal/logging"
	"github.com/abelbrown/reel/internal/otel"
	"github.com/abelbrown/reel/internal/previews"
	"github.com/abelbrown/reel/internal/resolve"
)

func runPreviews() {
	fs := flag.NewFlagSet("previews", flag.ExitOnError)
	dir := fs.String("dir", filepath.Join(config.Dir(), "previews"), "Output directory for preview frames")
	prefix := fs.String("prefix", previews.DefaultPrefix, "Ref prefix recorded for each preview")
	force := fs.Bool("force", false, "Regenerate items that already have a preview")
	parallel := fs.Int("p", 2, "Parallel ffmpeg processes")
	bin := fs.String("ffmpeg", "ffmpeg", "ffmpeg binary")
	at := fs.Duration("at", 100*time.Millisecond, "Frame offset into each video")
	fs.Parse(os.Args[1:])

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg := loadConfig()
	logging.InitWriter(os.Stderr)
	st := openStore(ctx, cfg)
	defer st.Close()

	events := otel.NewNullLogger()
	if f, err := os.OpenFile(config.EventLogPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err == nil {
		defer f.Close()
		events = otel.NewLogger(f)
	}
	defer events.Close()

	chain, err := resolve.NewChain(resolve.Options{
		BaseURL:           cfg.Media.BaseURL,
		RedirectBase:      cfg.Media.RedirectBase,
		RequestsPerSecond: cfg.Media.RequestsPerSecond,
		UserAgent:         cfg.Media.UserAgent,
	})
	if err != nil {
		fail("%v", err)
	}

	g := &previews.Generator{
		Store:     st,
		Resolver:  chain,
		Extractor: previews.FFmpeg{Bin: *bin, At: *at},
		Dir:       *dir,
		Prefix:    *prefix,
		Force:     *force,
		Parallel:  *parallel,
		Log:       events,
	}
	start := time.Now()
	rep, err := g.Run(ctx)
	if err != nil {
		fail("previews: %v", err)
	}
	for _, f := range rep.Failures {
		fmt.Printf("FAIL  %-16s %v\n", truncate(f.ItemID, 16), f.Err)
	}
	fmt.Printf("\n%d extracted, %d skipped, %d failed in %s\n", len(rep.Done), rep.Skipped, len(rep.Failures),
		time.Since(start).Round(time.Millisecond))
	fmt.Printf("serve %s at %s\n", *dir, *prefix)
	if len(rep.Failures) > 0 {
		events.Close()
		os.Exit(1)
	}
}
