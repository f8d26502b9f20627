package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/abelbrown/reel/internal/resolve"
)

func runCheck() {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	limit := fs.Int("p", 4, "Parallel resolutions")
	timeout := fs.Duration("timeout", 2*time.Minute, "Overall timeout")
	web := fs.Bool("web", false, "Fall back to OpenGraph scraping for unresolved items")
	verbose := fs.Bool("v", false, "Print every item, not just failures")
	fs.Parse(os.Args[1:])

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	cfg := loadConfig()
	st := openStore(ctx, cfg)
	defer st.Close()

	items, err := st.List(ctx)
	if err != nil {
		fail("list: %v", err)
	}

	chain, err := resolve.NewChain(resolve.Options{
		BaseURL:           cfg.Media.BaseURL,
		RedirectBase:      cfg.Media.RedirectBase,
		RequestsPerSecond: cfg.Media.RequestsPerSecond,
		Timeout:           10 * time.Second,
		UserAgent:         cfg.Media.UserAgent,
		Pages:             *web,
	})
	if err != nil {
		fail("%v", err)
	}

	start := time.Now()
	results, err := resolve.ResolveAll(ctx, chain, items, *limit)
	if err != nil {
		fail("check: %v", err)
	}

	failed := 0
	for _, r := range results {
		switch {
		case r.Err != nil:
			failed++
			fmt.Printf("FAIL  %-16s %v\n", truncate(r.Item.ID, 16), r.Err)
		case *verbose:
			fmt.Printf("ok    %-16s %s\n", truncate(r.Item.ID, 16), truncate(r.Media.MediaURI, 70))
		}
	}
	fmt.Printf("\n%d/%d resolved in %s\n", len(results)-failed, len(results), time.Since(start).Round(time.Millisecond))
	if failed > 0 {
		os.Exit(1)
	}
}
