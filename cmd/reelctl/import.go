package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/abelbrown/reel/internal/fetch"
)

func runImport() {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	source := fs.String("source", "", "Source label stored with the items (default: feed title)")
	timeout := fs.Duration("timeout", 30*time.Second, "Fetch timeout for URLs")
	dryRun := fs.Bool("n", false, "Parse only, do not save")
	fs.Parse(os.Args[1:])

	if fs.NArg() != 1 {
		fail("import takes exactly one <url|file> argument")
	}
	target := fs.Arg(0)

	ctx := context.Background()
	cfg := loadConfig()

	var (
		res *fetch.Result
		err error
	)
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		res, err = fetch.NewFetcher(*timeout, cfg.Media.UserAgent).Fetch(ctx, target)
	} else {
		var f *os.File
		if f, err = os.Open(target); err == nil {
			res, err = fetch.Parse(f)
			f.Close()
		}
	}
	if err != nil {
		fail("%v", err)
	}

	label := *source
	if label == "" {
		label = res.Title
	}
	if label == "" {
		label = target
	}

	fmt.Printf("Parsed:   %d items (%d without video skipped)\n", len(res.Items), res.Skipped)
	if *dryRun {
		for _, it := range res.Items {
			fmt.Printf("  %-16s %s\n", it.ID, truncate(it.Caption, 60))
		}
		return
	}

	st := openStore(ctx, cfg)
	defer st.Close()

	n, err := st.SaveItems(ctx, res.Items, label)
	if err != nil {
		fail("save: %v", err)
	}
	fmt.Printf("Saved:    %d new items from %q\n", n, label)
}
