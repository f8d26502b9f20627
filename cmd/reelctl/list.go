package main

import (
	"context"
	"flag"
	"fmt"
	"os"
)

func runList() {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	limit := fs.Int("n", 0, "Show at most n items (0 = all)")
	fs.Parse(os.Args[1:])

	ctx := context.Background()
	cfg := loadConfig()
	st := openStore(ctx, cfg)
	defer st.Close()

	items, err := st.List(ctx)
	if err != nil {
		fail("list: %v", err)
	}
	if *limit > 0 && len(items) > *limit {
		items = items[:*limit]
	}
	for i, it := range items {
		fmt.Printf("%4d  %-16s %-18s %s\n", i, truncate(it.ID, 16), truncate(it.AuthorName, 18), truncate(it.Caption, 50))
	}
	total, _ := st.Count(ctx)
	fmt.Printf("\n%d items in %s store\n", total, cfg.Store.Driver)
}
