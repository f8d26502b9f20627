package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/abelbrown/reel/internal/config"
	"github.com/abelbrown/reel/internal/logging"
	"github.com/abelbrown/reel/internal/otel"
	"github.com/abelbrown/reel/internal/redirect"
)

func runServe() {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", ":8080", "Listen address")
	fs.Parse(os.Args[1:])

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
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

	fmt.Printf("serving redirects on %s (%s store)\n", *addr, cfg.Store.Driver)
	if err := redirect.New(st, events).ListenAndServe(ctx, *addr); err != nil {
		fail("serve: %v", err)
	}
}
