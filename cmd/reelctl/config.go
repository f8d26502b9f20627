package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/abelbrown/reel/internal/config"
)

func runConfig() {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	write := fs.Bool("w", false, "Write the effective config to the config file")
	fs.Parse(os.Args[1:])

	cfg := loadConfig()
	if *write {
		if err := cfg.Save(); err != nil {
			fail("save: %v", err)
		}
		fmt.Fprintf(os.Stderr, "wrote %s\n", config.ConfigPath())
	}
	out, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		fail("%v", err)
	}
	fmt.Println(string(out))
}
