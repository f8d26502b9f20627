// Command reelctl is the maintenance CLI for reel.
//
// Usage:
//
//	reelctl import <url|file>   Import a media RSS feed into the store
//	reelctl list                List stored items
//	reelctl serve [-addr]       Run the media redirect service
//	reelctl check               Resolve every stored item
//	reelctl previews            Extract preview frames with ffmpeg
//	reelctl events              JSONL event log viewer
//	reelctl config              Print the effective config
package main

import (
	"fmt"
	"os"
)

const usage = `reelctl: reel maintenance CLI

Usage:
  reelctl <command> [flags]

Commands:
  import      Import a media RSS feed (URL or file) into the store
  list        List stored items
  serve       Run the /api/video and /api/preview redirect service
  check       Resolve every stored item and report failures
  previews    Extract a preview frame per item with ffmpeg
  events      JSONL event log viewer
  config      Print the effective config as JSON

Environment:
  REEL_HOME           Data directory (default: ~/.reel)
  REEL_STORE          Store driver: memory, sqlite, postgres
  REEL_DSN            Store DSN
  REEL_BASE_URL       Origin for relative preview refs

Run 'reelctl <command> -h' for command-specific help.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(0)
	}

	cmd := os.Args[1]
	// Strip the program name + subcommand so flag sets see only their flags
	os.Args = os.Args[1:]

	switch cmd {
	case "import":
		runImport()
	case "list":
		runList()
	case "serve":
		runServe()
	case "check":
		runCheck()
	case "previews":
		runPreviews()
	case "events":
		runEvents()
	case "config":
		runConfig()
	case "-h", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "reelctl: unknown command %q\n\n", cmd)
		fmt.Print(usage)
		os.Exit(1)
	}
}
