package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/abelbrown/reel/internal/playback"
	"github.com/abelbrown/reel/internal/reel"
	"github.com/abelbrown/reel/internal/window"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid")

// Config is the persistent application configuration
type Config struct {
	Window   window.Config  `json:"window"`
	Scroll   ScrollConfig   `json:"scroll"`
	Playback PlaybackConfig `json:"playback"`
	Media    MediaConfig    `json:"media"`
	Store    StoreConfig    `json:"store"`
	Sources  []string       `json:"sources,omitempty"` // media RSS feeds imported in the background
	UI       UIConfig       `json:"ui"`
}

// ScrollConfig tunes the scroll tracker and active-index threshold.
type ScrollConfig struct {
	DebounceMs   int     `json:"debounce_ms"`
	SurrenderPct float64 `json:"surrender_pct"`
}

// PlaybackConfig tunes the simulated player and look-ahead buffering.
type PlaybackConfig struct {
	LookAheadMs int  `json:"lookahead_ms"`
	NudgeMs     int  `json:"nudge_ms"`
	ClipSeconds int  `json:"clip_seconds"` // clip length assumed by the terminal player
	BufferMs    int  `json:"buffer_ms"`    // time to buffer one ready-state step
	Autoplay    bool `json:"autoplay"`     // false simulates a blocked autoplay policy
}

// MediaConfig controls how item refs become playable URIs.
type MediaConfig struct {
	BaseURL           string  `json:"base_url"`      // origin for relative preview refs
	RedirectBase      string  `json:"redirect_base"` // optional redirect service, e.g. http://localhost:8080
	RequestsPerSecond float64 `json:"requests_per_second"`
	Workers           int     `json:"workers"`
	UserAgent         string  `json:"user_agent"`
}

// StoreConfig selects the feed item store.
type StoreConfig struct {
	Driver string `json:"driver"` // "memory", "sqlite" or "postgres"
	DSN    string `json:"dsn,omitempty"`
}

// UIConfig holds UI preferences
type UIConfig struct {
	ShowDebug bool `json:"show_debug"`
	ImportMin int  `json:"import_interval_min"` // background re-import period, 0 disables
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Window: window.DefaultConfig(),
		Scroll: ScrollConfig{
			DebounceMs:   100,
			SurrenderPct: 70,
		},
		Playback: PlaybackConfig{
			LookAheadMs: 3000,
			NudgeMs:     150,
			ClipSeconds: 15,
			BufferMs:    200,
			Autoplay:    true,
		},
		Media: MediaConfig{
			BaseURL:           "http://localhost:3000",
			RequestsPerSecond: 4,
			Workers:           3,
			UserAgent:         "reel/0.1",
		},
		Store: StoreConfig{Driver: "sqlite"},
		UI:    UIConfig{ImportMin: 30},
	}
}

// Dir returns the data directory, ~/.reel unless REEL_HOME is set.
func Dir() string {
	if d := os.Getenv("REEL_HOME"); d != "" {
		return d
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".reel")
}

// ConfigPath returns the path to the config file
func ConfigPath() string {
	return filepath.Join(Dir(), "config.json")
}

// Load reads config from disk, or returns defaults. Environment overrides
// are applied either way.
func Load() (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(ConfigPath())
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", ConfigPath(), err)
		}
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// Save writes config to disk
func (c *Config) Save() error {
	path := ConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600) // DSN may carry credentials
}

// ApplyEnv overrides fields from REEL_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("REEL_STORE"); v != "" {
		c.Store.Driver = v
	}
	if v := os.Getenv("REEL_DSN"); v != "" {
		c.Store.DSN = v
	}
	if v := os.Getenv("REEL_BASE_URL"); v != "" {
		c.Media.BaseURL = v
	}
	if v := os.Getenv("REEL_REDIRECT_BASE"); v != "" {
		c.Media.RedirectBase = v
	}
	envInt("REEL_LOOK_AHEAD", &c.Window.LookAhead)
	envInt("REEL_LOOK_BEHIND", &c.Window.LookBehind)
	envInt("REEL_EVICTION_RADIUS", &c.Window.EvictionRadius)
	envInt("REEL_DEBOUNCE_MS", &c.Scroll.DebounceMs)
	if v := os.Getenv("REEL_AUTOPLAY"); v != "" {
		c.Playback.Autoplay = v != "0" && v != "false"
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if err := c.Window.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.Scroll.DebounceMs <= 0 {
		return fmt.Errorf("%w: scroll.debounce_ms must be positive", ErrInvalid)
	}
	if c.Scroll.SurrenderPct <= 0 || c.Scroll.SurrenderPct > 100 {
		return fmt.Errorf("%w: scroll.surrender_pct must be in (0,100]", ErrInvalid)
	}
	if c.Media.Workers <= 0 {
		return fmt.Errorf("%w: media.workers must be positive", ErrInvalid)
	}
	switch c.Store.Driver {
	case "memory", "sqlite":
	case "postgres":
		if c.Store.DSN == "" {
			return fmt.Errorf("%w: postgres store needs a dsn", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown store driver %q", ErrInvalid, c.Store.Driver)
	}
	return nil
}

// Runtime converts the file config into runtime tunables.
func (c *Config) Runtime() reel.Config {
	return reel.Config{
		Window:       c.Window,
		Quiet:        time.Duration(c.Scroll.DebounceMs) * time.Millisecond,
		SurrenderPct: c.Scroll.SurrenderPct,
		Playback: playback.Config{
			LookAhead: time.Duration(c.Playback.LookAheadMs) * time.Millisecond,
			Nudge:     time.Duration(c.Playback.NudgeMs) * time.Millisecond,
		},
	}
}

// DBPath is the sqlite database location.
func DBPath() string { return filepath.Join(Dir(), "reel.db") }

// EventLogPath is the JSONL event log location.
func EventLogPath() string { return filepath.Join(Dir(), "reel.events.jsonl") }
