// Package ui is the bubbletea front end for the reel feed.
package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// snapFPS drives the snap-scroll spring.
const snapFPS = 60

// snapTick advances the snap animation by one frame.
type snapTick struct{}

func snapCmd() tea.Cmd {
	return tea.Tick(time.Second/snapFPS, func(time.Time) tea.Msg { return snapTick{} })
}

// notice is a transient status line.
type notice struct {
	text string
	err  bool
	at   time.Time
}

// noticeTTL is how long a notice stays in the status bar.
const noticeTTL = 5 * time.Second
