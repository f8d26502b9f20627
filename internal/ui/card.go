package ui

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/abelbrown/reel/internal/feed"
	"github.com/abelbrown/reel/internal/media"
	"github.com/abelbrown/reel/internal/playback"
)

// cardView is everything one card needs to render.
type cardView struct {
	item     feed.Item
	active   bool
	loaded   bool // entry exists
	entry    media.State
	failed   bool
	play     playback.State
	playErr  error
	mediaURI string
	spinner  string
	progress string // rendered bar, "" when not playing
}

// renderCard draws v into exactly height lines of the given width.
func renderCard(v cardView, width, height int) []string {
	if height <= 0 {
		return nil
	}
	inner := width - 4 // border and padding
	if inner < 4 {
		inner = 4
	}

	var body []string
	caption := v.item.Caption
	if caption == "" {
		caption = "(no caption)"
	}
	body = append(body, Caption.Render(runewidth.Truncate(caption, inner, "…")))
	body = append(body, Author.Render(runewidth.Truncate("@"+v.item.AuthorName, inner, "…")))
	body = append(body, "")
	body = append(body, visualLine(v, inner))
	if v.progress != "" {
		body = append(body, v.progress)
	}
	body = append(body, "")
	body = append(body, stateLine(v))
	if v.active && v.playErr != nil {
		body = append(body, Hint.Render("press r to play"))
	}

	style := Card
	if v.active {
		style = ActiveCard
	}
	if height >= 3 {
		style = style.Height(height - 2)
	}
	rendered := style.Width(width - 2).Render(strings.Join(body, "\n"))
	return fitLines(strings.Split(rendered, "\n"), height)
}

// visualLine stands in for the video surface.
func visualLine(v cardView, inner int) string {
	switch {
	case v.failed:
		line := ErrorStyle.Render("⚠ media unavailable")
		if v.item.HasStill() {
			line += " " + Preview.Render(runewidth.Truncate(still(v.item), inner-20, "…"))
		}
		return line
	case v.play == playback.Playing:
		return MediaLine.Render(runewidth.Truncate("▶ "+v.mediaURI, inner, "…"))
	case v.loaded && v.entry == media.Ready && v.mediaURI != "":
		return MediaLine.Render(runewidth.Truncate("❚❚ "+v.mediaURI, inner, "…"))
	case v.item.HasStill():
		return Preview.Render(runewidth.Truncate("▣ "+still(v.item), inner, "…"))
	case v.loaded:
		return v.spinner + " loading"
	default:
		return Preview.Render("·")
	}
}

func still(it feed.Item) string {
	if it.PreviewImageRef != "" {
		return it.PreviewImageRef
	}
	return it.CoverImageRef
}

func stateLine(v cardView) string {
	entry := "unloaded"
	if v.loaded {
		entry = v.entry.String()
	}
	if v.failed {
		entry = "failed"
	}
	line := StateBadge.Render(entry)
	if v.active {
		line += StateBadge.Render(v.play.String())
	}
	return line
}

// fitLines pads or cuts lines to exactly n.
func fitLines(lines []string, n int) []string {
	if len(lines) > n {
		return lines[:n]
	}
	for len(lines) < n {
		lines = append(lines, "")
	}
	return lines
}
