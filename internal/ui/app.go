package ui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/harmonica"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/abelbrown/reel/internal/coord"
	"github.com/abelbrown/reel/internal/loop"
	"github.com/abelbrown/reel/internal/media"
	"github.com/abelbrown/reel/internal/otel"
	"github.com/abelbrown/reel/internal/playback"
	"github.com/abelbrown/reel/internal/reel"
	"github.com/abelbrown/reel/internal/viewport"
	"github.com/abelbrown/reel/internal/work"
)

const (
	// unitsPerLine is the scroll resolution: offsets move in half lines.
	unitsPerLine = 2
	// wheelLines is how far one mouse wheel notch scrolls.
	wheelLines = 3
)

// progressReporter is implemented by handles that know their clip position.
type progressReporter interface {
	Progress() float64
	MediaURI() string
}

// Options wires the App to the runtime.
type Options struct {
	Runtime *reel.Runtime
	// Unlock records a user gesture so blocked autoplay may proceed.
	Unlock    func()
	Ring      *otel.RingBuffer
	Pool      *work.Pool // optional; shown in the debug overlay
	ShowDebug bool
}

// App is the root Bubble Tea model. It owns no feed state itself: the
// runtime does, and every runtime callback arrives as a loop.Call.
type App struct {
	rt     *reel.Runtime
	unlock func()
	ring   *otel.RingBuffer
	pool   *work.Pool

	keys    keyMap
	help    help.Model
	spinner spinner.Model
	bar     progress.Model

	width   int
	height  int
	ready   bool
	mounted bool
	offset  int // scroll offset in half-line units

	// Snap scrolling with harmonica spring physics
	spring   harmonica.Spring
	pos      float64
	vel      float64
	target   float64
	snapping bool

	showDebug bool
	notice    notice
}

// NewApp creates the model.
func NewApp(opts Options) App {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(colorHighlight)

	return App{
		rt:        opts.Runtime,
		unlock:    opts.Unlock,
		ring:      opts.Ring,
		pool:      opts.Pool,
		keys:      defaultKeys(),
		help:      help.New(),
		spinner:   s,
		bar:       progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		spring:    harmonica.NewSpring(harmonica.FPS(snapFPS), 6.0, 0.9),
		showDebug: opts.ShowDebug,
	}
}

// Init starts the spinner.
func (a App) Init() tea.Cmd {
	return a.spinner.Tick
}

// Update handles messages and returns the updated model and any commands.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loop.Call:
		msg.Run()
		return a, a.maybeSnap()

	case tea.WindowSizeMsg:
		return a, a.resize(msg.Width, msg.Height)

	case tea.KeyMsg:
		return a.handleKey(msg)

	case tea.MouseMsg:
		if msg.Action != tea.MouseActionPress {
			return a, nil
		}
		switch msg.Button {
		case tea.MouseButtonWheelDown:
			a.scrollBy(wheelLines * unitsPerLine)
		case tea.MouseButtonWheelUp:
			a.scrollBy(-wheelLines * unitsPerLine)
		}
		return a, nil

	case snapTick:
		return a, a.stepSnap()

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case coord.FeedLoaded:
		a.setFeed(msg)
		return a, a.maybeSnap()

	case coord.ImportComplete:
		if msg.Err != nil {
			a.flash(fmt.Sprintf("import %s: %v", msg.Source, msg.Err), true)
		} else if msg.NewItems > 0 {
			a.flash(fmt.Sprintf("imported %d from %s", msg.NewItems, msg.Source), false)
		}
		return a, nil
	}
	return a, nil
}

func (a App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keys.Quit):
		if a.rt != nil {
			a.rt.Unmount()
		}
		return a, tea.Quit
	case key.Matches(msg, a.keys.Down):
		a.scrollBy(unitsPerLine)
	case key.Matches(msg, a.keys.Up):
		a.scrollBy(-unitsPerLine)
	case key.Matches(msg, a.keys.NextCard):
		return a, a.snapTo(a.offset/a.vh() + 1)
	case key.Matches(msg, a.keys.PrevCard):
		idx := a.offset / a.vh()
		if a.offset%a.vh() == 0 {
			idx--
		}
		return a, a.snapTo(idx)
	case key.Matches(msg, a.keys.Top):
		return a, a.snapTo(0)
	case key.Matches(msg, a.keys.Bottom):
		return a, a.snapTo(a.count() - 1)
	case key.Matches(msg, a.keys.Retry):
		if a.unlock != nil {
			a.unlock()
		}
		if a.rt != nil && a.rt.Retry() {
			a.flash("playing", false)
		}
	case key.Matches(msg, a.keys.Debug):
		a.showDebug = !a.showDebug
	case key.Matches(msg, a.keys.Help):
		a.help.ShowAll = !a.help.ShowAll
	}
	return a, nil
}

func (a *App) resize(w, h int) tea.Cmd {
	a.width, a.height = w, h
	a.ready = true
	a.help.Width = w
	a.bar.Width = max(10, w-8)
	if a.rt == nil {
		return nil
	}
	if !a.mounted {
		a.mounted = true
		a.rt.Mount(a.sample())
		return a.maybeSnap()
	}
	// Keep the active card in place across a resize.
	if idx := a.rt.ActiveIndex(); idx >= 0 {
		a.offset = idx * a.vh()
	}
	a.offset = a.clamp(a.offset)
	a.pos, a.vel, a.snapping = float64(a.offset), 0, false
	a.rt.Scroll(a.sample())
	return nil
}

func (a *App) setFeed(msg coord.FeedLoaded) {
	if msg.Err != nil {
		a.flash("feed: "+msg.Err.Error(), true)
		return
	}
	if a.rt == nil {
		return
	}
	if err := a.rt.SetItems(msg.Items); err != nil {
		a.flash("feed: "+err.Error(), true)
		return
	}
	if clamped := a.clamp(a.offset); clamped != a.offset {
		a.offset = clamped
		a.pos = float64(clamped)
		a.rt.Scroll(a.sample())
	}
	a.flash(fmt.Sprintf("%d items", len(msg.Items)), false)
}

// scrollBy moves the raw offset, cancelling any snap in flight.
func (a *App) scrollBy(d int) {
	if a.rt == nil || !a.mounted {
		return
	}
	a.snapping, a.vel = false, 0
	a.offset = a.clamp(a.offset + d)
	a.pos = float64(a.offset)
	a.rt.Scroll(a.sample())
}

// snapTo animates to the top of card idx.
func (a *App) snapTo(idx int) tea.Cmd {
	if a.rt == nil || !a.mounted || a.count() == 0 {
		return nil
	}
	idx = min(max(idx, 0), a.count()-1)
	a.target = float64(idx * a.vh())
	if a.snapping {
		return nil // the running animation picks up the new target
	}
	a.snapping = true
	return snapCmd()
}

// maybeSnap aligns the view with the active item once scrolling settles.
func (a *App) maybeSnap() tea.Cmd {
	if a.rt == nil || !a.mounted || a.snapping || a.rt.ScrollPending() {
		return nil
	}
	idx := a.rt.ActiveIndex()
	if idx < 0 {
		return nil
	}
	t := float64(idx * a.vh())
	if math.Abs(a.pos-t) < 0.5 {
		return nil
	}
	a.target, a.snapping = t, true
	return snapCmd()
}

func (a *App) stepSnap() tea.Cmd {
	if !a.snapping {
		return nil
	}
	a.pos, a.vel = a.spring.Update(a.pos, a.vel, a.target)
	if math.Abs(a.pos-a.target) < 0.5 && math.Abs(a.vel) < 0.5 {
		a.pos, a.vel, a.snapping = a.target, 0, false
	}
	a.offset = a.clamp(int(math.Round(a.pos)))
	a.rt.Scroll(a.sample())
	if a.snapping {
		return snapCmd()
	}
	return nil
}

func (a *App) flash(text string, isErr bool) {
	a.notice = notice{text: text, err: isErr, at: time.Now()}
}

func (a App) cardHeight() int { return max(1, a.height-1) }

func (a App) vh() int { return a.cardHeight() * unitsPerLine }

func (a App) count() int {
	if a.rt == nil {
		return 0
	}
	return len(a.rt.Items())
}

func (a App) clamp(off int) int {
	maxOff := max(0, (a.count()-1)*a.vh())
	return min(max(off, 0), maxOff)
}

func (a App) sample() viewport.Sample {
	return viewport.Sample{ScrollOffset: float64(a.offset), ViewportHeight: float64(a.vh())}
}

// View renders the UI.
func (a App) View() string {
	if !a.ready {
		return "Loading..."
	}
	ch := a.cardHeight()

	var body string
	if a.count() == 0 {
		body = lipgloss.Place(a.width, ch, lipgloss.Center, lipgloss.Center,
			a.spinner.View()+" waiting for items")
	} else {
		body = strings.Join(a.renderFeed(ch), "\n")
	}
	if a.showDebug {
		var extra []string
		if a.pool != nil {
			extra = append(extra, "Work:       "+a.pool.Stats().String())
		}
		if a.rt != nil {
			s := a.rt.CacheStats()
			extra = append(extra, fmt.Sprintf("Entries:    %d live, %d reprioritized",
				s.Materialized-s.TornDown, s.Reprioritized))
		}
		body = lipgloss.Place(a.width, ch, lipgloss.Center, lipgloss.Center,
			debugOverlay(a.ring, extra, a.width, ch))
	} else if a.help.ShowAll {
		body = lipgloss.Place(a.width, ch, lipgloss.Center, lipgloss.Center,
			a.help.FullHelpView(a.keys.FullHelp()))
	}
	return body + "\n" + a.statusBar()
}

// renderFeed shows the card under the offset and the top of the next one.
func (a App) renderFeed(ch int) []string {
	vh := a.vh()
	idx := a.offset / vh
	skip := (a.offset % vh) / unitsPerLine

	lines := a.cardLines(idx, ch)[skip:]
	if idx+1 < a.count() && len(lines) < ch {
		lines = append(lines, a.cardLines(idx+1, ch)...)
	}
	return fitLines(lines, ch)
}

func (a App) cardLines(i, ch int) []string {
	items := a.rt.Items()
	it := items[i]
	v := cardView{
		item:    it,
		active:  i == a.rt.ActiveIndex(),
		spinner: a.spinner.View(),
	}
	if e, ok := a.rt.Entry(it.ID); ok {
		v.loaded = true
		v.entry = e.State
		v.failed = e.Failed
		if pr, ok := e.Handle.(progressReporter); ok {
			v.mediaURI = pr.MediaURI()
			if v.active && a.rt.PlaybackState() == playback.Playing {
				v.progress = a.bar.ViewAs(pr.Progress())
			}
		}
	}
	if v.active {
		v.play = a.rt.PlaybackState()
		v.playErr = a.rt.PlaybackErr()
	}
	if v.failed {
		v.entry = media.Unloaded
	}
	return renderCard(v, a.width, ch)
}

func (a App) statusBar() string {
	n := a.count()
	active := -1
	var loaded []int
	if a.rt != nil {
		active = a.rt.ActiveIndex()
		loaded = a.rt.LoadedIndices()
	}

	pos := StatusBarKey.Render(fmt.Sprintf("%d/%d", active+1, n))
	info := StatusBarText.Render(fmt.Sprintf("  loaded %v  live %d", loaded, len(loaded)))
	left := pos + info
	if a.notice.text != "" && time.Since(a.notice.at) < noticeTTL {
		style := StatusBarText
		if a.notice.err {
			style = ErrorStyle
		}
		left += "  " + style.Render(runewidth.Truncate(a.notice.text, 40, "…"))
	}
	short := a.help.ShortHelpView(a.keys.ShortHelp())
	return StatusBar.Width(a.width).MaxHeight(1).Render(left + "  " + short)
}

// Offset returns the raw scroll offset (for testing).
func (a App) Offset() int { return a.offset }

// Snapping reports whether a snap animation is running (for testing).
func (a App) Snapping() bool { return a.snapping }
