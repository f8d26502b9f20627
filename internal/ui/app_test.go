package ui

import (
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/reel/internal/coord"
	"github.com/abelbrown/reel/internal/feed"
	"github.com/abelbrown/reel/internal/loop"
	"github.com/abelbrown/reel/internal/media"
	"github.com/abelbrown/reel/internal/reel"
)

type stubHandle struct{}

func (stubHandle) Load(media.Priority) {}
func (stubHandle) Play() error { return nil }
func (stubHandle) Pause() {}
func (stubHandle) SeekToStart() {}
func (stubHandle) Release() {}
func (stubHandle) ReadyState() media.ReadyState { return media.HaveNothing }
func (stubHandle) Remaining() time.Duration { return 0 }

type stubFactory struct{}

func (stubFactory) Open(feed.Item, uint64, func(media.Signal)) (media.Handle, error) {
	return stubHandle{}, nil
}

func testItems(n int) []feed.Item {
	items := make([]feed.Item, n)
	for i := range items {
		items[i] = feed.Item{
			ID:         fmt.Sprint(i),
			MediaRef:   fmt.Sprintf("https://cdn.example.com/%d.mp4", i),
			Caption:    fmt.Sprintf("clip number %d", i),
			AuthorName: "author",
		}
	}
	return items
}

// newTestApp returns an app sized to 80x21: cards are 20 lines, 40 units.
func newTestApp(t *testing.T, n int) (App, *loop.Manual) {
	t.Helper()
	sched := loop.NewManual()
	rt, err := reel.New(testItems(n), stubFactory{}, sched, reel.DefaultConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}
	a := NewApp(Options{Runtime: rt})
	m, _ := a.Update(tea.WindowSizeMsg{Width: 80, Height: 21})
	return m.(App), sched
}

func send(a App, msg tea.Msg) (App, tea.Cmd) {
	m, cmd := a.Update(msg)
	return m.(App), cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// settle runs the snap animation to completion.
func settle(t *testing.T, a App) App {
	t.Helper()
	for i := 0; a.Snapping(); i++ {
		if i > 1000 {
			t.Fatal("snap never settled")
		}
		a, _ = send(a, snapTick{})
	}
	return a
}

func TestMountActivatesFirst(t *testing.T) {
	a, _ := newTestApp(t, 5)
	if got := a.rt.ActiveIndex(); got != 0 {
		t.Errorf("active = %d, want 0", got)
	}
	if got := a.rt.LoadedIndices(); len(got) == 0 || got[0] != 0 {
		t.Errorf("loaded = %v", got)
	}
	view := a.View()
	if !strings.Contains(view, "clip number 0") {
		t.Errorf("view missing first caption:\n%s", view)
	}
	if !strings.Contains(view, "1/5") {
		t.Errorf("status bar missing position:\n%s", view)
	}
}

func TestNextCardSnapsAndActivates(t *testing.T) {
	a, sched := newTestApp(t, 5)

	a, cmd := send(a, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	if cmd == nil || !a.Snapping() {
		t.Fatal("space should start a snap")
	}
	a = settle(t, a)
	if a.Offset() != 40 {
		t.Errorf("offset = %d, want 40", a.Offset())
	}

	sched.Advance(200 * time.Millisecond)
	if got := a.rt.ActiveIndex(); got != 1 {
		t.Errorf("active = %d, want 1", got)
	}
}

func TestPartialScrollSnapsBack(t *testing.T) {
	a, sched := newTestApp(t, 5)
	// 10 lines = 20 units = 50% of the card: not enough to switch.
	for i := 0; i < 10; i++ {
		a, _ = send(a, runes("j"))
	}
	if a.Offset() != 20 {
		t.Fatalf("offset = %d, want 20", a.Offset())
	}
	sched.Advance(200 * time.Millisecond)
	if a.rt.ActiveIndex() != 0 {
		t.Fatalf("active = %d, want 0", a.rt.ActiveIndex())
	}

	a, cmd := send(a, loop.Call{})
	if cmd == nil || !a.Snapping() {
		t.Fatal("settled scroll should snap to the active card")
	}
	a = settle(t, a)
	if a.Offset() != 0 {
		t.Errorf("offset after snap = %d, want 0", a.Offset())
	}
}

func TestScrollPastThresholdSwitches(t *testing.T) {
	a, sched := newTestApp(t, 5)
	// 14 lines = 28 units = 70% of the card.
	for i := 0; i < 14; i++ {
		a, _ = send(a, runes("j"))
	}
	sched.Advance(200 * time.Millisecond)
	if a.rt.ActiveIndex() != 1 {
		t.Fatalf("active = %d, want 1", a.rt.ActiveIndex())
	}
	a, _ = send(a, loop.Call{})
	a = settle(t, a)
	if a.Offset() != 40 {
		t.Errorf("offset = %d, want 40", a.Offset())
	}
}

func TestScrollClamps(t *testing.T) {
	a, _ := newTestApp(t, 2)
	a, _ = send(a, runes("k"))
	if a.Offset() != 0 {
		t.Errorf("offset = %d, want 0", a.Offset())
	}
	for i := 0; i < 100; i++ {
		a, _ = send(a, runes("j"))
	}
	if a.Offset() != 40 {
		t.Errorf("offset = %d, want max 40", a.Offset())
	}
}

func TestFeedLoadedShrinksFeed(t *testing.T) {
	a, sched := newTestApp(t, 5)
	a, _ = send(a, runes("G"))
	a = settle(t, a)
	sched.Advance(200 * time.Millisecond)
	if a.rt.ActiveIndex() != 4 {
		t.Fatalf("active = %d, want 4", a.rt.ActiveIndex())
	}

	a, _ = send(a, coord.FeedLoaded{Items: testItems(2)})
	sched.Advance(200 * time.Millisecond)
	if a.Offset() != 40 {
		t.Errorf("offset = %d, want clamped 40", a.Offset())
	}
	if a.rt.ActiveIndex() != 1 {
		t.Errorf("active = %d, want 1", a.rt.ActiveIndex())
	}
}

func TestDebugToggle(t *testing.T) {
	a, _ := newTestApp(t, 3)
	a.ring = nil
	a, _ = send(a, runes("d"))
	if !a.showDebug {
		t.Fatal("d should enable the overlay")
	}
	_ = a.View() // nil ring renders an empty overlay
	a, _ = send(a, runes("d"))
	if a.showDebug {
		t.Error("d should toggle the overlay off")
	}
}

func TestQuitUnmounts(t *testing.T) {
	a, _ := newTestApp(t, 3)
	_, cmd := send(a, runes("q"))
	if cmd == nil {
		t.Fatal("q should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
	if got := a.rt.LoadedIndices(); len(got) != 0 {
		t.Errorf("entries left after quit: %v", got)
	}
}

func TestImportNotice(t *testing.T) {
	a, _ := newTestApp(t, 3)
	a, _ = send(a, coord.ImportComplete{Source: "https://example.com/rss", NewItems: 4})
	if !strings.Contains(a.View(), "imported 4") {
		t.Errorf("status bar missing import notice:\n%s", a.View())
	}
}

func TestRenderCardHeight(t *testing.T) {
	v := cardView{item: testItems(1)[0], active: true}
	for _, h := range []int{1, 3, 10, 30} {
		if got := len(renderCard(v, 60, h)); got != h {
			t.Errorf("renderCard height %d returned %d lines", h, got)
		}
	}
}
