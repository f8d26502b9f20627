package playback

import (
	"errors"
	"testing"
	"time"

	"github.com/abelbrown/reel/internal/feed"
	"github.com/abelbrown/reel/internal/loop"
	"github.com/abelbrown/reel/internal/media"
)

type fakeHandle struct {
	id      string
	calls   []string
	ready   media.ReadyState
	playErr error
	playing bool
	pos     time.Duration
}

func (h *fakeHandle) Load(p media.Priority) { h.calls = append(h.calls, "load:"+p.String()) }
func (h *fakeHandle) Play() error {
	h.calls = append(h.calls, "play")
	if h.playErr != nil {
		return h.playErr
	}
	h.playing = true
	return nil
}
func (h *fakeHandle) Pause()                         { h.calls = append(h.calls, "pause"); h.playing = false }
func (h *fakeHandle) SeekToStart()                   { h.calls = append(h.calls, "seek"); h.pos = 0 }
func (h *fakeHandle) Release()                       { h.calls = append(h.calls, "release") }
func (h *fakeHandle) ReadyState() media.ReadyState   { return h.ready }
func (h *fakeHandle) Remaining() time.Duration       { return 0 }

type fakeFactory struct {
	handles map[string]*fakeHandle
	notify  map[string]func(media.Signal)
}

func (f *fakeFactory) Open(it feed.Item, gen uint64, notify func(media.Signal)) (media.Handle, error) {
	h := &fakeHandle{id: it.ID}
	f.handles[it.ID] = h
	f.notify[it.ID] = notify
	return h, nil
}

type fixture struct {
	sched *loop.Manual
	cache *media.Cache
	f     *fakeFactory
	ctl   *Controller
	trans []Transition
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fx := &fixture{
		sched: loop.NewManual(),
		f:     &fakeFactory{handles: map[string]*fakeHandle{}, notify: map[string]func(media.Signal){}},
	}
	fx.cache = media.NewCache(fx.f, nil)
	fx.ctl = New(fx.cache, fx.sched, Config{}, nil)
	fx.cache.OnSignal(fx.ctl.HandleSignal)
	fx.ctl.OnTransition(func(tr Transition) { fx.trans = append(fx.trans, tr) })
	return fx
}

func (fx *fixture) load(id string, p media.Priority) *fakeHandle {
	fx.cache.Materialize(feed.Item{ID: id, MediaRef: "m"}, p)
	return fx.f.handles[id]
}

func (fx *fixture) signal(id string, rs media.ReadyState, remaining time.Duration) {
	fx.f.handles[id].ready = rs
	fx.f.notify[id](media.Signal{Ready: rs, Remaining: remaining})
}

func (fx *fixture) states(id string) []State {
	var out []State
	for _, tr := range fx.trans {
		if tr.ItemID == id {
			out = append(out, tr.To)
		}
	}
	return out
}

func equalStates(a, b []State) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestPlayDeferredUntilBuffered(t *testing.T) {
	fx := newFixture(t)
	h := fx.load("a", media.Active)

	fx.ctl.Activate("a", "")
	if fx.ctl.State() != Loading {
		t.Fatalf("state = %v, want loading", fx.ctl.State())
	}
	fx.signal("a", media.HaveMetadata, 0)
	fx.signal("a", media.HaveCurrentData, 0)
	if h.playing {
		t.Fatal("played below the readiness threshold")
	}

	fx.signal("a", media.HaveFutureData, 0)
	if fx.ctl.State() != Playing || !h.playing {
		t.Fatalf("state = %v playing=%v", fx.ctl.State(), h.playing)
	}
	if fx.cache.StateOf("a") != media.Playing {
		t.Errorf("cache state = %v", fx.cache.StateOf("a"))
	}
	if want := []State{Loading, Buffered, Playing}; !equalStates(fx.states("a"), want) {
		t.Errorf("transitions = %v, want %v", fx.states("a"), want)
	}

	// The listener is one-shot: later signals do not replay.
	plays := 0
	fx.signal("a", media.HaveEnoughData, 0)
	for _, c := range h.calls {
		if c == "play" {
			plays++
		}
	}
	if plays != 1 {
		t.Errorf("play issued %d times", plays)
	}
}

func TestPlayImmediatelyWhenAlreadyBuffered(t *testing.T) {
	fx := newFixture(t)
	fx.load("a", media.Active)
	fx.signal("a", media.HaveEnoughData, 0)

	fx.ctl.Activate("a", "")
	if fx.ctl.State() != Playing {
		t.Errorf("state = %v", fx.ctl.State())
	}
}

func TestSinglePlayingAndResetOnSwitch(t *testing.T) {
	fx := newFixture(t)
	ha := fx.load("a", media.Active)
	hb := fx.load("b", media.Adjacent)
	fx.signal("a", media.HaveFutureData, 0)
	fx.signal("b", media.HaveFutureData, 0)

	fx.ctl.Activate("a", "b")
	ha.pos = 4 * time.Second

	fx.cache.Materialize(feed.Item{ID: "b"}, media.Active)
	fx.ctl.Activate("b", "")

	if ha.playing || ha.pos != 0 {
		t.Errorf("previous item not idled: playing=%v pos=%v", ha.playing, ha.pos)
	}
	if !hb.playing || fx.ctl.ActiveID() != "b" {
		t.Error("new item not playing")
	}
	if fx.cache.StateOf("a") == media.Playing {
		t.Error("two entries in Playing state")
	}
	// Pause of a happens before play of b.
	var order []string
	for _, tr := range fx.trans {
		order = append(order, tr.ItemID+":"+tr.To.String())
	}
	idleA, playB := -1, -1
	for i, s := range order {
		switch s {
		case "a:idle":
			idleA = i
		case "b:playing":
			playB = i
		}
	}
	if idleA < 0 || playB < 0 || idleA > playB {
		t.Errorf("transition order %v", order)
	}
}

func TestDeactivateWhileLoadingGoesIdle(t *testing.T) {
	fx := newFixture(t)
	h := fx.load("a", media.Active)
	fx.load("b", media.Adjacent)

	fx.ctl.Activate("a", "b")
	fx.ctl.Activate("b", "")

	if want := []State{Loading, Idle}; !equalStates(fx.states("a"), want) {
		t.Errorf("a transitions = %v, want %v", fx.states("a"), want)
	}
	for _, c := range h.calls {
		if c == "play" || c == "pause" {
			t.Errorf("unexpected %s on never-played handle", c)
		}
	}

	// The armed listener for a must not fire later.
	fx.signal("a", media.HaveEnoughData, 0)
	if h.playing {
		t.Error("stale readiness started a deactivated item")
	}
}

func TestRejectionStaysBufferedAndRetry(t *testing.T) {
	fx := newFixture(t)
	h := fx.load("a", media.Active)
	h.playErr = errors.New("NotAllowedError")
	fx.signal("a", media.HaveFutureData, 0)

	fx.ctl.Activate("a", "")
	if fx.ctl.State() != Buffered {
		t.Fatalf("state = %v, want buffered", fx.ctl.State())
	}
	if !errors.Is(fx.ctl.Err(), ErrRejected) {
		t.Errorf("Err() = %v", fx.ctl.Err())
	}

	// No retry loop.
	fx.sched.Advance(10 * time.Second)
	fx.signal("a", media.HaveEnoughData, 0)
	if fx.ctl.State() != Buffered {
		t.Errorf("state drifted to %v", fx.ctl.State())
	}

	h.playErr = nil
	if !fx.ctl.Retry() {
		t.Fatal("Retry() issued nothing")
	}
	if fx.ctl.State() != Playing || fx.ctl.Err() != nil {
		t.Errorf("after retry: %v %v", fx.ctl.State(), fx.ctl.Err())
	}
	if fx.ctl.Retry() {
		t.Error("Retry while playing should be a no-op")
	}
}

func TestFailedActiveItemNeverPlays(t *testing.T) {
	fx := newFixture(t)
	fx.load("a", media.Active)
	fx.ctl.Activate("a", "")
	fx.f.notify["a"](media.Signal{Kind: media.SignalFailed, Err: errors.New("404")})
	if fx.ctl.State() != Idle {
		t.Errorf("state = %v", fx.ctl.State())
	}

	fx.ctl.Activate("", "")
	fx.ctl.Activate("a", "")
	if fx.ctl.State() != Idle {
		t.Errorf("failed entry reactivated into %v", fx.ctl.State())
	}
}

func TestLookAheadNudge(t *testing.T) {
	fx := newFixture(t)
	fx.load("a", media.Active)
	hb := fx.load("b", media.Adjacent)
	fx.signal("a", media.HaveFutureData, 10*time.Second)
	fx.ctl.Activate("a", "b")

	fx.signal("a", media.HaveEnoughData, 5*time.Second)
	if len(hb.calls) != 1 {
		t.Fatalf("nudged too early: %v", hb.calls)
	}

	fx.signal("a", media.HaveEnoughData, 2900*time.Millisecond)
	if !hb.playing || !fx.ctl.Nudging() {
		t.Fatal("next item not nudged below 3s")
	}
	if fx.ctl.StateOf("b") != Idle || fx.cache.StateOf("b") == media.Playing {
		t.Error("nudged item must not count as playing")
	}

	fx.sched.Advance(149 * time.Millisecond)
	if !hb.playing {
		t.Fatal("nudge ended early")
	}
	fx.sched.Advance(time.Millisecond)
	if hb.playing || hb.pos != 0 {
		t.Error("nudge did not pause and rewind")
	}
	want := []string{"load:adjacent", "play", "pause", "seek"}
	if len(hb.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", hb.calls, want)
	}

	// Once per activation.
	fx.signal("a", media.HaveEnoughData, 1*time.Second)
	if len(hb.calls) != len(want) {
		t.Errorf("nudged twice: %v", hb.calls)
	}
}

func TestNudgeCancelledOnEviction(t *testing.T) {
	fx := newFixture(t)
	fx.load("a", media.Active)
	hb := fx.load("b", media.Adjacent)
	fx.signal("a", media.HaveFutureData, 0)
	fx.ctl.Activate("a", "b")
	fx.signal("a", media.HaveFutureData, time.Second)

	fx.ctl.Forget("b")
	fx.cache.Teardown("b")
	if fx.ctl.Nudging() || fx.sched.Pending() != 0 {
		t.Error("nudge timer survived eviction")
	}
	fx.sched.Advance(time.Second)
	for _, c := range hb.calls[2:] {
		if c == "pause" || c == "seek" {
			t.Errorf("released handle touched after eviction: %v", hb.calls)
		}
	}
}

func TestNudgedItemBecomingActive(t *testing.T) {
	fx := newFixture(t)
	fx.load("a", media.Active)
	hb := fx.load("b", media.Adjacent)
	fx.signal("a", media.HaveFutureData, 0)
	fx.signal("b", media.HaveFutureData, 0)
	fx.ctl.Activate("a", "b")
	fx.signal("a", media.HaveFutureData, time.Second)
	if !fx.ctl.Nudging() {
		t.Fatal("expected nudge")
	}

	fx.cache.Materialize(feed.Item{ID: "b"}, media.Active)
	fx.ctl.Activate("b", "")
	fx.sched.Advance(time.Second)

	if !hb.playing || fx.ctl.State() != Playing {
		t.Errorf("late nudge timer paused the new active item: playing=%v state=%v", hb.playing, fx.ctl.State())
	}
}

func TestForgetActive(t *testing.T) {
	fx := newFixture(t)
	h := fx.load("a", media.Active)
	fx.signal("a", media.HaveFutureData, 0)
	fx.ctl.Activate("a", "")
	fx.ctl.Forget("a")
	if fx.ctl.ActiveID() != "" || fx.ctl.State() != Idle || h.playing {
		t.Errorf("Forget left active=%q state=%v playing=%v", fx.ctl.ActiveID(), fx.ctl.State(), h.playing)
	}
}

func TestReactivateSameIsNoop(t *testing.T) {
	fx := newFixture(t)
	h := fx.load("a", media.Active)
	fx.signal("a", media.HaveFutureData, 0)
	fx.ctl.Activate("a", "")
	n := len(h.calls)
	fx.ctl.Activate("a", "")
	if len(h.calls) != n {
		t.Errorf("reactivation issued %v", h.calls[n:])
	}
}
