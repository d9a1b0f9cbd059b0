package gesture

import (
	"sync"
	"testing"
	"time"

	"toneai/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type manualTimer struct {
	clk     *manualClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	t.clk.mu.Lock()
	defer t.clk.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

type manualClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*manualTimer
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Unix(1700000000, 0)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{clk: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward and runs due timers outside the clock lock.
func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*manualTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	for _, t := range due {
		t.f()
	}
}

func (c *manualClock) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

func newTestController() (*Controller, *manualClock, *[]State) {
	clk := newManualClock()
	var states []State
	ctl := New(DefaultHoldThreshold, WithClock(clk), OnChange(func(s Snapshot) {
		states = append(states, s.State)
	}))
	return ctl, clk, &states
}

func TestShortPressIsTap(t *testing.T) {
	ctl, clk, states := newTestController()

	ctl.Press("m1")
	clk.Advance(200 * time.Millisecond)
	tap := ctl.Release()

	assert.True(t, tap)
	assert.Equal(t, []State{Pressing, Idle}, *states)
	assert.Equal(t, 0, clk.pending(), "deferred reveal must be cancelled")

	clk.Advance(time.Second)
	assert.Equal(t, Idle, ctl.Snapshot().State)
	assert.Equal(t, []State{Pressing, Idle}, *states)
}

func TestHoldRevealsUntilRelease(t *testing.T) {
	ctl, clk, states := newTestController()

	ctl.Press("m1")
	clk.Advance(499 * time.Millisecond)
	assert.Equal(t, Pressing, ctl.Snapshot().State)
	clk.Advance(time.Millisecond)

	assert.Equal(t, Snapshot{State: Revealed, MessageID: "m1"}, ctl.Snapshot())
	assert.Equal(t, "m1", ctl.RevealedID())

	clk.Advance(2 * time.Second)
	assert.Equal(t, Revealed, ctl.Snapshot().State, "stays revealed while held")

	assert.False(t, ctl.Release())
	assert.Equal(t, []State{Pressing, Revealed, Idle}, *states)
	assert.Empty(t, ctl.RevealedID())
}

func TestLeaveAndCancelStopTimer(t *testing.T) {
	for name, exit := range map[string]func(*Controller){
		"leave":  (*Controller).Leave,
		"cancel": (*Controller).Cancel,
	} {
		t.Run(name, func(t *testing.T) {
			ctl, clk, states := newTestController()
			ctl.Press("m1")
			clk.Advance(100 * time.Millisecond)
			exit(ctl)
			assert.Equal(t, 0, clk.pending())
			clk.Advance(time.Second)
			assert.Equal(t, []State{Pressing, Idle}, *states)
		})
	}
}

func TestPressElsewhereResetsPrior(t *testing.T) {
	ctl, clk, _ := newTestController()

	ctl.Press("m1")
	clk.Advance(600 * time.Millisecond)
	require.Equal(t, "m1", ctl.RevealedID())

	ctl.Press("m2")
	assert.Equal(t, Snapshot{State: Pressing, MessageID: "m2"}, ctl.Snapshot())
	assert.Equal(t, 1, clk.pending())

	clk.Advance(500 * time.Millisecond)
	assert.Equal(t, "m2", ctl.RevealedID())
}

func TestStaleTimerIgnored(t *testing.T) {
	clk := newManualClock()
	ctl := New(0, WithClock(clk))
	assert.Equal(t, DefaultHoldThreshold, ctl.Threshold())

	ctl.Press("m1")
	// capture the generation the first timer belongs to, then move on
	stale := ctl.gen
	ctl.Press("m2")
	ctl.fire(stale)
	assert.Equal(t, Pressing, ctl.Snapshot().State)
}

func TestInputModalitiesShareOneMachine(t *testing.T) {
	ctl, clk, _ := newTestController()

	_, err := ctl.Handle(InputEvent{Type: "touchstart", MessageID: "m1"})
	require.NoError(t, err)
	clk.Advance(100 * time.Millisecond)
	tap, err := ctl.Handle(InputEvent{Type: "touchend"})
	require.NoError(t, err)
	assert.True(t, tap)

	_, err = ctl.Handle(InputEvent{Type: "mousedown", MessageID: "m1"})
	require.NoError(t, err)
	clk.Advance(700 * time.Millisecond)
	assert.Equal(t, "m1", ctl.RevealedID())
	_, err = ctl.Handle(InputEvent{Type: "mouseleave"})
	require.NoError(t, err)
	assert.Equal(t, Idle, ctl.Snapshot().State)

	_, err = ctl.Handle(InputEvent{Type: "PointerDown", MessageID: "m2"})
	require.NoError(t, err)
	_, err = ctl.Handle(InputEvent{Type: "pointercancel"})
	require.NoError(t, err)
	assert.Equal(t, 0, clk.pending())

	_, err = ctl.Handle(InputEvent{Type: "keydown"})
	assert.Error(t, err)
}

func TestRealClockReveal(t *testing.T) {
	revealed := make(chan string, 1)
	ctl := New(20*time.Millisecond, OnChange(func(s Snapshot) {
		if s.State == Revealed {
			revealed <- s.MessageID
		}
	}))
	ctl.Press("m1")
	select {
	case id := <-revealed:
		assert.Equal(t, "m1", id)
	case <-time.After(2 * time.Second):
		t.Fatal("reveal never fired")
	}
	ctl.Release()
}

func TestDisplay(t *testing.T) {
	msg := models.Message{ID: "m1", OriginalContent: "ugh fine", DeliveredContent: "Sounds good!"}
	assert.Equal(t, "Sounds good!", Display(msg, ""))
	assert.Equal(t, "Sounds good!", Display(msg, "m2"))
	assert.Equal(t, "ugh fine", Display(msg, "m1"))

	stamp := models.Message{ID: "m3", OriginalContent: "stamp:👍", DeliveredContent: "stamp:👍", IsStamp: true}
	assert.Equal(t, "👍", Display(stamp, ""))
}
