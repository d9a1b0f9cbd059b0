// Package gesture implements reveal-on-hold: a press held past a threshold
// reveals a message's original text until the press ends.
package gesture

import (
	"sync"
	"time"
)

const DefaultHoldThreshold = 500 * time.Millisecond

type State int

const (
	Idle State = iota
	Pressing
	Revealed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pressing:
		return "pressing"
	case Revealed:
		return "revealed"
	default:
		return "unknown"
	}
}

// Timer is a pending deferred call.
type Timer interface {
	Stop() bool
}

// Clock supplies time and deferred calls; tests swap in a manual clock.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// Snapshot is the observable controller state.
type Snapshot struct {
	State     State
	MessageID string
}

type Option func(*Controller)

func WithClock(c Clock) Option {
	return func(ctl *Controller) { ctl.clock = c }
}

// OnChange registers a callback run after every state transition, outside
// the controller's lock.
func OnChange(f func(Snapshot)) Option {
	return func(ctl *Controller) { ctl.onChange = f }
}

// Controller tracks at most one pressed or revealed message.
type Controller struct {
	mu        sync.Mutex
	clock     Clock
	threshold time.Duration
	onChange  func(Snapshot)

	state     State
	messageID string
	startedAt time.Time
	timer     Timer
	// bumped on every transition; a timer from an older generation is stale
	gen uint64
}

func New(threshold time.Duration, opts ...Option) *Controller {
	if threshold <= 0 {
		threshold = DefaultHoldThreshold
	}
	c := &Controller{clock: systemClock{}, threshold: threshold}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Controller) Threshold() time.Duration { return c.threshold }

// Press starts a press on messageID, resetting any active press or reveal.
func (c *Controller) Press(messageID string) {
	if messageID == "" {
		return
	}
	c.mu.Lock()
	c.toIdleLocked()
	c.state = Pressing
	c.messageID = messageID
	c.startedAt = c.clock.Now()
	gen := c.gen
	c.timer = c.clock.AfterFunc(c.threshold, func() { c.fire(gen) })
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
}

// Release ends the press. It reports true when the press was shorter than
// the threshold, i.e. a normal tap.
func (c *Controller) Release() bool {
	c.mu.Lock()
	tap := c.state == Pressing && c.clock.Now().Sub(c.startedAt) < c.threshold
	changed := c.state != Idle
	c.toIdleLocked()
	snap := c.snapshotLocked()
	c.mu.Unlock()
	if changed {
		c.notify(snap)
	}
	return tap
}

// Cancel aborts the press without tap semantics.
func (c *Controller) Cancel() {
	c.mu.Lock()
	changed := c.state != Idle
	c.toIdleLocked()
	snap := c.snapshotLocked()
	c.mu.Unlock()
	if changed {
		c.notify(snap)
	}
}

// Leave handles the pointer leaving the pressed element.
func (c *Controller) Leave() { c.Cancel() }

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// RevealedID returns the revealed message id, or "" when none is revealed.
func (c *Controller) RevealedID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Revealed {
		return ""
	}
	return c.messageID
}

func (c *Controller) fire(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || c.state != Pressing {
		c.mu.Unlock()
		return
	}
	c.state = Revealed
	c.timer = nil
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
}

// every exit path goes through here so the pending reveal is always stopped
func (c *Controller) toIdleLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.gen++
	c.state = Idle
	c.messageID = ""
	c.startedAt = time.Time{}
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{State: c.state, MessageID: c.messageID}
}

func (c *Controller) notify(s Snapshot) {
	if c.onChange != nil {
		c.onChange(s)
	}
}
