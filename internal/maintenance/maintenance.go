// Package maintenance runs scheduled store compaction.
package maintenance

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/adhocore/gronx"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"toneai/pkg/logger"
	"toneai/pkg/store"
)

var (
	// ErrBusy is returned when a run is already in progress.
	ErrBusy    = errors.New("maintenance run already in progress")
	ErrStopped = errors.New("maintenance stopped")
)

// Target is the store surface a run needs.
type Target interface {
	Compact() error
	Stats() (store.Stats, error)
}

// Report summarizes one run.
type Report struct {
	RunID    string
	Duration time.Duration
	Stats    store.Stats
}

type Manager struct {
	cron   string
	target Target

	now   func() time.Time
	after func(time.Duration) <-chan time.Time

	mu      sync.Mutex
	running bool
	stopped bool
	runs    int
	cancel  context.CancelFunc
	// the schedule loop and any run in flight
	wg sync.WaitGroup
}

func New(cron string, target Target) (*Manager, error) {
	if !gronx.IsValid(cron) {
		return nil, fmt.Errorf("invalid maintenance cron %q", cron)
	}
	return &Manager{cron: cron, target: target, now: time.Now, after: time.After}, nil
}

// Start launches the schedule loop. Stop ends it.
func (m *Manager) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		cancel()
		return
	}
	m.cancel = cancel
	m.wg.Add(1)
	m.mu.Unlock()

	logger.Info("maintenance_enabled", "cron", m.cron)
	go func() {
		defer m.wg.Done()
		m.scheduleLoop(ctx)
	}()
}

// Stop ends the schedule loop, refuses new runs and waits for a run in
// flight to finish, or for ctx to end.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	m.stopped = true
	if m.cancel != nil {
		m.cancel()
	}
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		logger.Info("maintenance_stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("maintenance stop: %w", ctx.Err())
	}
}

// Runs returns how many runs completed.
func (m *Manager) Runs() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runs
}

func (m *Manager) scheduleLoop(ctx context.Context) {
	for {
		now := m.now()
		next, err := gronx.NextTickAfter(m.cron, now, false)
		if err != nil {
			logger.Error("maintenance_nexttick_failed", "cron", m.cron, "error", err)
			select {
			case <-m.after(30 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		select {
		case <-m.after(next.Sub(now)):
			if _, err := m.RunNow(); err != nil && !errors.Is(err, ErrBusy) && !errors.Is(err, ErrStopped) {
				logger.Error("maintenance_run_error", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// RunNow compacts the store and reports its size. Overlapping calls get
// ErrBusy, calls after Stop get ErrStopped.
func (m *Manager) RunNow() (Report, error) {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return Report{}, ErrStopped
	}
	if m.running {
		m.mu.Unlock()
		return Report{}, ErrBusy
	}
	m.running = true
	m.wg.Add(1)
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
		m.wg.Done()
	}()

	start := m.now()
	rep := Report{RunID: uuid.NewString()}
	logger.Info("maintenance_run_start", "run_id", rep.RunID)

	if err := m.target.Compact(); err != nil {
		return rep, fmt.Errorf("compact: %w", err)
	}
	st, err := m.target.Stats()
	if err != nil {
		return rep, fmt.Errorf("stats: %w", err)
	}
	rep.Stats = st
	rep.Duration = m.now().Sub(start)

	m.mu.Lock()
	m.runs++
	m.mu.Unlock()

	logger.Info("maintenance_run_done",
		"run_id", rep.RunID,
		"took", rep.Duration.String(),
		"contacts", humanize.Comma(int64(st.Contacts)),
		"users", humanize.Comma(int64(st.Users)),
		"messages", humanize.Comma(int64(st.Messages)),
	)
	return rep, nil
}
