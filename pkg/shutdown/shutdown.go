// Package shutdown handles process signals, ordered teardown and fatal
// startup aborts.
package shutdown

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"toneai/pkg/logger"
)

// Step is one named teardown action.
type Step struct {
	Name string
	Fn   func(context.Context) error
}

// Run executes steps in order. A failing step is logged and does not stop
// the later ones; all failures are returned joined.
func Run(ctx context.Context, steps ...Step) error {
	logger.Info("shutdown_requested", "steps", len(steps))
	var errs []error
	for _, s := range steps {
		if s.Fn == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
			logger.Error("shutdown_step_skipped", "step", s.Name, "error", err)
			continue
		}
		logger.Info("shutdown_step", "step", s.Name)
		if err := s.Fn(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
			logger.Error("shutdown_step_failed", "step", s.Name, "error", err)
		}
	}
	logger.Info("shutdown_complete")
	return errors.Join(errs...)
}

// SetupSignalHandler installs handlers for SIGINT/SIGTERM and SIGPIPE and
// returns a cancellable context. The returned context is cancelled when any
// of the watched signals arrives.
func SetupSignalHandler(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	// handle interrupt/terminate for graceful shutdown
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	// watch for SIGPIPE and dump goroutine stacks to aid diagnostics
	sigpipe := make(chan os.Signal, 1)
	signal.Notify(sigpipe, syscall.SIGPIPE)

	go func() {
		defer signal.Stop(sigc)
		defer signal.Stop(sigpipe)
		select {
		case s := <-sigc:
			logger.Info("signal_received", "signal", s.String(), "msg", "shutdown requested")
		case s := <-sigpipe:
			logger.Info("signal_received", "signal", s.String(), "msg", "SIGPIPE - dumping goroutine stacks")
			logger.Info("goroutine_stack_dump", "dump", stacks())
		case <-ctx.Done():
		}
		cancel()
	}()

	return ctx, cancel
}

// Abort logs a fatal startup error, writes a crash dump next to the
// database and exits with status 2.
func Abort(contextMsg string, err error, dbPath string) {
	logger.Error("startup_fatal", "msg", contextMsg, "error", err)
	path, derr := WriteCrashDump(dbPath, contextMsg, err)
	if derr != nil {
		logger.Error("crash_dump_failed", "error", derr)
		fmt.Fprintf(os.Stderr, "FAILED TO WRITE CRASH DUMP: %v\n", derr)
	} else {
		fmt.Fprintf(os.Stderr, "CRASH DUMP WRITTEN: %s\n", path)
	}
	fmt.Fprintf(os.Stderr, "%s: %v\n", contextMsg, err)
	logger.Sync()
	os.Exit(2)
}

// WriteCrashDump writes reason, error and all goroutine stacks to
// <dbPath>/crash/crash-<unixnano>.log and returns the file path.
func WriteCrashDump(dbPath, reason string, err error) (string, error) {
	dir := "./crash"
	if dbPath != "" {
		dir = filepath.Join(dbPath, "crash")
	}
	if e := os.MkdirAll(dir, 0o700); e != nil {
		return "", fmt.Errorf("create crash dir: %w", e)
	}

	now := time.Now()
	errText := "<nil>"
	if err != nil {
		errText = err.Error()
	}
	body := fmt.Sprintf("time: %s\nreason: %s\nerror: %s\ncmd: %v\n\n%s",
		now.UTC().Format(time.RFC3339Nano), reason, errText, os.Args, stacks())

	// renamed into place once fully written
	f, e := os.CreateTemp(dir, ".crash-*.tmp")
	if e != nil {
		return "", fmt.Errorf("create temp crash file: %w", e)
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()
	if _, e := f.WriteString(body); e != nil {
		_ = f.Close()
		return "", e
	}
	if e := f.Close(); e != nil {
		return "", e
	}
	path := filepath.Join(dir, fmt.Sprintf("crash-%d.log", now.UnixNano()))
	if e := os.Rename(tmp, path); e != nil {
		return "", e
	}
	return path, nil
}

func stacks() string {
	buf := make([]byte, 1<<20)
	n := runtime.Stack(buf, true)
	return string(buf[:n])
}
