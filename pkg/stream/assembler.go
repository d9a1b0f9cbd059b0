// Package stream folds an incremental text stream into one finished reply.
package stream

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	ErrStreamInterrupted = errors.New("stream interrupted")
	ErrAlreadyConsumed   = errors.New("stream already consumed")
)

// Source is a single-pass sequence of text fragments. It matches the shape
// of SDK stream readers: advance with Next, read with Current, then check Err.
type Source interface {
	Next() bool
	Current() string
	Err() error
	Close() error
}

// Assembler accumulates fragments into an in-progress buffer.
//
// OnFragment sees each fragment together with the partial text so far, for
// live rendering. OnComplete fires exactly once with the full text when the
// source ends cleanly. On failure the partial buffer is dropped and neither
// OnComplete nor any later fragment callback runs.
type Assembler struct {
	OnFragment func(fragment, partial string)
	OnComplete func(full string)

	mu       sync.Mutex
	consumed bool
	buf      strings.Builder
}

// Consume drains src front to back. An Assembler consumes one source only.
func (a *Assembler) Consume(ctx context.Context, src Source) (string, error) {
	a.mu.Lock()
	if a.consumed {
		a.mu.Unlock()
		return "", ErrAlreadyConsumed
	}
	a.consumed = true
	a.mu.Unlock()

	defer src.Close()

	for src.Next() {
		if err := ctx.Err(); err != nil {
			a.reset()
			return "", fmt.Errorf("%w: %v", ErrStreamInterrupted, err)
		}
		frag := src.Current()
		if frag == "" {
			continue
		}
		a.mu.Lock()
		a.buf.WriteString(frag)
		partial := a.buf.String()
		a.mu.Unlock()
		if a.OnFragment != nil {
			a.OnFragment(frag, partial)
		}
	}
	if err := src.Err(); err != nil {
		a.reset()
		return "", fmt.Errorf("%w: %v", ErrStreamInterrupted, err)
	}
	if err := ctx.Err(); err != nil {
		a.reset()
		return "", fmt.Errorf("%w: %v", ErrStreamInterrupted, err)
	}

	a.mu.Lock()
	full := a.buf.String()
	a.buf.Reset()
	a.mu.Unlock()
	if a.OnComplete != nil {
		a.OnComplete(full)
	}
	return full, nil
}

// Partial returns the text accumulated so far.
func (a *Assembler) Partial() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.buf.String()
}

func (a *Assembler) reset() {
	a.mu.Lock()
	a.buf.Reset()
	a.mu.Unlock()
}

// SliceSource replays fixed fragments, optionally failing after them.
type SliceSource struct {
	Fragments []string
	// FailWith is returned by Err once the fragments are exhausted.
	FailWith error

	i      int
	cur    string
	closed bool
}

func (s *SliceSource) Next() bool {
	if s.closed || s.i >= len(s.Fragments) {
		return false
	}
	s.cur = s.Fragments[s.i]
	s.i++
	return true
}

func (s *SliceSource) Current() string { return s.cur }

func (s *SliceSource) Err() error {
	if s.i >= len(s.Fragments) {
		return s.FailWith
	}
	return nil
}

func (s *SliceSource) Close() error {
	s.closed = true
	return nil
}

func (s *SliceSource) Closed() bool { return s.closed }
