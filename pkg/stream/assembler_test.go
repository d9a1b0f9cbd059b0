package stream

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssemblerCompletesOnce(t *testing.T) {
	var partials []string
	var completions []string
	a := &Assembler{
		OnFragment: func(_, partial string) { partials = append(partials, partial) },
		OnComplete: func(full string) { completions = append(completions, full) },
	}
	src := &SliceSource{Fragments: []string{"Hel", "", "lo", " there"}}

	full, err := a.Consume(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, "Hello there", full)
	assert.Equal(t, []string{"Hel", "Hello", "Hello there"}, partials)
	assert.Equal(t, []string{"Hello there"}, completions)
	assert.Empty(t, a.Partial(), "buffer cleared after completion")
	assert.True(t, src.Closed())
}

func TestAssemblerIsSinglePass(t *testing.T) {
	completed := 0
	a := &Assembler{OnComplete: func(string) { completed++ }}
	_, err := a.Consume(context.Background(), &SliceSource{Fragments: []string{"a"}})
	require.NoError(t, err)

	_, err = a.Consume(context.Background(), &SliceSource{Fragments: []string{"b"}})
	assert.ErrorIs(t, err, ErrAlreadyConsumed)
	assert.Equal(t, 1, completed)
}

func TestAssemblerInterruptedDiscardsPartial(t *testing.T) {
	completed := false
	a := &Assembler{OnComplete: func(string) { completed = true }}
	src := &SliceSource{Fragments: []string{"half a "}, FailWith: errors.New("connection reset")}

	full, err := a.Consume(context.Background(), src)
	assert.ErrorIs(t, err, ErrStreamInterrupted)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Empty(t, full)
	assert.Empty(t, a.Partial())
	assert.False(t, completed)
	assert.True(t, src.Closed())
}

func TestAssemblerContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	seen := 0
	a := &Assembler{
		OnFragment: func(string, string) {
			seen++
			cancel()
		},
		OnComplete: func(string) { t.Fatal("must not complete") },
	}
	_, err := a.Consume(ctx, &SliceSource{Fragments: []string{"one", "two", "three"}})
	assert.ErrorIs(t, err, ErrStreamInterrupted)
	assert.Equal(t, 1, seen)
}

func TestAssemblerEmptyStream(t *testing.T) {
	var got *string
	a := &Assembler{OnComplete: func(full string) { got = &full }}
	full, err := a.Consume(context.Background(), &SliceSource{})
	require.NoError(t, err)
	assert.Equal(t, "", full)
	require.NotNil(t, got)
}
