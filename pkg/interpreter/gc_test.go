package interpreter_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rhino1998/minipy/pkg/interpreter"
	"github.com/rhino1998/minipy/pkg/memory"
	"github.com/stretchr/testify/require"
)

func TestCollect(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()
	s := newSession(t, interpreter.Config{})

	run(t, s, "a = [1, 2]", "1 + 2")

	var swept *memory.MarkSet
	s.Sweeper = func(ctx context.Context, table *memory.Table, marked *memory.MarkSet) error {
		swept = marked
		return nil
	}

	stats, err := s.Collect(ctx)
	r.NoError(err)

	r.Equal(8, stats.References)
	r.Equal(5, stats.Reachable)
	r.Equal(3, stats.Unreachable)
	r.Equal(s.Pool().Used(), stats.PoolUsed)
	r.Equal(interpreter.DefaultPoolSize, stats.PoolCapacity)

	r.NotNil(swept)
	a, err := s.Lookup("a")
	r.NoError(err)
	r.True(swept.Marked(a))
	r.False(swept.Marked(memory.RefID(7)))

	// marking never changes what the program sees
	r.Equal("[1.000000, 2.000000]", run(t, s, "a"))
}

func TestCollect_Cycle(t *testing.T) {
	r := require.New(t)
	s := newSession(t, interpreter.Config{})

	run(t, s, "d = {}", "d['self'] = d", "del d")

	stats, err := s.Collect(context.Background())
	r.NoError(err)
	r.Zero(stats.Reachable)
	r.Equal(stats.References, stats.Unreachable)
}

func TestCollect_SweeperError(t *testing.T) {
	s := newSession(t, interpreter.Config{})

	boom := errors.New("boom")
	s.Sweeper = func(context.Context, *memory.Table, *memory.MarkSet) error {
		return boom
	}

	_, err := s.Collect(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestCollect_Canceled(t *testing.T) {
	s := newSession(t, interpreter.Config{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Collect(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
