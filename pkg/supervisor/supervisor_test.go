package supervisor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestRunStopsOnNilReturn(t *testing.T) {
	t.Parallel()

	calls := 0
	task := func(ctx context.Context) error {
		calls++
		return nil
	}

	h := Run(context.Background(), zerolog.Nop(), "t", time.Millisecond, task)
	require.Equal(t, 1, calls)
	require.Equal(t, int64(0), h.Restarts())
}

func TestRunRestartsOnErrorUntilItSucceeds(t *testing.T) {
	t.Parallel()

	calls := 0
	task := func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}

	h := Run(context.Background(), zerolog.Nop(), "t", time.Millisecond, task)
	require.Equal(t, 3, calls)
	require.Equal(t, int64(2), h.Restarts())
}

func TestRunStopsWhenContextIsDone(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	task := func(ctx context.Context) error {
		calls++
		return errors.New("would retry forever")
	}

	Run(ctx, zerolog.Nop(), "t", time.Millisecond, task)
	require.Equal(t, 0, calls)
}

func TestGoReturnsHandleObservingEventualRestarts(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := 0
	done := make(chan struct{})
	task := func(ctx context.Context) error {
		calls++
		if calls >= 2 {
			close(done)
			return nil
		}
		return errors.New("transient")
	}

	h := Go(ctx, zerolog.Nop(), "t", time.Millisecond, task)
	require.NotNil(t, h)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task never completed")
	}

	require.Eventually(t, func() bool {
		return h.Restarts() == 1
	}, time.Second, time.Millisecond)
}
