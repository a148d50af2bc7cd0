package rate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGuardSerializesWaiters(t *testing.T) {
	t.Parallel()

	const interval = 30 * time.Millisecond
	g := NewGuard(interval)

	ctx := context.Background()
	require.NoError(t, g.Wait(ctx)) // first call never blocks

	start := time.Now()
	require.NoError(t, g.Wait(ctx))
	require.GreaterOrEqual(t, time.Since(start), interval-5*time.Millisecond)
}

func TestGuardRespectsContextCancellation(t *testing.T) {
	t.Parallel()

	g := NewGuard(time.Hour)
	require.NoError(t, g.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, g.Wait(ctx))
}
