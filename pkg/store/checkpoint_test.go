package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBucketsElapsedDaily(t *testing.T) {
	t.Parallel()

	since := time.Now().UTC().AddDate(0, 0, -5)
	require.Equal(t, uint32(5), bucketsElapsed(since, Daily))
}

func TestBucketsElapsedWeekly(t *testing.T) {
	t.Parallel()

	since := time.Now().UTC().AddDate(0, 0, -21)
	require.Equal(t, uint32(3), bucketsElapsed(since, Weekly))
}

func TestBucketsElapsedMonthly(t *testing.T) {
	t.Parallel()

	since := time.Now().UTC().AddDate(0, 0, -62)
	require.Equal(t, uint32(2), bucketsElapsed(since, Monthly))
}

func TestBucketsElapsedFutureSinceIsZero(t *testing.T) {
	t.Parallel()

	since := time.Now().UTC().AddDate(0, 0, 1)
	require.Equal(t, uint32(0), bucketsElapsed(since, Daily))
}

func TestAdvanceRoundTrip(t *testing.T) {
	t.Parallel()

	base := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	got := advance(base, Weekly, 2)
	require.Equal(t, time.Date(2020, time.January, 15, 0, 0, 0, 0, time.UTC), got)
}
