package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAcquireUnlimitedSession(t *testing.T) {
	t.Parallel()

	s := New("test", Config{})
	for i := 0; i < 10; i++ {
		release, err := s.Acquire(context.Background())
		require.NoError(t, err)
		release()
	}
}

func TestAcquireBlocksWhenSlotsExhausted(t *testing.T) {
	t.Parallel()

	s := New("test", Config{MaxInFlight: 1})

	release, err := s.Acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = s.Acquire(ctx)
	require.Error(t, err)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	release2, err := s.Acquire(context.Background())
	require.NoError(t, err)
	release2()
}

func TestAcquireRespectsRateLimit(t *testing.T) {
	t.Parallel()

	// 20 rps with burst 1: the third permit cannot arrive before ~100ms.
	s := New("test", Config{RequestsPerSecond: 20})

	start := time.Now()
	for i := 0; i < 3; i++ {
		release, err := s.Acquire(context.Background())
		require.NoError(t, err)
		release()
	}
	require.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestAcquireCanceledDuringRateWaitReleasesSlot(t *testing.T) {
	t.Parallel()

	s := New("test", Config{MaxInFlight: 1, RequestsPerSecond: 0.1})

	// Drain the single rate token.
	release, err := s.Acquire(context.Background())
	require.NoError(t, err)
	release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = s.Acquire(ctx)
	require.Error(t, err)

	// The slot must have been released on the failure path.
	select {
	case s.slots <- struct{}{}:
		<-s.slots
	default:
		t.Fatal("slot was not released after canceled rate wait")
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	t.Parallel()

	s := New("test", Config{MaxInFlight: 1})

	release, err := s.Acquire(context.Background())
	require.NoError(t, err)
	release()
	release()
	require.Len(t, s.slots, 0)

	// A stray extra release must not free a slot another request holds.
	held, err := s.Acquire(context.Background())
	require.NoError(t, err)
	release()
	require.Len(t, s.slots, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = s.Acquire(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	held()
	require.Len(t, s.slots, 0)
}

func TestName(t *testing.T) {
	t.Parallel()

	require.Equal(t, "netflix", New("netflix", Config{}).Name())
}
