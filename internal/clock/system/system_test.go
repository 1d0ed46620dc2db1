package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNowIsUTC(t *testing.T) {
	t.Parallel()

	clk := New()
	got := clk.Now()

	require.Equal(t, time.UTC, got.Location(), "availability rows are stamped in UTC")
	require.WithinDuration(t, time.Now().UTC(), got, time.Second)
}

func TestNowNeverGoesBackwards(t *testing.T) {
	t.Parallel()

	clk := New()
	prev := clk.Now()
	for i := 0; i < 5; i++ {
		next := clk.Now()
		require.False(t, next.Before(prev))
		prev = next
	}
}
