package jobs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddDeduplicatesAcrossJobs(t *testing.T) {
	t.Parallel()

	store := NewStore()

	accepted := store.Add("job-1", []int{100, 200, 100, 300})
	require.Equal(t, []int{100, 200, 300}, accepted, "within-payload duplicates drop")

	accepted = store.Add("job-2", []int{200, 400})
	require.Equal(t, []int{400}, accepted, "identifiers claimed by earlier jobs drop")

	ids, ok := store.Get("job-2")
	require.True(t, ok)
	require.Equal(t, []int{400}, ids)
}

func TestAddEmptyPayloadStillCreatesJob(t *testing.T) {
	t.Parallel()

	store := NewStore()
	accepted := store.Add("job-1", []int{100})
	require.Equal(t, []int{100}, accepted)

	accepted = store.Add("job-2", []int{100})
	require.Empty(t, accepted)

	ids, ok := store.Get("job-2")
	require.True(t, ok, "a fully-deduplicated job is still registered")
	require.Empty(t, ids)
}

func TestGetUnknownJob(t *testing.T) {
	t.Parallel()

	store := NewStore()
	_, ok := store.Get("missing")
	require.False(t, ok)
}

func TestGetReturnsCopy(t *testing.T) {
	t.Parallel()

	store := NewStore()
	store.Add("job-1", []int{100, 200})

	ids, ok := store.Get("job-1")
	require.True(t, ok)
	ids[0] = 999

	again, _ := store.Get("job-1")
	require.Equal(t, []int{100, 200}, again)
}

func TestSeen(t *testing.T) {
	t.Parallel()

	store := NewStore()
	store.Add("job-1", []int{100})
	require.True(t, store.Seen(100))
	require.False(t, store.Seen(200))
}

func TestAddAppendsToExistingJob(t *testing.T) {
	t.Parallel()

	store := NewStore()
	store.Add("job-1", []int{100})
	store.Add("job-1", []int{200})

	ids, ok := store.Get("job-1")
	require.True(t, ok)
	require.Equal(t, []int{100, 200}, ids)
}
