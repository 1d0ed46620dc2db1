package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/asibalo/netflix-critic/internal/critic"
)

func strPtr(s string) *string { return &s }

func TestSaveBatchFirstWriteWins(t *testing.T) {
	t.Parallel()

	store := NewTitleStore()

	first := critic.EnrichmentBatch{
		Titles: []critic.Title{{NetflixID: 100, Title: strPtr("first")}},
		Availability: []critic.Availability{{
			NetflixID: 100,
			Country:   "US",
			Available: true,
			CheckedAt: time.Unix(1700000000, 0).UTC(),
		}},
		Ratings: []critic.Rating{{NetflixID: 100, Vendor: "IMDb", Rating: 80}},
	}
	second := critic.EnrichmentBatch{
		Titles: []critic.Title{{NetflixID: 100, Title: strPtr("second")}},
		Availability: []critic.Availability{{
			NetflixID: 100,
			Country:   "US",
			Available: false,
		}},
		Ratings: []critic.Rating{{NetflixID: 100, Vendor: "IMDb", Rating: 10}},
	}

	require.NoError(t, store.SaveBatch(context.Background(), first))
	require.NoError(t, store.SaveBatch(context.Background(), second))

	titles, availability, ratings := store.Counts()
	require.Equal(t, 1, titles)
	require.Equal(t, 1, availability)
	require.Equal(t, 1, ratings)

	stored, err := store.GetTitle(context.Background(), 100)
	require.NoError(t, err)
	require.Equal(t, "first", *stored.Title)

	row, ok := store.Availability(100, "US")
	require.True(t, ok)
	require.True(t, row.Available, "the original row survives conflicting writes")
}

func TestSaveBatchDistinctKeysAccumulate(t *testing.T) {
	t.Parallel()

	store := NewTitleStore()
	batch := critic.EnrichmentBatch{
		Availability: []critic.Availability{
			{NetflixID: 100, Country: "US"},
			{NetflixID: 100, Country: "DE"},
		},
		Ratings: []critic.Rating{
			{NetflixID: 100, Vendor: "IMDb", Rating: 80},
			{NetflixID: 100, Vendor: "Metacritic", Rating: 75},
		},
	}
	require.NoError(t, store.SaveBatch(context.Background(), batch))

	_, availability, ratings := store.Counts()
	require.Equal(t, 2, availability)
	require.Equal(t, 2, ratings)
}

func TestGetTitleJoinsGoogleUsersRating(t *testing.T) {
	t.Parallel()

	store := NewTitleStore()
	batch := critic.EnrichmentBatch{
		Titles: []critic.Title{{NetflixID: 100, Title: strPtr("X")}},
		Ratings: []critic.Rating{
			{NetflixID: 100, Vendor: "IMDb", Rating: 80},
			{NetflixID: 100, Vendor: "Google users", Rating: 94},
		},
	}
	require.NoError(t, store.SaveBatch(context.Background(), batch))

	stored, err := store.GetTitle(context.Background(), 100)
	require.NoError(t, err)
	require.NotNil(t, stored.GoogleUsersRating)
	require.InDelta(t, 94.0, *stored.GoogleUsersRating, 1e-9)
}

func TestGetTitleWithoutGoogleRating(t *testing.T) {
	t.Parallel()

	store := NewTitleStore()
	require.NoError(t, store.SaveBatch(context.Background(), critic.EnrichmentBatch{
		Titles: []critic.Title{{NetflixID: 100, Title: strPtr("X")}},
	}))

	stored, err := store.GetTitle(context.Background(), 100)
	require.NoError(t, err)
	require.Nil(t, stored.GoogleUsersRating)
}

func TestGetTitleNotFound(t *testing.T) {
	t.Parallel()

	store := NewTitleStore()
	_, err := store.GetTitle(context.Background(), 999)
	require.ErrorIs(t, err, critic.ErrTitleNotFound)
}
