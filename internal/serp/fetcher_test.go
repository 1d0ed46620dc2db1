package serp

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	archivememory "github.com/asibalo/netflix-critic/internal/archive/memory"
	"github.com/asibalo/netflix-critic/internal/react"
)

func metadata(t *testing.T, raw string) react.Value {
	t.Helper()
	v, err := react.Decode([]byte(raw))
	require.NoError(t, err)
	return v
}

func TestLookupRatingsSkipsNetworkOnEmptyMetadata(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_ = json.NewEncoder(w).Encode(responseEnvelope{HTML: resultPage})
	})
	f := NewFetcher(client, nil, zap.NewNop())

	require.Nil(t, f.LookupRatings(context.Background(), 100, react.EmptyObject()))
	require.Nil(t, f.LookupRatings(context.Background(), 100, react.Null()))
	require.Equal(t, int64(0), calls.Load(), "empty metadata must not spend quota")
}

func TestLookupRatingsParsesResultPage(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(responseEnvelope{HTML: resultPage})
	})
	f := NewFetcher(client, nil, zap.NewNop())

	ratings := f.LookupRatings(
		context.Background(),
		100,
		metadata(t, `{"title":"Breaking Bad","content_type":"tv series","release_year":2008}`),
	)
	require.Len(t, ratings, 4)
}

func TestLookupRatingsUpstreamFailureDegradesToEmpty(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	f := NewFetcher(client, nil, zap.NewNop())

	ratings := f.LookupRatings(context.Background(), 100, metadata(t, `{"title":"X"}`))
	require.Nil(t, ratings)
}

func TestLookupRatingsArchivesResultPage(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(responseEnvelope{HTML: resultPage})
	})
	archiver := archivememory.New()
	f := NewFetcher(client, archiver, zap.NewNop())

	f.LookupRatings(context.Background(), 100, metadata(t, `{"title":"X"}`))
	require.Equal(t, 1, archiver.Len())
}

func TestLookupRatingsNoContentPage(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	f := NewFetcher(client, nil, zap.NewNop())

	require.Nil(t, f.LookupRatings(context.Background(), 100, metadata(t, `{"title":"X"}`)))
}
