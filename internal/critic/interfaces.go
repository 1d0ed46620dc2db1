package critic

import (
	"context"
	"errors"
	"time"

	"github.com/asibalo/netflix-critic/internal/react"
)

// ErrTitleNotFound is returned by TitleStore.GetTitle when no row exists
// for the identifier.
var ErrTitleNotFound = errors.New("title not found")

// TitleStore is the persistence gateway for enrichment output. SaveBatch
// applies the batch with conflict-ignore semantics per entity kind and
// commits atomically; an empty batch is a no-op.
type TitleStore interface {
	SaveBatch(ctx context.Context, batch EnrichmentBatch) error
	GetTitle(ctx context.Context, netflixID int) (StoredTitle, error)
}

// DetailFetcher retrieves one title page from the detail upstream.
type DetailFetcher interface {
	FetchTitlePage(ctx context.Context, netflixID int) (DetailPage, error)
}

// RatingsFetcher mines cross-vendor ratings for one identifier from the
// search upstream. It must skip the network entirely when the react
// context is empty and degrade to an empty slice on upstream failure.
type RatingsFetcher interface {
	LookupRatings(ctx context.Context, netflixID int, reactContext react.Value) []Rating
}

// Renderer re-fetches a page through a scripted browser.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

// Archiver writes raw artifacts and returns a URI.
type Archiver interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Publisher pushes batch-completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces job IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
