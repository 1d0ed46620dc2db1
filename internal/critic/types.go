// Package critic defines core types shared across subsystems.
package critic

import (
	"time"

	"github.com/asibalo/netflix-critic/internal/react"
)

// DetailPage is the outcome of one title-page fetch.
type DetailPage struct {
	NetflixID  int
	URL        string
	StatusCode int
	Body       []byte
	Duration   time.Duration
}

// Rating is one cross-vendor rating mined from a search results page.
type Rating struct {
	NetflixID    int     `json:"netflix_id"`
	Vendor       string  `json:"vendor"`
	URL          string  `json:"url"`
	Rating       float64 `json:"rating"`
	RatingsCount int     `json:"ratings_count"`
}

// EnrichedResult is the per-identifier stream unit. It exists for the
// duration of one orchestrator pass and is decomposed into Title,
// Availability and Rating rows when the stream ends.
type EnrichedResult struct {
	NetflixID    int         `json:"netflix_id"`
	ReactContext react.Value `json:"react_context"`
	Ratings      []Rating    `json:"ratings"`

	// Reachable reports whether the detail fetch returned an allow-set
	// status. Not part of the stream payload.
	Reachable bool `json:"-"`
}

// Title is the persisted metadata row for one Netflix identifier.
type Title struct {
	NetflixID   int         `json:"netflix_id"`
	Title       *string     `json:"title"`
	ContentType *string     `json:"content_type"`
	ReleaseYear *int        `json:"release_year"`
	Runtime     *int        `json:"runtime"`
	Metadata    react.Value `json:"meta_data"`
}

// Availability records whether a title page was reachable for a country
// during one enrichment batch.
type Availability struct {
	NetflixID          int       `json:"netflix_id"`
	Country            string    `json:"country"`
	TitlepageReachable bool      `json:"titlepage_reachable"`
	Available          bool      `json:"available"`
	CheckedAt          time.Time `json:"checked_at"`
}

// EnrichmentBatch accumulates the rows produced by one stream pass.
type EnrichmentBatch struct {
	Titles       []Title
	Availability []Availability
	Ratings      []Rating
}

// Empty reports whether the batch holds no rows at all.
func (b EnrichmentBatch) Empty() bool {
	return len(b.Titles) == 0 && len(b.Availability) == 0 && len(b.Ratings) == 0
}

// StoredTitle is the read-model returned by title lookups: the persisted
// Title joined with the "Google users" rating when one exists.
type StoredTitle struct {
	NetflixID         int      `json:"netflix_id"`
	Title             *string  `json:"title"`
	ContentType       *string  `json:"content_type"`
	ReleaseYear       *int     `json:"release_year"`
	Runtime           *int     `json:"runtime"`
	GoogleUsersRating *float64 `json:"google_users_rating"`
}
