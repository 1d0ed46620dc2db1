package serp

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/asibalo/netflix-critic/internal/critic"
	"github.com/asibalo/netflix-critic/internal/react"
)

// Fetcher implements critic.RatingsFetcher on top of the Bright Data
// client: build a query from extracted metadata, fetch the result page,
// parse ratings. Every failure degrades to an empty slice; ratings are
// enrichment garnish, never a reason to fail a title.
type Fetcher struct {
	client   *Client
	archiver critic.Archiver
	logger   *zap.Logger
}

// NewFetcher builds a Fetcher. archiver may be nil to disable archiving
// of result pages.
func NewFetcher(client *Client, archiver critic.Archiver, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{client: client, archiver: archiver, logger: logger}
}

// LookupRatings mines ratings for one identifier. When the react context
// is empty there is nothing to build a query from, so the search
// upstream is never called.
func (f *Fetcher) LookupRatings(ctx context.Context, netflixID int, reactContext react.Value) []critic.Rating {
	if reactContext.IsEmpty() {
		return nil
	}

	searchURL := f.client.BuildQueryURL(
		reactContext.StringField("title"),
		reactContext.StringField("content_type"),
		reactContext.IntField("release_year"),
	)

	html, err := f.client.FetchResultPage(ctx, searchURL)
	if err != nil {
		f.logger.Warn("ratings lookup failed",
			zap.Int("netflix_id", netflixID),
			zap.Error(err))
		return nil
	}
	if html == "" {
		return nil
	}

	f.archive(ctx, netflixID, html)
	return ParseRatings(netflixID, html)
}

func (f *Fetcher) archive(ctx context.Context, netflixID int, html string) {
	if f.archiver == nil {
		return
	}
	path := fmt.Sprintf("serp/%d/%d.html", netflixID, time.Now().UTC().UnixNano())
	if _, err := f.archiver.PutObject(ctx, path, "text/html; charset=utf-8", []byte(html)); err != nil {
		f.logger.Warn("archive result page failed",
			zap.Int("netflix_id", netflixID),
			zap.Error(err))
	}
}
