// Package enrich runs the fan-out/fan-in enrichment pipeline: one task
// per identifier, units streamed in completion order, one idempotent
// persistence pass when the stream ends.
package enrich

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/asibalo/netflix-critic/internal/critic"
	"github.com/asibalo/netflix-critic/internal/react"
	"github.com/asibalo/netflix-critic/internal/stream"
	"github.com/asibalo/netflix-critic/internal/telemetry"
)

// Config controls one Orchestrator.
type Config struct {
	// Country stamped on Availability rows.
	Country string
	// PersistTimeout bounds the final persistence pass. The pass runs
	// on a fresh context so it survives stream cancellation.
	PersistTimeout time.Duration
	// KeepAliveInterval spaces the comment frames emitted while no
	// task has completed. 0 disables keep-alives.
	KeepAliveInterval time.Duration
	// CompletionTopic names the channel batch summaries are published
	// to. Empty disables publishing.
	CompletionTopic string
}

// Orchestrator drives the enrichment of one batch of identifiers.
type Orchestrator struct {
	cfg       Config
	fetcher   critic.DetailFetcher
	extractor *react.Extractor
	renderer  critic.Renderer
	ratings   critic.RatingsFetcher
	store     critic.TitleStore
	publisher critic.Publisher
	clock     critic.Clock
	logger    *zap.Logger
}

// New builds an Orchestrator. renderer and publisher may be nil.
func New(
	cfg Config,
	fetcher critic.DetailFetcher,
	extractor *react.Extractor,
	renderer critic.Renderer,
	ratings critic.RatingsFetcher,
	store critic.TitleStore,
	publisher critic.Publisher,
	clock critic.Clock,
	logger *zap.Logger,
) *Orchestrator {
	if cfg.Country == "" {
		cfg.Country = "US"
	}
	if cfg.PersistTimeout == 0 {
		cfg.PersistTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		cfg:       cfg,
		fetcher:   fetcher,
		extractor: extractor,
		renderer:  renderer,
		ratings:   ratings,
		store:     store,
		publisher: publisher,
		clock:     clock,
		logger:    logger,
	}
}

// Stream enriches every identifier concurrently and writes one event
// frame per identifier in completion order. Whatever happens to the
// stream (client gone, context canceled, encoder failure), the rows
// accumulated so far are persisted exactly once before Stream returns.
func (o *Orchestrator) Stream(ctx context.Context, jobID string, ids []int, enc *stream.Encoder) (err error) {
	telemetry.IncActiveStreams()
	defer telemetry.DecActiveStreams()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan critic.EnrichedResult)
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(netflixID int) {
			defer wg.Done()
			result := o.enrichOne(ctx, netflixID)
			select {
			case results <- result:
			case <-ctx.Done():
			}
		}(id)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	var batch critic.EnrichmentBatch
	defer func() {
		o.finalize(jobID, batch, err)
	}()

	var keepAlive <-chan time.Time
	if o.cfg.KeepAliveInterval > 0 {
		ticker := time.NewTicker(o.cfg.KeepAliveInterval)
		defer ticker.Stop()
		keepAlive = ticker.C
	}

	remaining := len(ids)
	for remaining > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-keepAlive:
			if err := enc.Comment("keep-alive"); err != nil {
				return err
			}
		case result := <-results:
			remaining--
			o.accumulate(&batch, result)
			if err := enc.Event(result); err != nil {
				return err
			}
			outcome := "enriched"
			if result.ReactContext.IsEmpty() {
				outcome = "empty"
			}
			telemetry.ObserveStreamUnit(outcome)
		}
	}
	return nil
}

// enrichOne runs the per-identifier pipeline: fetch detail, extract
// metadata, fetch ratings. Failures at any stage are contained here and
// produce an empty-but-present unit.
func (o *Orchestrator) enrichOne(ctx context.Context, netflixID int) critic.EnrichedResult {
	result := critic.EnrichedResult{
		NetflixID:    netflixID,
		ReactContext: react.EmptyObject(),
		Ratings:      []critic.Rating{},
	}

	page, err := o.fetcher.FetchTitlePage(ctx, netflixID)
	if err != nil {
		o.logger.Warn("title page fetch failed",
			zap.Int("netflix_id", netflixID),
			zap.Error(err))
		return result
	}
	result.Reachable = true

	result.ReactContext = o.extractor.Extract(page.Body)
	if result.ReactContext.IsEmpty() && o.renderer != nil && len(page.Body) > 0 {
		result.ReactContext = o.renderAndExtract(ctx, netflixID, page.URL)
	}

	if ratings := o.ratings.LookupRatings(ctx, netflixID, result.ReactContext); len(ratings) > 0 {
		result.Ratings = ratings
	}
	return result
}

// renderAndExtract retries extraction against a browser-rendered copy
// of the page. Some titles only embed their state after scripts run.
func (o *Orchestrator) renderAndExtract(ctx context.Context, netflixID int, url string) react.Value {
	html, err := o.renderer.Render(ctx, url)
	if err != nil {
		o.logger.Debug("headless render failed",
			zap.Int("netflix_id", netflixID),
			zap.Error(err))
		return react.EmptyObject()
	}
	return o.extractor.Extract([]byte(html))
}

// accumulate decomposes one unit into persistence rows. An Availability
// row is always recorded; a Title row only when metadata was extracted.
func (o *Orchestrator) accumulate(batch *critic.EnrichmentBatch, result critic.EnrichedResult) {
	if !result.ReactContext.IsEmpty() {
		batch.Titles = append(batch.Titles, critic.Title{
			NetflixID:   result.NetflixID,
			Title:       result.ReactContext.StringField("title"),
			ContentType: result.ReactContext.StringField("content_type"),
			ReleaseYear: result.ReactContext.IntField("release_year"),
			Runtime:     result.ReactContext.IntField("runtime"),
			Metadata:    result.ReactContext,
		})
	}
	batch.Availability = append(batch.Availability, critic.Availability{
		NetflixID:          result.NetflixID,
		Country:            o.cfg.Country,
		TitlepageReachable: result.Reachable,
		Available:          result.Reachable,
		CheckedAt:          o.clock.Now().UTC(),
	})
	batch.Ratings = append(batch.Ratings, result.Ratings...)
}

// finalize persists the accumulated rows and publishes the batch
// summary. It runs on a fresh context so that a canceled stream still
// gets its partial results saved.
func (o *Orchestrator) finalize(jobID string, batch critic.EnrichmentBatch, streamErr error) {
	status := "completed"
	if streamErr != nil {
		status = "canceled"
	}

	ctx, cancel := context.WithTimeout(context.Background(), o.cfg.PersistTimeout)
	defer cancel()

	if !batch.Empty() {
		if err := o.store.SaveBatch(ctx, batch); err != nil {
			o.logger.Error("persist enrichment batch failed",
				zap.String("job_id", jobID),
				zap.Error(err))
			status = "persist_failed"
		} else {
			telemetry.ObservePersistedRows("title", len(batch.Titles))
			telemetry.ObservePersistedRows("availability", len(batch.Availability))
			telemetry.ObservePersistedRows("rating", len(batch.Ratings))
		}
	}
	telemetry.ObserveBatch(status)

	o.publish(ctx, jobID, batch, status)

	o.logger.Info("enrichment batch finished",
		zap.String("job_id", jobID),
		zap.String("status", status),
		zap.Int("titles", len(batch.Titles)),
		zap.Int("availability", len(batch.Availability)),
		zap.Int("ratings", len(batch.Ratings)))
}

func (o *Orchestrator) publish(ctx context.Context, jobID string, batch critic.EnrichmentBatch, status string) {
	if o.publisher == nil || o.cfg.CompletionTopic == "" {
		return
	}
	payload := map[string]any{
		"job_id":       jobID,
		"status":       status,
		"titles":       len(batch.Titles),
		"availability": len(batch.Availability),
		"ratings":      len(batch.Ratings),
		"finished_at":  o.clock.Now().UTC().Format(time.RFC3339),
	}
	if _, err := o.publisher.Publish(ctx, o.cfg.CompletionTopic, payload); err != nil {
		o.logger.Warn("publish batch summary failed",
			zap.String("job_id", jobID),
			zap.Error(err))
	}
}
