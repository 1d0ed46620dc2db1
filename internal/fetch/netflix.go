// Package fetch implements the Netflix title-page fetcher using gocolly.
package fetch

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/asibalo/netflix-critic/internal/critic"
	"github.com/asibalo/netflix-critic/internal/session"
	"github.com/asibalo/netflix-critic/internal/telemetry"
)

// allowedStatuses are detail-page responses treated as successful
// fetches. A 404 is a definitive answer about a title (it does not
// exist in this region), not a transport failure.
var allowedStatuses = map[int]struct{}{
	http.StatusOK:               {},
	http.StatusMovedPermanently: {},
	http.StatusFound:            {},
	http.StatusNotFound:         {},
}

// Config controls the title-page collector.
type Config struct {
	// BaseURL is the title-page prefix; the Netflix identifier is
	// appended to it.
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// Client fetches Netflix title pages through a shared admission-control
// session. Every fetched body is archived best-effort before the page
// is returned.
type Client struct {
	cfg           Config
	sess          *session.Session
	archiver      critic.Archiver
	logger        *zap.Logger
	baseCollector *colly.Collector
}

// NewClient builds a Client. archiver may be nil to disable archiving.
func NewClient(cfg Config, sess *session.Session, archiver critic.Archiver, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://www.netflix.com/title"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := colly.NewCollector(
		colly.Async(false),
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
	)
	// Non-2xx pages still flow through OnResponse; a 404 body is a
	// definitive answer, not a transport failure.
	c.ParseHTTPErrorResponse = true
	c.WithTransport(newHTTPTransport())

	return &Client{
		cfg:           cfg,
		sess:          sess,
		archiver:      archiver,
		logger:        logger,
		baseCollector: c,
	}
}

// FetchTitlePage retrieves the detail page for one Netflix identifier.
// Any status in the allow set is a successful fetch; everything else is
// an error.
func (c *Client) FetchTitlePage(ctx context.Context, netflixID int) (critic.DetailPage, error) {
	release, err := c.sess.Acquire(ctx)
	if err != nil {
		return critic.DetailPage{}, err
	}
	defer release()

	url := fmt.Sprintf("%s/%d", c.cfg.BaseURL, netflixID)
	page := critic.DetailPage{NetflixID: netflixID, URL: url}
	start := time.Now()

	collector := c.buildCollector(&page, start)
	if err := c.runCollector(ctx, collector, url, &page); err != nil {
		return critic.DetailPage{}, err
	}

	telemetry.ObserveUpstreamFetch(c.sess.Name(), page.StatusCode, len(page.Body))
	c.archive(ctx, page)
	return page, nil
}

func (c *Client) buildCollector(page *critic.DetailPage, start time.Time) *colly.Collector {
	collector := c.baseCollector.Clone()
	if c.cfg.UserAgent != "" {
		collector.UserAgent = c.cfg.UserAgent
	}
	collector.SetRequestTimeout(c.cfg.Timeout)

	collector.OnResponse(func(r *colly.Response) {
		page.URL = r.Request.URL.String()
		page.StatusCode = r.StatusCode
		page.Body = append([]byte(nil), r.Body...)
		page.Duration = time.Since(start)
	})

	return collector
}

func (c *Client) runCollector(ctx context.Context, collector *colly.Collector, url string, page *critic.DetailPage) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("title page fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("title page fetch %s: %w", url, err)
		}
		if _, ok := allowedStatuses[page.StatusCode]; !ok {
			telemetry.ObserveUpstreamFetch(c.sess.Name(), page.StatusCode, 0)
			return fmt.Errorf("title page fetch %s: unexpected status %d", url, page.StatusCode)
		}
		return nil
	}
}

// archive writes the raw body to the archiver. Failures are logged and
// swallowed; archiving never blocks enrichment.
func (c *Client) archive(ctx context.Context, page critic.DetailPage) {
	if c.archiver == nil || len(page.Body) == 0 {
		return
	}
	path := fmt.Sprintf("titles/%d/%d.html", page.NetflixID, time.Now().UTC().UnixNano())
	uri, err := c.archiver.PutObject(ctx, path, "text/html; charset=utf-8", page.Body)
	if err != nil {
		c.logger.Warn("archive title page failed",
			zap.Int("netflix_id", page.NetflixID),
			zap.Error(err))
		return
	}
	c.logger.Debug("archived title page",
		zap.Int("netflix_id", page.NetflixID),
		zap.String("uri", uri))
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
