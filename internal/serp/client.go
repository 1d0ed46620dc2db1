// Package serp mines cross-vendor ratings from search-engine result
// pages fetched through the Bright Data request API.
package serp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/asibalo/netflix-critic/internal/session"
	"github.com/asibalo/netflix-critic/internal/telemetry"
)

// resultParams are the fixed formatting parameters appended to every
// search URL: raw HTML embedded in the JSON response, US English, one
// deep page of results.
const resultParams = "&brd_json=html&gl=us&hl=en&num=100"

// Config controls the Bright Data client.
type Config struct {
	// APIURL is the request-API endpoint.
	APIURL string
	// Zone is the Bright Data zone the request is billed to.
	Zone string
	// Token is the bearer token.
	Token string
	// SearchBaseURL is the search-engine prefix queries are built on.
	SearchBaseURL string
	Timeout       time.Duration
}

type requestEnvelope struct {
	Zone   string `json:"zone"`
	URL    string `json:"url"`
	Format string `json:"format"`
}

type responseEnvelope struct {
	HTML string `json:"html"`
}

// Client POSTs search URLs to the Bright Data request API and returns
// the embedded result-page HTML. All calls go through the search
// upstream's admission-control session.
type Client struct {
	cfg    Config
	sess   *session.Session
	http   *http.Client
	logger *zap.Logger
}

// NewClient builds a Client.
func NewClient(cfg Config, sess *session.Session, logger *zap.Logger) *Client {
	if cfg.APIURL == "" {
		cfg.APIURL = "https://api.brightdata.com/request"
	}
	if cfg.Zone == "" {
		cfg.Zone = "serp_api1"
	}
	if cfg.SearchBaseURL == "" {
		cfg.SearchBaseURL = "https://www.google.com/search"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:    cfg,
		sess:   sess,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// BuildQueryURL assembles the search URL for one title. Absent metadata
// fields are simply omitted from the query.
func (c *Client) BuildQueryURL(title, contentType *string, releaseYear *int) string {
	var parts []string
	if title != nil && *title != "" {
		parts = append(parts, fmt.Sprintf("%q", *title))
	}
	if contentType != nil && *contentType != "" {
		parts = append(parts, *contentType)
	}
	if releaseYear != nil {
		parts = append(parts, fmt.Sprintf("(%d)", *releaseYear))
	}
	parts = append(parts, "reviews")
	query := url.QueryEscape(strings.Join(parts, " "))
	return c.cfg.SearchBaseURL + "?q=" + query + resultParams
}

// FetchResultPage retrieves the result-page HTML for searchURL. An empty
// response body means no content and yields an empty string, not an
// error.
func (c *Client) FetchResultPage(ctx context.Context, searchURL string) (string, error) {
	release, err := c.sess.Acquire(ctx)
	if err != nil {
		return "", err
	}
	defer release()

	body, err := json.Marshal(requestEnvelope{
		Zone:   c.cfg.Zone,
		URL:    searchURL,
		Format: "raw",
	})
	if err != nil {
		return "", fmt.Errorf("encode request envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("search upstream request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read search response: %w", err)
	}
	telemetry.ObserveUpstreamFetch(c.sess.Name(), resp.StatusCode, len(raw))

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("search upstream status %d", resp.StatusCode)
	}
	if len(raw) == 0 {
		return "", nil
	}

	var envelope responseEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return "", fmt.Errorf("decode search response: %w", err)
	}
	return envelope.HTML, nil
}
