package serp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/asibalo/netflix-critic/internal/session"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewClient(Config{
		APIURL: srv.URL,
		Zone:   "serp_api1",
		Token:  "secret-token",
	}, session.New("brightdata", session.Config{}), zap.NewNop())
	return client, srv
}

func TestBuildQueryURL(t *testing.T) {
	t.Parallel()

	c := NewClient(Config{}, session.New("brightdata", session.Config{}), zap.NewNop())

	title := "XO, Kitty"
	contentType := "tv series"
	year := 2023
	got := c.BuildQueryURL(&title, &contentType, &year)

	require.Contains(t, got, "https://www.google.com/search?q=")
	require.Contains(t, got, "%22XO%2C+Kitty%22")
	require.Contains(t, got, "%282023%29")
	require.Contains(t, got, "reviews")
	require.Contains(t, got, "&brd_json=html&gl=us&hl=en&num=100")
}

func TestBuildQueryURLOmitsAbsentFields(t *testing.T) {
	t.Parallel()

	c := NewClient(Config{}, session.New("brightdata", session.Config{}), zap.NewNop())

	title := "Back in Action"
	got := c.BuildQueryURL(&title, nil, nil)
	require.Contains(t, got, "%22Back+in+Action%22+reviews")
	require.NotContains(t, got, "%28")
}

func TestFetchResultPageSendsEnvelope(t *testing.T) {
	t.Parallel()

	var received requestEnvelope
	var authHeader string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		_ = json.NewEncoder(w).Encode(responseEnvelope{HTML: "<html>hi</html>"})
	})

	html, err := client.FetchResultPage(context.Background(), "https://www.google.com/search?q=x")
	require.NoError(t, err)
	require.Equal(t, "<html>hi</html>", html)
	require.Equal(t, "Bearer secret-token", authHeader)
	require.Equal(t, "serp_api1", received.Zone)
	require.Equal(t, "raw", received.Format)
	require.Equal(t, "https://www.google.com/search?q=x", received.URL)
}

func TestFetchResultPageEmptyBodyMeansNoContent(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	html, err := client.FetchResultPage(context.Background(), "https://example.com")
	require.NoError(t, err)
	require.Empty(t, html)
}

func TestFetchResultPageNon200IsError(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota exceeded", http.StatusPaymentRequired)
	})

	_, err := client.FetchResultPage(context.Background(), "https://example.com")
	require.Error(t, err)
	require.Contains(t, err.Error(), "402")
}

func TestFetchResultPageMalformedJSONIsError(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json"))
	})

	_, err := client.FetchResultPage(context.Background(), "https://example.com")
	require.Error(t, err)
}
