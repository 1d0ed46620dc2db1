package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	archivememory "github.com/asibalo/netflix-critic/internal/archive/memory"
	"github.com/asibalo/netflix-critic/internal/critic"
	"github.com/asibalo/netflix-critic/internal/session"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, archiver critic.Archiver) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(Config{
		BaseURL:   srv.URL + "/title",
		UserAgent: "critic-test",
		Timeout:   5 * time.Second,
	}, session.New("netflix", session.Config{}), archiver, zap.NewNop())
}

func TestFetchTitlePageOK(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/title/100", r.URL.Path)
		_, _ = w.Write([]byte("<html>title page</html>"))
	}, nil)

	page, err := client.FetchTitlePage(context.Background(), 100)
	require.NoError(t, err)
	require.Equal(t, 100, page.NetflixID)
	require.Equal(t, http.StatusOK, page.StatusCode)
	require.Contains(t, string(page.Body), "title page")
	require.Greater(t, page.Duration, time.Duration(0))
}

func TestFetchTitlePage404IsSuccess(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}, nil)

	page, err := client.FetchTitlePage(context.Background(), 200)
	require.NoError(t, err, "404 is a definitive answer, not a failure")
	require.Equal(t, http.StatusNotFound, page.StatusCode)
}

func TestFetchTitlePageServerErrorFails(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}, nil)

	_, err := client.FetchTitlePage(context.Background(), 300)
	require.Error(t, err)
	require.Contains(t, err.Error(), "500")
}

func TestFetchTitlePageArchivesBody(t *testing.T) {
	t.Parallel()

	archiver := archivememory.New()
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>archived</html>"))
	}, archiver)

	_, err := client.FetchTitlePage(context.Background(), 100)
	require.NoError(t, err)
	require.Equal(t, 1, archiver.Len())
}

func TestFetchTitlePageSendsUserAgent(t *testing.T) {
	t.Parallel()

	var agent string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		agent = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("ok"))
	}, nil)

	_, err := client.FetchTitlePage(context.Background(), 100)
	require.NoError(t, err)
	require.Equal(t, "critic-test", agent)
}

func TestFetchTitlePageContextCanceled(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(2 * time.Second)
		_, _ = w.Write([]byte("too late"))
	}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.FetchTitlePage(ctx, 100)
	require.Error(t, err)
}

func TestFetchTitlePageURLShape(t *testing.T) {
	t.Parallel()

	var gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte("ok"))
	}, nil)

	for _, id := range []int{1, 81040344} {
		_, err := client.FetchTitlePage(context.Background(), id)
		require.NoError(t, err)
		require.Equal(t, fmt.Sprintf("/title/%d", id), gotPath)
	}
	require.True(t, strings.HasSuffix(gotPath, "/81040344"))
}
