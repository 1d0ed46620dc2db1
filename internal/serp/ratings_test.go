package serp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const resultPage = `<!doctype html>
<html><body>
<div id="search">
  <div class="g">
    <a href="https://www.imdb.com/title/tt0903747/">Breaking Bad - IMDb 9.5/10 1,234 ratings</a>
  </div>
  <div class="g">
    <a href="https://www.rottentomatoes.com/tv/breaking_bad">Breaking Bad | Rotten Tomatoes 96%</a>
  </div>
  <div class="g">
    <a href="https://www.metacritic.com/tv/breaking-bad">Breaking Bad Reviews - Metacritic 87/100</a>
  </div>
  <div class="g">
    <a href="https://www.imdb.com/title/tt0000000/">Another IMDb hit 6.0/10</a>
  </div>
  <div class="kp">94% liked this TV show</div>
</div>
</body></html>`

func TestParseRatingsRecognizedVendors(t *testing.T) {
	t.Parallel()

	ratings := ParseRatings(100, resultPage)
	require.Len(t, ratings, 4)

	byVendor := map[string]float64{}
	for _, r := range ratings {
		require.Equal(t, 100, r.NetflixID)
		byVendor[r.Vendor] = r.Rating
	}

	require.InDelta(t, 95, byVendor["IMDb"], 1e-9, "IMDb x/10 normalizes to 0-100")
	require.InDelta(t, 96, byVendor["Rotten Tomatoes"], 1e-9)
	require.InDelta(t, 87, byVendor["Metacritic"], 1e-9)
	require.InDelta(t, 94, byVendor["Google users"], 1e-9)
}

func TestParseRatingsFirstPerVendorWins(t *testing.T) {
	t.Parallel()

	ratings := ParseRatings(100, resultPage)
	for _, r := range ratings {
		if r.Vendor == "IMDb" {
			require.InDelta(t, 95, r.Rating, 1e-9, "second IMDb anchor must not override")
		}
	}
}

func TestParseRatingsCapturesRatingsCount(t *testing.T) {
	t.Parallel()

	ratings := ParseRatings(100, resultPage)
	for _, r := range ratings {
		if r.Vendor == "IMDb" {
			require.Equal(t, 1234, r.RatingsCount)
		}
	}
}

func TestParseRatingsNoVendors(t *testing.T) {
	t.Parallel()

	require.Nil(t, ParseRatings(100, `<html><body><a href="https://example.com">nothing</a></body></html>`))
	require.Nil(t, ParseRatings(100, ""))
}

func TestParseRatingsIgnoresUnparsableSnippets(t *testing.T) {
	t.Parallel()

	html := `<html><body>
<a href="https://www.imdb.com/title/tt1/">no score here</a>
<a href="https://www.rottentomatoes.com/m/x">88%</a>
</body></html>`

	ratings := ParseRatings(7, html)
	require.Len(t, ratings, 1)
	require.Equal(t, "Rotten Tomatoes", ratings[0].Vendor)
	require.Equal(t, "https://www.rottentomatoes.com/m/x", ratings[0].URL)
}
