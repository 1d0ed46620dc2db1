package serp

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/asibalo/netflix-critic/internal/critic"
)

// Recognized rating vendors. Ratings are normalized to a 0-100 scale.
const (
	vendorIMDb           = "IMDb"
	vendorRottenTomatoes = "Rotten Tomatoes"
	vendorMetacritic     = "Metacritic"
	vendorGoogleUsers    = "Google users"
)

var (
	// e.g. "8.1/10" as rendered in a result snippet.
	imdbRatingRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*/\s*10`)
	// e.g. "93%".
	percentRatingRe = regexp.MustCompile(`(\d+)\s*%`)
	// e.g. "71/100".
	metacriticRatingRe = regexp.MustCompile(`(\d+)\s*/\s*100`)
	// e.g. "92% liked this movie" in the knowledge panel.
	googleUsersRe = regexp.MustCompile(`(\d+)% liked this (?:movie|film|TV show|show|series)`)
	// e.g. "12,345 ratings" or "1.2K reviews" near a vendor link.
	ratingsCountRe = regexp.MustCompile(`([\d,]+)\s+(?:ratings|reviews|votes)`)
)

// ParseRatings mines vendor ratings out of result-page HTML. The first
// occurrence per vendor wins; unparsable snippets are skipped. A page
// that fails to parse yields nil.
func ParseRatings(netflixID int, html string) []critic.Rating {
	if html == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	byVendor := map[string]critic.Rating{}

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		vendor, value, ok := vendorRating(href, s.Text())
		if !ok {
			return
		}
		if _, seen := byVendor[vendor]; seen {
			return
		}
		byVendor[vendor] = critic.Rating{
			NetflixID:    netflixID,
			Vendor:       vendor,
			URL:          href,
			Rating:       value,
			RatingsCount: ratingsCount(s.Text()),
		}
	})

	if m := googleUsersRe.FindStringSubmatch(doc.Text()); m != nil {
		if _, seen := byVendor[vendorGoogleUsers]; !seen {
			value, err := strconv.ParseFloat(m[1], 64)
			if err == nil {
				byVendor[vendorGoogleUsers] = critic.Rating{
					NetflixID: netflixID,
					Vendor:    vendorGoogleUsers,
					Rating:    value,
				}
			}
		}
	}

	if len(byVendor) == 0 {
		return nil
	}
	out := make([]critic.Rating, 0, len(byVendor))
	for _, vendor := range []string{vendorIMDb, vendorRottenTomatoes, vendorMetacritic, vendorGoogleUsers} {
		if r, ok := byVendor[vendor]; ok {
			out = append(out, r)
		}
	}
	return out
}

// vendorRating matches one anchor against the recognized vendor domains
// and extracts its normalized 0-100 rating from the anchor text.
func vendorRating(href, text string) (string, float64, bool) {
	switch {
	case strings.Contains(href, "imdb.com"):
		if m := imdbRatingRe.FindStringSubmatch(text); m != nil {
			value, err := strconv.ParseFloat(m[1], 64)
			if err == nil && value <= 10 {
				return vendorIMDb, value * 10, true
			}
		}
	case strings.Contains(href, "rottentomatoes.com"):
		if m := percentRatingRe.FindStringSubmatch(text); m != nil {
			value, err := strconv.ParseFloat(m[1], 64)
			if err == nil && value <= 100 {
				return vendorRottenTomatoes, value, true
			}
		}
	case strings.Contains(href, "metacritic.com"):
		if m := metacriticRatingRe.FindStringSubmatch(text); m != nil {
			value, err := strconv.ParseFloat(m[1], 64)
			if err == nil && value <= 100 {
				return vendorMetacritic, value, true
			}
		}
	}
	return "", 0, false
}

func ratingsCount(text string) int {
	m := ratingsCountRe.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
	if err != nil {
		return 0
	}
	return n
}
