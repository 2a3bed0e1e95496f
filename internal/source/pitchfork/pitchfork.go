// Package pitchfork scrapes Pitchfork's Best New Albums and Best New
// Reissues listings.
package pitchfork

import (
	"context"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/spingrid/spingrid/internal/ratelimit"
	"github.com/spingrid/spingrid/internal/source"
)

const maxReleases = 30

// Titles appear in several markup shapes depending on the page revision.
var titlePatterns = []*regexp.Regexp{
	regexp.MustCompile(`<h[1-6][^>]*>([^<]+)</h[1-6]>`),
	regexp.MustCompile(`<a[^>]*class="[^"]*title[^"]*"[^>]*>([^<]+)</a>`),
	regexp.MustCompile(`<span[^>]*class="[^"]*title[^"]*"[^>]*>([^<]+)</span>`),
}

// Site navigation text the title patterns pick up.
var bannedTitles = []string{"Pitchfork", "Best New", "Reviews", "Albums"}

// Adapter implements source.Adapter for one Pitchfork listing page.
type Adapter struct {
	client  *http.Client
	limiter *ratelimit.LimiterMap
	logger  *slog.Logger
	name    string
	pageURL string
}

// New creates a Pitchfork adapter. The same adapter type backs both the
// Best New Albums and Best New Reissues sources; they differ only in name
// and page URL.
func New(name, pageURL string, limiter *ratelimit.LimiterMap, logger *slog.Logger) *Adapter {
	return &Adapter{
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: limiter,
		logger:  logger.With(slog.String("source", name)),
		name:    name,
		pageURL: pageURL,
	}
}

// Name returns the source name used for provenance.
func (a *Adapter) Name() string { return a.name }

// FetchReleases scrapes the listing page for album titles and nearby
// artist credits.
func (a *Adapter) FetchReleases(ctx context.Context) ([]source.RawRelease, error) {
	page, err := source.FetchHTML(ctx, a.client, a.limiter, a.pageURL)
	if err != nil {
		return nil, err
	}

	today := time.Now().UTC().Format(source.DateLayout)
	seen := make(map[string]bool)
	var releases []source.RawRelease

	for _, pattern := range titlePatterns {
		for _, m := range pattern.FindAllStringSubmatchIndex(page, -1) {
			title := source.CleanText(page[m[2]:m[3]])
			if !source.ValidTitle(title, bannedTitles) {
				continue
			}
			key := strings.ToLower(title)
			if seen[key] {
				continue
			}
			seen[key] = true

			artist := source.ArtistFromContext(source.Context(page, m[0], 300))
			releases = append(releases, source.RawRelease{
				Title:      title,
				Artist:     artist,
				ReviewDate: today,
				Genre:      "Unknown",
				SourceName: a.name,
			})
			if len(releases) >= maxReleases {
				return releases, nil
			}
		}
	}

	a.logger.Debug("parsed listing", slog.Int("releases", len(releases)))
	return releases, nil
}
