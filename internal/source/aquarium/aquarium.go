// Package aquarium scrapes Aquarium Drunkard's On The Turntable posts.
package aquarium

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

const sourceName = "Aquarium Drunkard On The Turntable"

const maxReleases = 20

var titlePatterns = []*regexp.Regexp{
	regexp.MustCompile(`<a[^>]*class="[^"]*entry-title[^"]*"[^>]*>([^<]+)</a>`),
	regexp.MustCompile(`<h2[^>]*class="[^"]*entry-title[^"]*"[^>]*>([^<]+)</h2>`),
	regexp.MustCompile(`<h[1-6][^>]*>([^<]+)</h[1-6]>`),
}

var bannedTitles = []string{"Aquarium Drunkard"}

// Adapter implements source.Adapter for Aquarium Drunkard.
type Adapter struct {
	client  *http.Client
	limiter *ratelimit.LimiterMap
	logger  *slog.Logger
	pageURL string
}

// New creates an Aquarium Drunkard adapter for the given front page URL.
func New(pageURL string, limiter *ratelimit.LimiterMap, logger *slog.Logger) *Adapter {
	return &Adapter{
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: limiter,
		logger:  logger.With(slog.String("source", sourceName)),
		pageURL: pageURL,
	}
}

// Name returns the source name used for provenance.
func (a *Adapter) Name() string { return sourceName }

// FetchReleases extracts post titles. The site rarely carries a structured
// artist credit, so many entries come back with an unknown artist and only
// survive reconciliation when corroborated elsewhere.
func (a *Adapter) FetchReleases(ctx context.Context) ([]source.RawRelease, error) {
	page, err := source.FetchHTML(ctx, a.client, a.limiter, a.pageURL)
	if err != nil {
		return nil, err
	}

	today := time.Now().UTC().Format(source.DateLayout)
	seen := make(map[string]bool)
	var releases []source.RawRelease

	for _, pattern := range titlePatterns {
		for _, m := range pattern.FindAllStringSubmatch(page, -1) {
			title := source.CleanText(m[1])
			if !source.ValidTitle(title, bannedTitles) {
				continue
			}
			key := strings.ToLower(title)
			if seen[key] {
				continue
			}
			seen[key] = true

			releases = append(releases, source.RawRelease{
				Title:      title,
				Artist:     source.UnknownArtist,
				ReviewDate: today,
				Genre:      "Unknown",
				SourceName: sourceName,
			})
			if len(releases) >= maxReleases {
				return releases, nil
			}
		}
	}

	a.logger.Debug("parsed listing", slog.Int("releases", len(releases)))
	return releases, nil
}
