// Package stereogum scrapes Stereogum's Heavy Rotation posts.
package stereogum

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

const sourceName = "Stereogum Heavy Rotation"

const maxReleases = 20

// Heavy Rotation posts list albums in <strong> or <em> tags using the
// pattern "Artist – Album".
var pairPatterns = []*regexp.Regexp{
	regexp.MustCompile(`<strong>\s*([^<]+?)\s*[–-]\s*([^<]+?)\s*</strong>`),
	regexp.MustCompile(`<em>\s*([^<]+?)\s*[–-]\s*([^<]+?)\s*</em>`),
}

// Adapter implements source.Adapter for Stereogum.
type Adapter struct {
	client  *http.Client
	limiter *ratelimit.LimiterMap
	logger  *slog.Logger
	pageURL string
}

// New creates a Stereogum adapter for the given heavy-rotation page URL.
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

// FetchReleases extracts artist/album pairs from emphasis tags.
func (a *Adapter) FetchReleases(ctx context.Context) ([]source.RawRelease, error) {
	page, err := source.FetchHTML(ctx, a.client, a.limiter, a.pageURL)
	if err != nil {
		return nil, err
	}

	today := time.Now().UTC().Format(source.DateLayout)
	seen := make(map[string]bool)
	var releases []source.RawRelease

	for _, pattern := range pairPatterns {
		for _, m := range pattern.FindAllStringSubmatch(page, -1) {
			artist := source.CleanText(m[1])
			title := source.CleanText(m[2])
			if artist == "" || !source.ValidTitle(title, nil) {
				continue
			}
			key := strings.ToLower(artist + "-" + title)
			if seen[key] {
				continue
			}
			seen[key] = true

			releases = append(releases, source.RawRelease{
				Title:      title,
				Artist:     artist,
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
