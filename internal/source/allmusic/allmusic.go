// Package allmusic scrapes the AllMusic featured new releases page.
package allmusic

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

const sourceName = "AllMusic Featured New Releases"

const maxReleases = 50

// pairPattern matches adjacent artist/album anchors; both groups are captured.
var pairPattern = regexp.MustCompile(`<a[^>]*>([^<]+)</a>[^<]*<a[^>]*href="[^"]*/album/[^"]*"[^>]*>([^<]+)</a>`)

var titlePatterns = []*regexp.Regexp{
	regexp.MustCompile(`<a[^>]*class="[^"]*title[^"]*"[^>]*>([^<]+)</a>`),
	regexp.MustCompile(`<h[1-6][^>]*class="[^"]*title[^"]*"[^>]*>([^<]+)</h[1-6]>`),
	regexp.MustCompile(`<a[^>]*href="[^"]*/album/[^"]*"[^>]*>([^<]+)</a>`),
	regexp.MustCompile(`<h[1-6][^>]*>([^<]+)</h[1-6]>`),
}

var bannedTitles = []string{"AllMusic", "New Releases", "Featured", "Browse"}

// Adapter implements source.Adapter for AllMusic.
type Adapter struct {
	client  *http.Client
	limiter *ratelimit.LimiterMap
	logger  *slog.Logger
	pageURL string
}

// New creates an AllMusic adapter for the given new-releases page URL.
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

// FetchReleases scrapes the featured releases page. Artist/album anchor
// pairs are preferred; bare title matches fall back to context extraction.
func (a *Adapter) FetchReleases(ctx context.Context) ([]source.RawRelease, error) {
	page, err := source.FetchHTML(ctx, a.client, a.limiter, a.pageURL)
	if err != nil {
		return nil, err
	}

	today := time.Now().UTC().Format(source.DateLayout)
	seen := make(map[string]bool)
	var releases []source.RawRelease

	add := func(title, artist string) bool {
		title = source.CleanText(title)
		if !source.ValidTitle(title, bannedTitles) {
			return false
		}
		key := strings.ToLower(title)
		if seen[key] {
			return false
		}
		seen[key] = true

		artist = source.CleanText(artist)
		if artist == "" {
			artist = source.UnknownArtist
		}
		releases = append(releases, source.RawRelease{
			Title:      title,
			Artist:     artist,
			ReviewDate: today,
			Genre:      "Unknown",
			SourceName: sourceName,
		})
		return len(releases) >= maxReleases
	}

	for _, m := range pairPattern.FindAllStringSubmatch(page, -1) {
		if add(m[2], m[1]) {
			return releases, nil
		}
	}

	for _, pattern := range titlePatterns {
		for _, m := range pattern.FindAllStringSubmatchIndex(page, -1) {
			title := page[m[2]:m[3]]
			artist := source.ArtistFromContext(source.Context(page, m[0], 300))
			if add(title, artist) {
				return releases, nil
			}
		}
	}

	a.logger.Debug("parsed listing", slog.Int("releases", len(releases)))
	return releases, nil
}
