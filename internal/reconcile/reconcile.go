// Package reconcile merges raw releases observed by multiple sources into
// deduplicated candidates and enriches the strongest of them against
// MusicBrainz.
package reconcile

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/spingrid/spingrid/internal/musicbrainz"
	"github.com/spingrid/spingrid/internal/score"
	"github.com/spingrid/spingrid/internal/source"
)

// enrichConcurrency bounds in-flight MusicBrainz resolutions. The client
// is rate limited anyway; this just keeps a big batch from queueing
// hundreds of goroutines.
const enrichConcurrency = 3

// Candidate is a deduplicated release observation, possibly enriched with
// a resolved MusicBrainz release.
type Candidate struct {
	Title       string
	Artist      string
	ReviewDate  string
	Genre       string
	Sources     []string
	SourceCount int
	Score       int
	CoverURL    string
	Release     *musicbrainz.Release
}

// Resolved reports whether the candidate was verified against MusicBrainz.
// Only resolved candidates are eligible for persistence.
func (c *Candidate) Resolved() bool { return c.Release != nil }

// MergeKey is the identity under which observations from different
// sources collapse. Case and surrounding whitespace are ignored;
// punctuation is deliberately significant.
func MergeKey(title, artist string) string {
	return strings.ToLower(strings.TrimSpace(title)) + "|" + strings.ToLower(strings.TrimSpace(artist))
}

// Merge deduplicates raw releases by title/artist identity. The first
// observation of an album wins its display fields; each source counts at
// most once no matter how often it reported the album. The result is
// ordered by source count descending, ties keeping first-observation
// order, so the output is independent of which source happened to be
// scraped first.
func Merge(raw []source.RawRelease) []Candidate {
	index := make(map[string]int)
	var candidates []Candidate

	for _, r := range raw {
		key := MergeKey(r.Title, r.Artist)

		i, ok := index[key]
		if !ok {
			index[key] = len(candidates)
			candidates = append(candidates, Candidate{
				Title:      strings.TrimSpace(r.Title),
				Artist:     strings.TrimSpace(r.Artist),
				ReviewDate: r.ReviewDate,
				Genre:      r.Genre,
				Sources:    []string{r.SourceName},
			})
			continue
		}

		c := &candidates[i]
		if !containsSource(c.Sources, r.SourceName) {
			c.Sources = append(c.Sources, r.SourceName)
		}
	}

	for i := range candidates {
		candidates[i].SourceCount = len(candidates[i].Sources)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].SourceCount > candidates[j].SourceCount
	})
	return candidates
}

func containsSource(sources []string, name string) bool {
	for _, s := range sources {
		if s == name {
			return true
		}
	}
	return false
}

// Resolver verifies a title/artist pair against MusicBrainz.
type Resolver interface {
	ResolveRelease(ctx context.Context, title, artist string) (*musicbrainz.Release, error)
}

// CoverFinder locates artwork for an album.
type CoverFinder interface {
	Lookup(ctx context.Context, title, artist, releaseID string) string
}

// Harvester produces raw releases from all registered sources.
type Harvester interface {
	Harvest(ctx context.Context) []source.RawRelease
}

// Engine ties harvesting, merging, and enrichment together.
type Engine struct {
	harvester Harvester
	resolver  Resolver
	covers    CoverFinder
	logger    *slog.Logger
	now       func() time.Time
}

// NewEngine creates a reconciliation engine.
func NewEngine(h Harvester, r Resolver, c CoverFinder, logger *slog.Logger) *Engine {
	return &Engine{
		harvester: h,
		resolver:  r,
		covers:    c,
		logger:    logger.With(slog.String("component", "reconcile")),
		now:       time.Now,
	}
}

// CuratedFeed harvests all sources, merges the observations, and enriches
// up to limit candidates. Enrichment failures are tolerated: a candidate
// that cannot be resolved still appears in the result, unresolved, so the
// feed reflects what the critics said even when MusicBrainz disagrees.
func (e *Engine) CuratedFeed(ctx context.Context, limit int) []Candidate {
	raw := e.harvester.Harvest(ctx)
	if len(raw) == 0 {
		e.logger.Warn("no releases harvested from any source")
		return nil
	}

	candidates := Merge(raw)
	e.logger.Info("merged releases",
		slog.Int("raw", len(raw)),
		slog.Int("unique", len(candidates)))

	if limit > len(candidates) {
		limit = len(candidates)
	}
	candidates = candidates[:limit]

	e.enrich(ctx, candidates)

	now := e.now()
	for i := range candidates {
		candidates[i].Score = score.FeedScore(candidates[i].ReviewDate, now)
	}
	return candidates
}

// enrich resolves candidates against MusicBrainz and attaches cover art
// and a genre where resolution succeeds. Each candidate writes only its
// own slot, so the bounded goroutines need no further coordination.
func (e *Engine) enrich(ctx context.Context, candidates []Candidate) {
	var g errgroup.Group
	g.SetLimit(enrichConcurrency)

	for i := range candidates {
		g.Go(func() error {
			c := &candidates[i]

			release, err := e.resolver.ResolveRelease(ctx, c.Title, c.Artist)
			if err != nil {
				e.logger.Debug("enrichment miss",
					slog.String("title", c.Title),
					slog.String("artist", c.Artist),
					slog.String("error", err.Error()))
				return nil
			}

			c.Release = release
			if genres := release.Genres(); len(genres) > 0 {
				c.Genre = genres[0]
			}
			c.CoverURL = e.covers.Lookup(ctx, c.Title, c.Artist, release.ID)
			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // enrichment goroutines never return errors
}
