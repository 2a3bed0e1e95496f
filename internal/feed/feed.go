// Package feed assembles the paginated album feed from the persisted
// store plus the hand-curated supplement.
package feed

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/spingrid/spingrid/internal/album"
	"github.com/spingrid/spingrid/internal/musicbrainz"
)

// ErrInvalidCursor is returned when a pagination token cannot be decoded.
var ErrInvalidCursor = errors.New("invalid cursor")

const defaultLimit = 25

// weeksShown is how many release weeks the week picker offers.
const weeksShown = 4

// Store is the persisted album surface the assembler reads.
type Store interface {
	ListAll(ctx context.Context) ([]*album.CanonicalAlbum, error)
	Count(ctx context.Context) (int, error)
}

// CuratedSource supplies the hand-curated supplement.
type CuratedSource interface {
	Albums() []*album.CanonicalAlbum
}

// Query is a parsed feed request. All filters AND together.
type Query struct {
	Week            string
	Genres          []string
	Regions         []string
	Formats         []string
	ExcludeReissues bool
	Limit           int
	Cursor          string
}

// Filters lists the filter values present in the unfiltered pool.
type Filters struct {
	AvailableGenres  []string `json:"availableGenres"`
	AvailableWeeks   []string `json:"availableWeeks"`
	AvailableRegions []string `json:"availableRegions"`
}

// Response is one page of the feed.
type Response struct {
	Items      []*album.CanonicalAlbum `json:"items"`
	NextCursor string                  `json:"nextCursor,omitempty"`
	TotalCount int                     `json:"totalCount"`
	Filters    Filters                 `json:"filters"`
}

// cursor is the opaque pagination token, base64-encoded JSON.
type cursor struct {
	Week   string `json:"week"`
	Offset int    `json:"offset"`
}

// Assembler builds feed pages.
type Assembler struct {
	store   Store
	curated CuratedSource
	logger  *slog.Logger
	now     func() time.Time
}

// NewAssembler creates a feed assembler.
func NewAssembler(store Store, curated CuratedSource, logger *slog.Logger) *Assembler {
	return &Assembler{
		store:   store,
		curated: curated,
		logger:  logger.With(slog.String("component", "feed")),
		now:     time.Now,
	}
}

// Assemble builds one page. Curated entries whose id already exists in
// the store are dropped so an album never appears twice.
func (a *Assembler) Assemble(ctx context.Context, q Query) (*Response, error) {
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}

	offset := 0
	if q.Cursor != "" {
		c, err := decodeCursor(q.Cursor)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
		}
		offset = c.Offset
		if q.Week == "" {
			q.Week = c.Week
		}
	}

	now := a.now()

	persisted, err := a.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing albums: %w", err)
	}

	persistedIDs := make(map[string]bool, len(persisted))
	for _, al := range persisted {
		persistedIDs[al.ID] = true
	}

	pool := make([]*album.CanonicalAlbum, 0, len(persisted))
	pool = append(pool, persisted...)

	uniqueCurated := 0
	for _, al := range a.curated.Albums() {
		if persistedIDs[al.ID] {
			continue
		}
		pool = append(pool, al)
		uniqueCurated++
	}

	filtered := make([]*album.CanonicalAlbum, 0, len(pool))
	for _, al := range pool {
		if matches(al, q) {
			filtered = append(filtered, al)
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].WeeklyScore > filtered[j].WeeklyScore
	})

	persistedCount, err := a.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting albums: %w", err)
	}

	end := offset + q.Limit
	var items []*album.CanonicalAlbum
	switch {
	case offset >= len(filtered):
		items = []*album.CanonicalAlbum{}
	case end > len(filtered):
		items = filtered[offset:]
	default:
		items = filtered[offset:end]
	}

	resp := &Response{
		Items:      items,
		TotalCount: persistedCount + uniqueCurated,
		Filters:    availableFilters(pool, now),
	}
	// The cursor carries the requested week, empty included, so later
	// pages see exactly the filter the first page saw.
	if len(filtered) > end {
		resp.NextCursor = encodeCursor(cursor{Week: q.Week, Offset: end})
	}
	return resp, nil
}

// matches applies the AND-combined overlap filters.
func matches(al *album.CanonicalAlbum, q Query) bool {
	if len(q.Genres) > 0 && !overlaps(al.Genres, q.Genres) {
		return false
	}
	if len(q.Regions) > 0 && !overlaps(al.Regions, q.Regions) {
		return false
	}
	if len(q.Formats) > 0 && !contains(q.Formats, al.PrimaryType) {
		return false
	}
	if q.ExcludeReissues && al.IsReissue {
		return false
	}
	if q.Week != "" && releaseWeek(al.ReleaseDate) != q.Week {
		return false
	}
	return true
}

// releaseWeek maps a release date onto its Friday-anchored week. Dates
// that do not parse belong to no week and only show up unfiltered.
func releaseWeek(releaseDate string) string {
	t, err := time.Parse("2006-01-02", releaseDate)
	if err != nil {
		return ""
	}
	return musicbrainz.CurrentWeekFriday(t)
}

func availableFilters(pool []*album.CanonicalAlbum, now time.Time) Filters {
	genres := make(map[string]bool)
	regions := make(map[string]bool)
	for _, al := range pool {
		for _, g := range al.Genres {
			genres[g] = true
		}
		for _, r := range al.Regions {
			regions[r] = true
		}
	}

	weeks := make([]string, 0, weeksShown)
	weeks = append(weeks, musicbrainz.CurrentWeekFriday(now))
	for i := 1; i < weeksShown; i++ {
		weeks = append(weeks, musicbrainz.PreviousWeekFriday(now, i))
	}

	return Filters{
		AvailableGenres:  sortedKeys(genres),
		AvailableWeeks:   weeks,
		AvailableRegions: sortedKeys(regions),
	}
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func overlaps(have, want []string) bool {
	for _, w := range want {
		if contains(have, w) {
			return true
		}
	}
	return false
}

func contains(values []string, v string) bool {
	for _, val := range values {
		if val == v {
			return true
		}
	}
	return false
}

func encodeCursor(c cursor) string {
	data, _ := json.Marshal(c) //nolint:errcheck // struct of two scalar fields
	return base64.StdEncoding.EncodeToString(data)
}

func decodeCursor(s string) (cursor, error) {
	var c cursor
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return c, err
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return c, err
	}
	if c.Offset < 0 {
		return c, fmt.Errorf("negative offset")
	}
	return c, nil
}
