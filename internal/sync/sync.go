// Package sync orchestrates the full pipeline run: harvest critic sources,
// reconcile, enrich, and persist verified albums. One run at a time.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	gosync "sync"
	"time"

	"github.com/spingrid/spingrid/internal/album"
	"github.com/spingrid/spingrid/internal/event"
	"github.com/spingrid/spingrid/internal/musicbrainz"
	"github.com/spingrid/spingrid/internal/reconcile"
	"github.com/spingrid/spingrid/internal/score"
)

// ErrAlreadyRunning is returned when a sync is requested while one is in
// flight. The caller gets an immediate rejection, not a queue slot.
var ErrAlreadyRunning = errors.New("sync already running")

// staleAfter is how old the newest album may be before NeedsSync fires.
const staleAfter = 24 * time.Hour

// defaultIncrementalLimit bounds an incremental run. Incremental sync is
// a bounded full run today; the sources expose no change feed to diff
// against.
const defaultIncrementalLimit = 50

// Feeder produces enriched candidates from the scraping pipeline.
type Feeder interface {
	CuratedFeed(ctx context.Context, limit int) []reconcile.Candidate
}

// Store is the persistence surface sync writes to.
type Store interface {
	Upsert(ctx context.Context, a *album.CanonicalAlbum) error
	UpsertArtist(ctx context.Context, a *album.Artist) error
	UpsertCoverArt(ctx context.Context, c *album.CoverArt) error
	Stats(ctx context.Context) (*album.Stats, error)
}

// ArtistFetcher resolves artist metadata for satellite records.
type ArtistFetcher interface {
	GetArtist(ctx context.Context, mbid string) (*musicbrainz.Artist, error)
}

// Status is a point-in-time snapshot of the orchestrator.
type Status struct {
	Running      bool       `json:"isRunning"`
	LastSyncTime *time.Time `json:"lastSyncTime,omitempty"`
}

// Result summarizes one completed run.
type Result struct {
	Processed int           `json:"processed"`
	Skipped   int           `json:"skipped"`
	Errors    int           `json:"errors"`
	Duration  time.Duration `json:"-"`
}

// Service runs syncs.
type Service struct {
	feeder           Feeder
	store            Store
	artists          ArtistFetcher
	bus              *event.Bus
	logger           *slog.Logger
	now              func() time.Time
	incrementalLimit int

	mu       gosync.Mutex
	running  bool
	lastSync *time.Time
}

// NewService creates a sync orchestrator.
func NewService(feeder Feeder, store Store, artists ArtistFetcher, bus *event.Bus, logger *slog.Logger) *Service {
	return &Service{
		feeder:           feeder,
		store:            store,
		artists:          artists,
		bus:              bus,
		logger:           logger.With(slog.String("component", "sync")),
		now:              time.Now,
		incrementalLimit: defaultIncrementalLimit,
	}
}

// SetIncrementalLimit overrides how many candidates an incremental run
// processes. Non-positive values are ignored.
func (s *Service) SetIncrementalLimit(n int) {
	if n > 0 {
		s.incrementalLimit = n
	}
}

// Full runs a complete sync of up to limit albums. A second caller gets
// ErrAlreadyRunning while one is in flight. The last sync time advances
// only when the run finishes without a fatal error.
func (s *Service) Full(ctx context.Context, limit int) (*Result, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	start := s.now()
	s.logger.Info("sync started", slog.Int("limit", limit))
	s.bus.Publish(event.Event{Type: event.SyncStarted, Data: map[string]any{"limit": limit}})

	candidates := s.feeder.CuratedFeed(ctx, limit)

	result := &Result{}
	for i := range candidates {
		if err := ctx.Err(); err != nil {
			s.bus.Publish(event.Event{Type: event.SyncFailed, Data: map[string]any{"error": err.Error()}})
			return result, fmt.Errorf("sync aborted: %w", err)
		}

		c := &candidates[i]
		if !c.Resolved() {
			s.logger.Debug("skipping unverified release",
				slog.String("title", c.Title), slog.String("artist", c.Artist))
			result.Skipped++
			continue
		}

		if err := s.processCandidate(ctx, c); err != nil {
			s.logger.Error("processing release failed",
				slog.String("title", c.Title), slog.String("error", err.Error()))
			result.Errors++
			continue
		}
		result.Processed++
	}

	finished := s.now()
	result.Duration = finished.Sub(start)

	s.mu.Lock()
	s.lastSync = &finished
	s.mu.Unlock()

	s.logger.Info("sync completed",
		slog.Int("processed", result.Processed),
		slog.Int("skipped", result.Skipped),
		slog.Int("errors", result.Errors),
		slog.Duration("duration", result.Duration))
	s.bus.Publish(event.Event{Type: event.SyncCompleted, Data: map[string]any{
		"processed": result.Processed,
		"skipped":   result.Skipped,
		"errors":    result.Errors,
	}})
	return result, nil
}

// Incremental runs a bounded sync. See defaultIncrementalLimit.
func (s *Service) Incremental(ctx context.Context) (*Result, error) {
	return s.Full(ctx, s.incrementalLimit)
}

// processCandidate persists one resolved candidate. The album row is the
// only hard requirement; cover art and artist satellites are best-effort.
func (s *Service) processCandidate(ctx context.Context, c *reconcile.Candidate) error {
	release := c.Release

	coverURL := c.CoverURL
	if coverURL == "" {
		coverURL = "/placeholder.svg"
	}
	if coverURL != "/placeholder.svg" {
		if err := s.store.UpsertCoverArt(ctx, &album.CoverArt{
			AlbumID: release.ID,
			URL:     coverURL,
			Source:  "lookup chain",
		}); err != nil {
			s.logger.Warn("storing cover art failed",
				slog.String("album", release.ID), slog.String("error", err.Error()))
		}
	}

	a := s.buildAlbum(c, coverURL)
	if err := s.store.Upsert(ctx, a); err != nil {
		return fmt.Errorf("storing album: %w", err)
	}
	s.bus.Publish(event.Event{Type: event.AlbumStored, Data: map[string]any{
		"id":    a.ID,
		"title": a.Title,
	}})

	if artistID := release.PrimaryArtistID(); artistID != "" {
		s.storeArtist(ctx, artistID)
	}
	return nil
}

// buildAlbum maps a resolved candidate onto the canonical row.
func (s *Service) buildAlbum(c *reconcile.Candidate, coverURL string) *album.CanonicalAlbum {
	a := AlbumFromRelease(c.Release, coverURL, c.ReviewDate, c.Genre, s.now())
	a.SourceTags = c.Sources
	a.SourceCount = c.SourceCount
	return a
}

// AlbumFromRelease maps a resolved release onto the canonical album
// shape. reviewDate and scrapedGenre are fallbacks for fields the release
// lacks; both may be empty when there is no scrape context, as on the
// search path.
func AlbumFromRelease(release *musicbrainz.Release, coverURL, reviewDate, scrapedGenre string, now time.Time) *album.CanonicalAlbum {
	releaseDate := release.Date
	if releaseDate == "" {
		releaseDate = reviewDate
	}

	genres := release.Genres()
	if len(genres) == 0 && scrapedGenre != "" && scrapedGenre != "Unknown" {
		genres = []string{scrapedGenre}
	}

	var regions []string
	if release.Country != "" {
		regions = []string{release.Country}
	}

	primaryType := release.ReleaseGroup.PrimaryType
	if primaryType == "" {
		primaryType = "Album"
	}

	var barcode *string
	if release.Barcode != "" {
		barcode = &release.Barcode
	}

	return &album.CanonicalAlbum{
		ID:              release.ID,
		ReleaseGroupID:  release.ReleaseGroup.ID,
		Title:           release.Title,
		PrimaryArtistID: release.PrimaryArtistID(),
		ArtistCredit:    release.ArtistPhrase(),
		Label:           release.LabelName(),
		ReleaseDate:     releaseDate,
		Regions:         regions,
		Genres:          genres,
		IsReissue:       release.IsReissue(),
		PrimaryType:     primaryType,
		CoverURL:        coverURL,
		WeeklyScore:     score.SyncScore(releaseDate, now, primaryType, release.TrackCount(), genres),
		TrackCount:      release.TrackCount(),
		Barcode:         barcode,
		LastUpdated:     now.UTC(),
	}
}

// storeArtist fetches and persists the primary artist. Failures are
// logged and swallowed; the album row already landed.
func (s *Service) storeArtist(ctx context.Context, mbid string) {
	artist, err := s.artists.GetArtist(ctx, mbid)
	if err != nil {
		s.logger.Warn("fetching artist failed",
			slog.String("artist", mbid), slog.String("error", err.Error()))
		return
	}

	tags := make([]string, 0, len(artist.Tags))
	for _, t := range artist.Tags {
		if t.Name != "" {
			tags = append(tags, t.Name)
		}
	}

	if err := s.store.UpsertArtist(ctx, &album.Artist{
		ID:         artist.ID,
		Name:       artist.Name,
		BioExcerpt: strings.Join(tags, ", "),
		Tags:       tags,
	}); err != nil {
		s.logger.Warn("storing artist failed",
			slog.String("artist", mbid), slog.String("error", err.Error()))
	}
}

// Status reports whether a sync is running and when the last one finished.
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{Running: s.running, LastSyncTime: s.lastSync}
}

// NeedsSync reports whether the store is empty or stale.
func (s *Service) NeedsSync(ctx context.Context) (bool, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return false, fmt.Errorf("reading store stats: %w", err)
	}
	if stats.Albums == 0 {
		return true, nil
	}
	if stats.LastUpdated == nil {
		return true, nil
	}
	return s.now().Sub(*stats.LastUpdated) > staleAfter, nil
}
