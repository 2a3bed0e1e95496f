// Package curated loads the hand-maintained album list that supplements
// the scraped feed. The file is YAML and is hot-reloaded on change, so an
// editor can fix an entry without a restart.
package curated

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/spingrid/spingrid/internal/album"
	"github.com/spingrid/spingrid/internal/event"
)

// Entry is one hand-curated album.
type Entry struct {
	ID           string   `yaml:"id"`
	Title        string   `yaml:"title"`
	ArtistCredit string   `yaml:"artist"`
	Label        string   `yaml:"label"`
	ReleaseDate  string   `yaml:"releaseDate"`
	Regions      []string `yaml:"regions"`
	Genres       []string `yaml:"genres"`
	IsReissue    bool     `yaml:"isReissue"`
	PrimaryType  string   `yaml:"primaryType"`
	CoverURL     string   `yaml:"coverUrl"`
	WeeklyScore  int      `yaml:"weeklyScore"`
	TrackCount   int      `yaml:"trackCount"`
}

type listFile struct {
	Albums []Entry `yaml:"albums"`
}

// Service holds the current snapshot of the curated list.
type Service struct {
	path     string
	bus      *event.Bus
	logger   *slog.Logger
	debounce time.Duration

	mu      sync.RWMutex
	entries []Entry
}

// NewService creates a curated list service. A missing file is not an
// error; the list is simply empty until one appears.
func NewService(path string, bus *event.Bus, logger *slog.Logger) *Service {
	return &Service{
		path:     path,
		bus:      bus,
		logger:   logger.With(slog.String("component", "curated")),
		debounce: 500 * time.Millisecond,
	}
}

// SetDebounce overrides the reload debounce interval (for testing).
func (s *Service) SetDebounce(d time.Duration) {
	s.debounce = d
}

// Load reads the list from disk. A broken or missing file keeps the last
// good snapshot so a half-saved edit never blanks the feed.
func (s *Service) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("reading curated list: %w", err)
	}

	var file listFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing curated list: %w", err)
	}

	valid := file.Albums[:0]
	for _, e := range file.Albums {
		if e.ID == "" || e.Title == "" {
			s.logger.Warn("skipping curated entry without id or title", slog.String("title", e.Title))
			continue
		}
		valid = append(valid, e)
	}

	s.mu.Lock()
	s.entries = valid
	s.mu.Unlock()

	s.logger.Info("curated list loaded", slog.Int("albums", len(valid)))
	return nil
}

// Albums returns the current snapshot as canonical album values.
func (s *Service) Albums() []*album.CanonicalAlbum {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*album.CanonicalAlbum, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.toAlbum())
	}
	return out
}

func (e Entry) toAlbum() *album.CanonicalAlbum {
	primaryType := e.PrimaryType
	if primaryType == "" {
		primaryType = "Album"
	}
	coverURL := e.CoverURL
	if coverURL == "" {
		coverURL = "/placeholder.svg"
	}
	score := e.WeeklyScore
	if score == 0 {
		score = 75
	}

	return &album.CanonicalAlbum{
		ID:           e.ID,
		Title:        e.Title,
		ArtistCredit: e.ArtistCredit,
		Label:        e.Label,
		ReleaseDate:  e.ReleaseDate,
		Regions:      e.Regions,
		Genres:       e.Genres,
		IsReissue:    e.IsReissue,
		PrimaryType:  primaryType,
		CoverURL:     coverURL,
		WeeklyScore:  score,
		TrackCount:   e.TrackCount,
		SourceTags:   []string{"Curated"},
		SourceCount:  1,
	}
}

// Watch blocks until ctx is canceled, reloading the list when the file
// changes. Editors replace files with rename/create sequences, so the
// watch is on the parent directory with events filtered by name.
func (s *Service) Watch(ctx context.Context) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		s.logger.Warn("fsnotify unavailable, curated list will not hot-reload", slog.String("error", err.Error()))
		<-ctx.Done()
		return
	}
	defer w.Close() //nolint:errcheck

	dir := filepath.Dir(s.path)
	if err := w.Add(dir); err != nil {
		s.logger.Warn("watching curated list directory failed", slog.String("dir", dir), slog.String("error", err.Error()))
		<-ctx.Done()
		return
	}

	debounceTimer := time.NewTimer(0)
	if !debounceTimer.Stop() {
		<-debounceTimer.C
	}
	reloadPending := false

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(s.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if !reloadPending {
				reloadPending = true
			}
			debounceTimer.Reset(s.debounce)

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			s.logger.Warn("curated list watch error", slog.String("error", err.Error()))

		case <-debounceTimer.C:
			if !reloadPending {
				continue
			}
			reloadPending = false
			if err := s.Load(); err != nil {
				s.logger.Warn("curated list reload failed, keeping previous snapshot",
					slog.String("error", err.Error()))
				continue
			}
			s.bus.Publish(event.Event{Type: event.CuratedReload, Data: map[string]any{
				"albums": len(s.Albums()),
			}})
		}
	}
}
