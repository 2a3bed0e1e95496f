package curated

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spingrid/spingrid/internal/event"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const goodList = `albums:
  - id: curated-1
    title: Blue Rev
    artist: Alvvays
    label: Polyvinyl
    releaseDate: "2026-08-21"
    regions: [CA]
    genres: [indie pop]
    weeklyScore: 92
    trackCount: 14
  - id: curated-2
    title: This Stupid World
    artist: Yo La Tengo
    releaseDate: "2026-08-14"
`

func writeList(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing list: %v", err)
	}
}

func newTestService(t *testing.T, content string) (*Service, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "curated.yaml")
	writeList(t, path, content)

	bus := event.NewBus(discardLogger(), 16)
	go bus.Start()
	t.Cleanup(bus.Stop)

	s := NewService(path, bus, discardLogger())
	s.SetDebounce(10 * time.Millisecond)
	return s, path
}

func TestLoad(t *testing.T) {
	s, _ := newTestService(t, goodList)

	if err := s.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	albums := s.Albums()
	if len(albums) != 2 {
		t.Fatalf("expected 2 albums, got %d", len(albums))
	}

	a := albums[0]
	if a.ID != "curated-1" || a.Title != "Blue Rev" || a.WeeklyScore != 92 {
		t.Errorf("album = %+v", a)
	}
	if len(a.SourceTags) != 1 || a.SourceTags[0] != "Curated" {
		t.Errorf("source tags = %v", a.SourceTags)
	}

	// Defaults fill in for the sparse entry.
	b := albums[1]
	if b.PrimaryType != "Album" || b.CoverURL != "/placeholder.svg" || b.WeeklyScore != 75 {
		t.Errorf("defaults not applied: %+v", b)
	}
}

func TestLoadSkipsInvalidEntries(t *testing.T) {
	s, _ := newTestService(t, `albums:
  - id: ok-1
    title: Valid Album
  - title: Missing ID
  - id: no-title
`)

	if err := s.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := s.Albums(); len(got) != 1 || got[0].ID != "ok-1" {
		t.Errorf("albums = %v", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	bus := event.NewBus(discardLogger(), 16)
	go bus.Start()
	defer bus.Stop()

	s := NewService(filepath.Join(t.TempDir(), "absent.yaml"), bus, discardLogger())
	if err := s.Load(); err == nil {
		t.Fatal("expected error for missing file")
	}
	if len(s.Albums()) != 0 {
		t.Error("expected empty snapshot")
	}
}

func TestWatchReloadsOnChange(t *testing.T) {
	s, path := newTestService(t, goodList)
	if err := s.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Watch(ctx)

	// Give the watcher a moment to register.
	time.Sleep(100 * time.Millisecond)

	writeList(t, path, `albums:
  - id: curated-3
    title: Rat Saw God
    artist: Wednesday
`)

	deadline := time.Now().Add(3 * time.Second)
	for {
		albums := s.Albums()
		if len(albums) == 1 && albums[0].ID == "curated-3" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("reload never happened, snapshot: %d entries", len(albums))
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestWatchKeepsSnapshotOnBrokenFile(t *testing.T) {
	s, path := newTestService(t, goodList)
	if err := s.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Watch(ctx)

	time.Sleep(100 * time.Millisecond)

	writeList(t, path, "albums: [not: valid: yaml: {{{")

	// The reload fails; the old snapshot must survive.
	time.Sleep(300 * time.Millisecond)
	if got := s.Albums(); len(got) != 2 {
		t.Errorf("snapshot lost after broken reload: %d entries", len(got))
	}
}
