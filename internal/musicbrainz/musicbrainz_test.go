package musicbrainz

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spingrid/spingrid/internal/cache"
	"github.com/spingrid/spingrid/internal/ratelimit"
)

func loadFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile("testdata/" + name)
	if err != nil {
		t.Fatalf("loading fixture %s: %v", name, err)
	}
	return data
}

func newTestServer(t *testing.T, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		w.Header().Set("Content-Type", "application/json")

		switch {
		case r.URL.Path == "/release" && r.URL.Query().Get("query") != "":
			query := r.URL.Query().Get("query")
			if strings.Contains(query, "Nonexistent") {
				_, _ = w.Write([]byte(`{"created":"","count":0,"offset":0,"releases":[]}`))
				return
			}
			_, _ = w.Write(loadFixture(t, "search_bluerev.json"))

		case strings.HasPrefix(r.URL.Path, "/artist/"):
			mbid := strings.TrimPrefix(r.URL.Path, "/artist/")
			if mbid == "not-found-id" {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			if mbid == "server-error-id" {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write(loadFixture(t, "artist_alvvays.json"))

		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	limiter := ratelimit.NewLimiterMap()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewWithBaseURL(limiter, cache.NewTTL(time.Hour), logger, baseURL)
}

func TestResolveRelease(t *testing.T) {
	srv := newTestServer(t, nil)
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	release, err := c.ResolveRelease(context.Background(), "Blue Rev", "Alvvays")
	if err != nil {
		t.Fatalf("ResolveRelease: %v", err)
	}

	if release.Title != "Blue Rev" {
		t.Errorf("title = %q", release.Title)
	}
	if release.ArtistPhrase() != "Alvvays" {
		t.Errorf("artist phrase = %q", release.ArtistPhrase())
	}
	if release.PrimaryArtistID() != "99450990-b24e-4132-bb68-235f8c3e2564" {
		t.Errorf("primary artist id = %q", release.PrimaryArtistID())
	}
	if release.LabelName() != "Polyvinyl" {
		t.Errorf("label = %q", release.LabelName())
	}
	if release.TrackCount() != 14 {
		t.Errorf("track count = %d", release.TrackCount())
	}
	if release.IsReissue() {
		t.Error("release should not be a reissue")
	}
}

func TestResolveReleaseNotFound(t *testing.T) {
	srv := newTestServer(t, nil)
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	_, err := c.ResolveRelease(context.Background(), "Nonexistent Album", "Nobody")
	var notFound *ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResolveReleaseCaching(t *testing.T) {
	var hits atomic.Int64
	srv := newTestServer(t, &hits)
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	for range 3 {
		if _, err := c.ResolveRelease(context.Background(), "Blue Rev", "Alvvays"); err != nil {
			t.Fatalf("ResolveRelease: %v", err)
		}
	}
	if hits.Load() != 1 {
		t.Errorf("expected 1 upstream hit, got %d", hits.Load())
	}

	// Misses are memoized too.
	hits.Store(0)
	for range 3 {
		if _, err := c.ResolveRelease(context.Background(), "Nonexistent Album", "Nobody"); err == nil {
			t.Fatal("expected error")
		}
	}
	if hits.Load() != 1 {
		t.Errorf("expected 1 upstream hit for cached miss, got %d", hits.Load())
	}
}

func TestSearchReleases(t *testing.T) {
	var gotLimit atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLimit.Store(r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(loadFixture(t, "search_bluerev.json"))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	releases, err := c.SearchReleases(context.Background(), "blue rev alvvays", 5)
	if err != nil {
		t.Fatalf("SearchReleases: %v", err)
	}
	if len(releases) != 1 {
		t.Fatalf("got %d releases", len(releases))
	}
	if releases[0].Title != "Blue Rev" {
		t.Errorf("title = %q", releases[0].Title)
	}
	if gotLimit.Load() != "5" {
		t.Errorf("limit param = %v", gotLimit.Load())
	}

	// Out-of-range limits are clamped rather than rejected.
	if _, err := c.SearchReleases(context.Background(), "blue rev", 0); err != nil {
		t.Fatalf("SearchReleases default limit: %v", err)
	}
	if gotLimit.Load() != "20" {
		t.Errorf("default limit param = %v", gotLimit.Load())
	}
	if _, err := c.SearchReleases(context.Background(), "blue rev", 500); err != nil {
		t.Fatalf("SearchReleases clamped limit: %v", err)
	}
	if gotLimit.Load() != "50" {
		t.Errorf("clamped limit param = %v", gotLimit.Load())
	}
}

func TestGetArtist(t *testing.T) {
	srv := newTestServer(t, nil)
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	artist, err := c.GetArtist(context.Background(), "99450990-b24e-4132-bb68-235f8c3e2564")
	if err != nil {
		t.Fatalf("GetArtist: %v", err)
	}
	if artist.Name != "Alvvays" {
		t.Errorf("name = %q", artist.Name)
	}
	if len(artist.Tags) != 2 {
		t.Errorf("tags = %d", len(artist.Tags))
	}
}

func TestGetArtistNotFound(t *testing.T) {
	srv := newTestServer(t, nil)
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	_, err := c.GetArtist(context.Background(), "not-found-id")
	var notFound *ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetArtistUnavailable(t *testing.T) {
	srv := newTestServer(t, nil)
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	_, err := c.GetArtist(context.Background(), "server-error-id")
	var unavailable *ErrUnavailable
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if unavailable.RetryAfter == 0 {
		t.Error("expected retry-after hint on HTTP 503")
	}
}

func TestReleaseGenres(t *testing.T) {
	tests := []struct {
		name    string
		release Release
		want    []string
	}{
		{
			name: "release tags preferred, capped at three",
			release: Release{
				Tags: []Tag{
					{Name: "indie rock", Count: 3},
					{Name: "shoegaze", Count: 1},
					{Name: "dream pop", Count: 2},
					{Name: "power pop", Count: 1},
				},
				ReleaseGroup: ReleaseGroup{Tags: []Tag{{Name: "indie pop", Count: 4}}},
			},
			want: []string{"indie rock", "shoegaze", "dream pop"},
		},
		{
			name: "release-group fallback",
			release: Release{
				ReleaseGroup: ReleaseGroup{Tags: []Tag{{Name: "jazz", Count: 2}}},
			},
			want: []string{"jazz"},
		},
		{
			name: "unvoted tags skipped",
			release: Release{
				Tags: []Tag{{Name: "spam", Count: 0}, {Name: "ambient", Count: 1}},
			},
			want: []string{"ambient"},
		},
		{
			name:    "no tags at all",
			release: Release{},
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.release.Genres()
			if len(got) != len(tt.want) {
				t.Fatalf("Genres() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Genres()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestWeekFridays(t *testing.T) {
	// 2026-08-26 is a Wednesday.
	now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)

	if got := CurrentWeekFriday(now); got != "2026-08-28" {
		t.Errorf("CurrentWeekFriday = %q", got)
	}
	if got := PreviousWeekFriday(now, 1); got != "2026-08-21" {
		t.Errorf("PreviousWeekFriday(1) = %q", got)
	}
	if got := PreviousWeekFriday(now, 3); got != "2026-08-07" {
		t.Errorf("PreviousWeekFriday(3) = %q", got)
	}

	// On a Friday the current week is today.
	friday := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	if got := CurrentWeekFriday(friday); got != "2026-08-28" {
		t.Errorf("CurrentWeekFriday on a Friday = %q", got)
	}
}
