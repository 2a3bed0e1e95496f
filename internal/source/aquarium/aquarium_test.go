package aquarium

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spingrid/spingrid/internal/ratelimit"
	"github.com/spingrid/spingrid/internal/source"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFetchReleases(t *testing.T) {
	page := `<html><body>
		<h2 class="entry-title">Videodrome :: Lagniappe Sessions</h2>
		<h2 class="entry-title">On The Turntable This Week</h2>
		<h1>Aquarium Drunkard Radio</h1>
	</body></html>`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	a := New(srv.URL, ratelimit.NewLimiterMap(), discardLogger())

	releases, err := a.FetchReleases(context.Background())
	if err != nil {
		t.Fatalf("FetchReleases: %v", err)
	}

	if len(releases) != 2 {
		t.Fatalf("expected 2 releases (site nav banned), got %d", len(releases))
	}
	for _, r := range releases {
		if r.Artist != source.UnknownArtist {
			t.Errorf("artist = %q, want %q", r.Artist, source.UnknownArtist)
		}
	}
}

func TestFetchReleasesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	a := New(srv.URL, ratelimit.NewLimiterMap(), discardLogger())

	if _, err := a.FetchReleases(context.Background()); err == nil {
		t.Fatal("expected error on HTTP 403")
	}
}
