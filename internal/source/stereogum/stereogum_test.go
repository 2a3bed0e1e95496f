package stereogum

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spingrid/spingrid/internal/ratelimit"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFetchReleases(t *testing.T) {
	page := `<html><body>
		<p><strong>Wednesday – Rat Saw God</strong></p>
		<p><em>Yo La Tengo - This Stupid World</em></p>
		<p><strong>Wednesday – Rat Saw God</strong></p>
		<p><strong>bold but not a release</strong></p>
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
		t.Fatalf("expected 2 releases, got %d", len(releases))
	}
	if releases[0].Artist != "Wednesday" || releases[0].Title != "Rat Saw God" {
		t.Errorf("first release = %q / %q", releases[0].Artist, releases[0].Title)
	}
	if releases[1].Artist != "Yo La Tengo" || releases[1].Title != "This Stupid World" {
		t.Errorf("second release = %q / %q", releases[1].Artist, releases[1].Title)
	}
	if releases[0].SourceName != "Stereogum Heavy Rotation" {
		t.Errorf("source = %q", releases[0].SourceName)
	}
}

func TestFetchReleasesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	a := New(srv.URL, ratelimit.NewLimiterMap(), discardLogger())

	if _, err := a.FetchReleases(context.Background()); err == nil {
		t.Fatal("expected error on HTTP 503")
	}
}
