package feed

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/spingrid/spingrid/internal/album"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeStore struct {
	albums []*album.CanonicalAlbum
}

func (f *fakeStore) ListAll(ctx context.Context) ([]*album.CanonicalAlbum, error) {
	return f.albums, nil
}

func (f *fakeStore) Count(ctx context.Context) (int, error) {
	return len(f.albums), nil
}

type fakeCurated struct {
	albums []*album.CanonicalAlbum
}

func (f *fakeCurated) Albums() []*album.CanonicalAlbum { return f.albums }

func mkAlbum(id string, score int, opts func(*album.CanonicalAlbum)) *album.CanonicalAlbum {
	a := &album.CanonicalAlbum{
		ID:          id,
		Title:       "Album " + id,
		ReleaseDate: "2026-08-28",
		Regions:     []string{"US"},
		Genres:      []string{"indie rock"},
		PrimaryType: "Album",
		WeeklyScore: score,
	}
	if opts != nil {
		opts(a)
	}
	return a
}

func newAssembler(store *fakeStore, curated *fakeCurated) *Assembler {
	a := NewAssembler(store, curated, discardLogger())
	// 2026-08-28 is a Friday.
	a.now = func() time.Time { return time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC) }
	return a
}

func TestAssembleMergesCuratedWithoutDuplicates(t *testing.T) {
	store := &fakeStore{albums: []*album.CanonicalAlbum{
		mkAlbum("shared", 90, nil),
		mkAlbum("db-only", 85, nil),
	}}
	curated := &fakeCurated{albums: []*album.CanonicalAlbum{
		mkAlbum("shared", 99, nil),
		mkAlbum("curated-only", 80, nil),
	}}

	resp, err := newAssembler(store, curated).Assemble(context.Background(), Query{})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	if len(resp.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(resp.Items))
	}
	// The persisted version of the shared id wins.
	if resp.Items[0].ID != "shared" || resp.Items[0].WeeklyScore != 90 {
		t.Errorf("top item = %+v", resp.Items[0])
	}
	if resp.TotalCount != 3 {
		t.Errorf("totalCount = %d, want persisted + unique curated", resp.TotalCount)
	}
}

func TestAssembleSortsByScore(t *testing.T) {
	store := &fakeStore{albums: []*album.CanonicalAlbum{
		mkAlbum("low", 70, nil),
		mkAlbum("high", 95, nil),
		mkAlbum("mid", 85, nil),
	}}

	resp, err := newAssembler(store, &fakeCurated{}).Assemble(context.Background(), Query{})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	want := []string{"high", "mid", "low"}
	for i, id := range want {
		if resp.Items[i].ID != id {
			t.Errorf("position %d = %q, want %q", i, resp.Items[i].ID, id)
		}
	}
}

func TestAssembleFilters(t *testing.T) {
	store := &fakeStore{albums: []*album.CanonicalAlbum{
		mkAlbum("indie-us", 90, nil),
		mkAlbum("jazz-fr", 88, func(a *album.CanonicalAlbum) {
			a.Genres = []string{"jazz"}
			a.Regions = []string{"FR"}
		}),
		mkAlbum("ep", 86, func(a *album.CanonicalAlbum) { a.PrimaryType = "EP" }),
		mkAlbum("reissue", 84, func(a *album.CanonicalAlbum) { a.IsReissue = true }),
		mkAlbum("last-week", 82, func(a *album.CanonicalAlbum) { a.ReleaseDate = "2026-08-21" }),
	}}
	asm := newAssembler(store, &fakeCurated{})
	ctx := context.Background()

	tests := []struct {
		name  string
		query Query
		want  []string
	}{
		{
			name:  "genre filter",
			query: Query{Genres: []string{"jazz"}},
			want:  []string{"jazz-fr"},
		},
		{
			name:  "region filter",
			query: Query{Regions: []string{"US"}},
			want:  []string{"indie-us", "ep", "reissue", "last-week"},
		},
		{
			name:  "format filter",
			query: Query{Formats: []string{"EP"}},
			want:  []string{"ep"},
		},
		{
			name:  "exclude reissues",
			query: Query{ExcludeReissues: true},
			want:  []string{"indie-us", "jazz-fr", "ep", "last-week"},
		},
		{
			name:  "week filter",
			query: Query{Week: "2026-08-21"},
			want:  []string{"last-week"},
		},
		{
			name:  "filters AND together",
			query: Query{Regions: []string{"US"}, Formats: []string{"Album"}, ExcludeReissues: true, Week: "2026-08-28"},
			want:  []string{"indie-us"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := asm.Assemble(ctx, tt.query)
			if err != nil {
				t.Fatalf("Assemble: %v", err)
			}
			if len(resp.Items) != len(tt.want) {
				t.Fatalf("got %d items, want %d", len(resp.Items), len(tt.want))
			}
			for i, id := range tt.want {
				if resp.Items[i].ID != id {
					t.Errorf("position %d = %q, want %q", i, resp.Items[i].ID, id)
				}
			}
		})
	}
}

func TestAssemblePaginationIsExhaustive(t *testing.T) {
	store := &fakeStore{}
	for i := 0; i < 23; i++ {
		store.albums = append(store.albums, mkAlbum(string(rune('a'+i)), 50+i, nil))
	}
	asm := newAssembler(store, &fakeCurated{})
	ctx := context.Background()

	seen := make(map[string]bool)
	q := Query{Limit: 5}
	pages := 0
	for {
		resp, err := asm.Assemble(ctx, q)
		if err != nil {
			t.Fatalf("Assemble page %d: %v", pages, err)
		}
		pages++
		for _, item := range resp.Items {
			if seen[item.ID] {
				t.Fatalf("item %q appeared on two pages", item.ID)
			}
			seen[item.ID] = true
		}
		if resp.NextCursor == "" {
			break
		}
		q.Cursor = resp.NextCursor
		if pages > 10 {
			t.Fatal("pagination never terminated")
		}
	}

	if len(seen) != 23 {
		t.Errorf("pagination visited %d of 23 items", len(seen))
	}
	if pages != 5 {
		t.Errorf("expected 5 pages, got %d", pages)
	}
}

func TestAssemblePaginationSpansWeeks(t *testing.T) {
	// Half the pool released this week, half the week before. An
	// unfiltered walk must still reach every album.
	store := &fakeStore{}
	for i := 0; i < 8; i++ {
		date := "2026-08-28"
		if i%2 == 1 {
			date = "2026-08-21"
		}
		store.albums = append(store.albums, mkAlbum(string(rune('a'+i)), 50+i, func(a *album.CanonicalAlbum) {
			a.ReleaseDate = date
		}))
	}
	asm := newAssembler(store, &fakeCurated{})
	ctx := context.Background()

	seen := make(map[string]bool)
	q := Query{Limit: 3}
	for pages := 0; ; pages++ {
		if pages > 5 {
			t.Fatal("pagination never terminated")
		}
		resp, err := asm.Assemble(ctx, q)
		if err != nil {
			t.Fatalf("Assemble page %d: %v", pages, err)
		}
		for _, item := range resp.Items {
			seen[item.ID] = true
		}
		if resp.NextCursor == "" {
			break
		}
		q.Cursor = resp.NextCursor
	}

	if len(seen) != 8 {
		t.Errorf("pagination visited %d of 8 items: %v", len(seen), seen)
	}
}

func TestAssembleCursorCarriesWeek(t *testing.T) {
	store := &fakeStore{}
	for i := 0; i < 4; i++ {
		store.albums = append(store.albums, mkAlbum(string(rune('a'+i)), 60+i, func(a *album.CanonicalAlbum) {
			a.ReleaseDate = "2026-08-21"
		}))
	}
	asm := newAssembler(store, &fakeCurated{})

	resp, err := asm.Assemble(context.Background(), Query{Week: "2026-08-21", Limit: 2})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if resp.NextCursor == "" {
		t.Fatal("expected next cursor")
	}

	raw, err := base64.StdEncoding.DecodeString(resp.NextCursor)
	if err != nil {
		t.Fatalf("cursor not base64: %v", err)
	}
	var c struct {
		Week   string `json:"week"`
		Offset int    `json:"offset"`
	}
	if err := json.Unmarshal(raw, &c); err != nil {
		t.Fatalf("cursor not JSON: %v", err)
	}
	if c.Week != "2026-08-21" || c.Offset != 2 {
		t.Errorf("cursor = %+v", c)
	}

	// The second page keeps the week filter from the cursor alone.
	resp2, err := asm.Assemble(context.Background(), Query{Cursor: resp.NextCursor, Limit: 2})
	if err != nil {
		t.Fatalf("Assemble second page: %v", err)
	}
	if len(resp2.Items) != 2 {
		t.Errorf("second page = %d items", len(resp2.Items))
	}
	if resp2.NextCursor != "" {
		t.Error("expected exhausted cursor")
	}
}

func TestAssembleInvalidCursor(t *testing.T) {
	asm := newAssembler(&fakeStore{}, &fakeCurated{})
	_, err := asm.Assemble(context.Background(), Query{Cursor: "not-base64!!"})
	if !errors.Is(err, ErrInvalidCursor) {
		t.Fatalf("err = %v, want ErrInvalidCursor", err)
	}
}

func TestAvailableFilters(t *testing.T) {
	store := &fakeStore{albums: []*album.CanonicalAlbum{
		mkAlbum("a", 90, func(a *album.CanonicalAlbum) {
			a.Genres = []string{"jazz"}
			a.Regions = []string{"FR"}
		}),
	}}
	curated := &fakeCurated{albums: []*album.CanonicalAlbum{
		mkAlbum("b", 80, nil),
	}}

	// A narrow filter must not shrink the available lists.
	resp, err := newAssembler(store, curated).Assemble(context.Background(), Query{Genres: []string{"jazz"}})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	wantGenres := []string{"indie rock", "jazz"}
	if len(resp.Filters.AvailableGenres) != len(wantGenres) {
		t.Fatalf("availableGenres = %v", resp.Filters.AvailableGenres)
	}
	for i, g := range wantGenres {
		if resp.Filters.AvailableGenres[i] != g {
			t.Errorf("availableGenres[%d] = %q", i, resp.Filters.AvailableGenres[i])
		}
	}

	wantWeeks := []string{"2026-08-28", "2026-08-21", "2026-08-14", "2026-08-07"}
	if len(resp.Filters.AvailableWeeks) != len(wantWeeks) {
		t.Fatalf("availableWeeks = %v", resp.Filters.AvailableWeeks)
	}
	for i, w := range wantWeeks {
		if resp.Filters.AvailableWeeks[i] != w {
			t.Errorf("availableWeeks[%d] = %q, want %q", i, resp.Filters.AvailableWeeks[i], w)
		}
	}
}
