// Package api exposes the HTTP surface: the feed, sync control, album
// detail, and health endpoints.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/spingrid/spingrid/internal/album"
	"github.com/spingrid/spingrid/internal/api/middleware"
	"github.com/spingrid/spingrid/internal/feed"
	"github.com/spingrid/spingrid/internal/musicbrainz"
	"github.com/spingrid/spingrid/internal/sync"
)

// Syncer is the sync orchestrator surface the API drives.
type Syncer interface {
	Full(ctx context.Context, limit int) (*sync.Result, error)
	Incremental(ctx context.Context) (*sync.Result, error)
	Status() sync.Status
	NeedsSync(ctx context.Context) (bool, error)
}

// FeedAssembler builds feed pages.
type FeedAssembler interface {
	Assemble(ctx context.Context, q feed.Query) (*feed.Response, error)
}

// ReleaseSearcher runs free-text release searches.
type ReleaseSearcher interface {
	SearchReleases(ctx context.Context, query string, limit int) ([]musicbrainz.Release, error)
}

// CoverFinder locates artwork for search results.
type CoverFinder interface {
	Lookup(ctx context.Context, title, artist, releaseID string) string
}

// AlbumStore is the read surface for album detail and stats.
type AlbumStore interface {
	GetByID(ctx context.Context, id string) (*album.CanonicalAlbum, error)
	GetArtist(ctx context.Context, id string) (*album.Artist, error)
	GetCoverArt(ctx context.Context, albumID string) (*album.CoverArt, error)
	GetConsensus(ctx context.Context, albumID string) (*album.Consensus, error)
	ListReviews(ctx context.Context, albumID string) ([]*album.Review, error)
	Stats(ctx context.Context) (*album.Stats, error)
}

// RouterDeps bundles all dependencies needed by the HTTP router.
type RouterDeps struct {
	Feed          FeedAssembler
	Sync          Syncer
	Albums        AlbumStore
	Search        ReleaseSearcher
	Covers        CoverFinder
	Logger        *slog.Logger
	BasePath      string
	FullSyncLimit int
}

// Router sets up all HTTP routes for the application.
type Router struct {
	feed          FeedAssembler
	sync          Syncer
	albums        AlbumStore
	search        ReleaseSearcher
	covers        CoverFinder
	logger        *slog.Logger
	basePath      string
	fullSyncLimit int
}

// NewRouter creates a new Router with all routes configured.
func NewRouter(deps RouterDeps) *Router {
	fullLimit := deps.FullSyncLimit
	if fullLimit <= 0 {
		fullLimit = 100
	}
	return &Router{
		feed:          deps.Feed,
		sync:          deps.Sync,
		albums:        deps.Albums,
		search:        deps.Search,
		covers:        deps.Covers,
		logger:        deps.Logger,
		basePath:      deps.BasePath,
		fullSyncLimit: fullLimit,
	}
}

// Handler returns the fully wired HTTP handler.
func (r *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	bp := r.basePath

	mux.HandleFunc("GET "+bp+"/api/v1/health", r.handleHealth)
	mux.HandleFunc("GET "+bp+"/api/v1/feed", r.handleFeed)
	mux.HandleFunc("GET "+bp+"/api/v1/search", r.handleSearch)
	mux.HandleFunc("GET "+bp+"/api/v1/sync", r.handleSyncStatus)
	mux.HandleFunc("POST "+bp+"/api/v1/sync", r.handleSyncAction)
	mux.HandleFunc("GET "+bp+"/api/v1/albums/{id}", r.handleGetAlbum)

	return middleware.Logging(r.logger)(mux)
}
