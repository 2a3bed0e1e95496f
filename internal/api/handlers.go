package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/spingrid/spingrid/internal/album"
	"github.com/spingrid/spingrid/internal/feed"
	"github.com/spingrid/spingrid/internal/sync"
	"github.com/spingrid/spingrid/internal/version"
)

// backgroundSyncTimeout bounds the fire-and-forget sync triggered by feed
// requests.
const backgroundSyncTimeout = 10 * time.Minute

func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Version,
		"commit":  version.Commit,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// handleFeed serves a feed page. A stale store triggers a background sync
// but never delays or fails the response.
func (r *Router) handleFeed(w http.ResponseWriter, req *http.Request) {
	r.maybeTriggerSync(req.Context())

	params := req.URL.Query()
	q := feed.Query{
		Week:            params.Get("week"),
		Genres:          splitList(params.Get("genres")),
		Regions:         splitList(params.Get("regions")),
		Formats:         splitList(params.Get("format")),
		ExcludeReissues: params.Get("excludeReissues") == "true",
		Cursor:          params.Get("cursor"),
	}
	if raw := params.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		q.Limit = limit
	}

	resp, err := r.feed.Assemble(req.Context(), q)
	if err != nil {
		if errors.Is(err, feed.ErrInvalidCursor) {
			writeError(w, http.StatusBadRequest, "invalid cursor")
			return
		}
		r.logger.Error("assembling feed failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to fetch feed")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// maybeTriggerSync kicks off a background sync when the store is stale.
// Sync problems never surface to the feed caller.
func (r *Router) maybeTriggerSync(ctx context.Context) {
	needed, err := r.sync.NeedsSync(ctx)
	if err != nil {
		r.logger.Warn("sync-needed check failed", slog.String("error", err.Error()))
		return
	}
	if !needed {
		return
	}

	r.logger.Info("store stale, starting background sync")
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), backgroundSyncTimeout)
		defer cancel()
		if _, err := r.sync.Full(ctx, r.fullSyncLimit); err != nil && !errors.Is(err, sync.ErrAlreadyRunning) {
			r.logger.Error("background sync failed", slog.String("error", err.Error()))
		}
	}()
}

type searchResultsResponse struct {
	Albums     []*album.CanonicalAlbum `json:"albums"`
	TotalCount int                     `json:"totalCount"`
	Query      string                  `json:"query"`
}

// handleSearch runs a free-text MusicBrainz release search and shapes the
// hits like feed albums, cover art included. Nothing is persisted.
func (r *Router) handleSearch(w http.ResponseWriter, req *http.Request) {
	query := strings.TrimSpace(req.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "search query is required")
		return
	}

	limit := 0
	if raw := req.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	releases, err := r.search.SearchReleases(req.Context(), query, limit)
	if err != nil {
		r.logger.Error("search failed", slog.String("query", query), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to search")
		return
	}

	now := time.Now()
	albums := make([]*album.CanonicalAlbum, 0, len(releases))
	for i := range releases {
		rel := &releases[i]
		coverURL := r.covers.Lookup(req.Context(), rel.Title, rel.ArtistPhrase(), rel.ID)
		albums = append(albums, sync.AlbumFromRelease(rel, coverURL, "", "", now))
	}

	writeJSON(w, http.StatusOK, searchResultsResponse{
		Albums:     albums,
		TotalCount: len(albums),
		Query:      query,
	})
}

type syncActionRequest struct {
	Action string `json:"action"`
	Limit  int    `json:"limit,omitempty"`
}

type syncStatusResponse struct {
	Success       bool         `json:"success,omitempty"`
	SyncStatus    sync.Status  `json:"syncStatus"`
	DatabaseStats *album.Stats `json:"databaseStats"`
	SyncNeeded    bool         `json:"syncNeeded"`
	Message       string       `json:"message,omitempty"`
	Error         string       `json:"error,omitempty"`
}

// handleSyncAction runs a sync synchronously on behalf of the caller.
func (r *Router) handleSyncAction(w http.ResponseWriter, req *http.Request) {
	var body syncActionRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var runErr error
	switch body.Action {
	case "full-sync":
		limit := body.Limit
		if limit <= 0 {
			limit = r.fullSyncLimit
		}
		_, runErr = r.sync.Full(req.Context(), limit)
	case "incremental-sync":
		_, runErr = r.sync.Incremental(req.Context())
	case "check-status":
		// status only
	default:
		writeError(w, http.StatusBadRequest, "invalid action, use: full-sync, incremental-sync, or check-status")
		return
	}

	resp := syncStatusResponse{
		SyncStatus: r.sync.Status(),
	}
	if stats, err := r.albums.Stats(req.Context()); err == nil {
		resp.DatabaseStats = stats
	}

	if errors.Is(runErr, sync.ErrAlreadyRunning) {
		resp.Error = runErr.Error()
		writeJSON(w, http.StatusConflict, resp)
		return
	}
	if runErr != nil {
		r.logger.Error("sync failed", slog.String("error", runErr.Error()))
		resp.Error = runErr.Error()
		writeJSON(w, http.StatusInternalServerError, resp)
		return
	}

	if needed, err := r.sync.NeedsSync(req.Context()); err == nil {
		resp.SyncNeeded = needed
	}
	resp.Success = true
	if body.Action == "check-status" {
		resp.Message = "sync status checked"
	} else {
		resp.Message = "sync completed successfully"
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleSyncStatus reports orchestrator state and store stats.
func (r *Router) handleSyncStatus(w http.ResponseWriter, req *http.Request) {
	resp := syncStatusResponse{
		SyncStatus: r.sync.Status(),
	}

	stats, err := r.albums.Stats(req.Context())
	if err != nil {
		r.logger.Error("reading store stats failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to get sync status")
		return
	}
	resp.DatabaseStats = stats

	if needed, err := r.sync.NeedsSync(req.Context()); err == nil {
		resp.SyncNeeded = needed
	}
	writeJSON(w, http.StatusOK, resp)
}

type albumDetailResponse struct {
	Album     *album.CanonicalAlbum `json:"album"`
	Artist    *album.Artist         `json:"artist,omitempty"`
	CoverArt  *album.CoverArt       `json:"coverArt,omitempty"`
	Consensus *album.Consensus      `json:"consensus,omitempty"`
	Reviews   []*album.Review       `json:"reviews"`
}

// handleGetAlbum returns an album with its satellite records. Satellites
// are best-effort; only the album row itself can 404.
func (r *Router) handleGetAlbum(w http.ResponseWriter, req *http.Request) {
	id := req.PathValue("id")

	a, err := r.albums.GetByID(req.Context(), id)
	if err != nil {
		if errors.Is(err, album.ErrNotFound) {
			writeError(w, http.StatusNotFound, "album not found")
			return
		}
		r.logger.Error("getting album failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to get album")
		return
	}

	resp := albumDetailResponse{Album: a, Reviews: []*album.Review{}}
	if a.PrimaryArtistID != "" {
		if artist, err := r.albums.GetArtist(req.Context(), a.PrimaryArtistID); err == nil {
			resp.Artist = artist
		}
	}
	if cover, err := r.albums.GetCoverArt(req.Context(), id); err == nil {
		resp.CoverArt = cover
	}
	if consensus, err := r.albums.GetConsensus(req.Context(), id); err == nil {
		resp.Consensus = consensus
	}
	if reviews, err := r.albums.ListReviews(req.Context(), id); err == nil && reviews != nil {
		resp.Reviews = reviews
	}

	writeJSON(w, http.StatusOK, resp)
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encode error", http.StatusInternalServerError)
	}
}
