// Package album persists canonical albums and their satellite records
// (artists, cover art, consensus summaries, reviews).
package album

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// albumColumns is the ordered list of columns for SELECT queries.
const albumColumns = `id, release_group_id, title, primary_artist_id, artist_credit,
	label, release_date, regions, genres, is_reissue, primary_type,
	cover_url, weekly_score, track_count, barcode, source_tags, source_count, last_updated`

// ErrNotFound is returned when a requested album does not exist.
var ErrNotFound = errors.New("album not found")

// Service provides album data operations.
type Service struct {
	db *sql.DB
}

// NewService creates an album service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Upsert stores an album wholesale, replacing any previous row with the
// same id. Sync re-resolves everything on each pass, so partial updates
// buy nothing.
func (s *Service) Upsert(ctx context.Context, a *CanonicalAlbum) error {
	if a.ID == "" {
		return errors.New("album id required")
	}
	if a.LastUpdated.IsZero() {
		a.LastUpdated = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO albums (
			id, release_group_id, title, primary_artist_id, artist_credit,
			label, release_date, regions, genres, is_reissue, primary_type,
			cover_url, weekly_score, track_count, barcode, source_tags, source_count, last_updated
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		a.ID, a.ReleaseGroupID, a.Title, a.PrimaryArtistID, a.ArtistCredit,
		a.Label, a.ReleaseDate, marshalStrings(a.Regions), marshalStrings(a.Genres),
		boolToInt(a.IsReissue), a.PrimaryType,
		a.CoverURL, a.WeeklyScore, a.TrackCount, a.Barcode,
		marshalStrings(a.SourceTags), a.SourceCount,
		a.LastUpdated.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting album: %w", err)
	}
	return nil
}

// GetByID retrieves an album by release MBID.
func (s *Service) GetByID(ctx context.Context, id string) (*CanonicalAlbum, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+albumColumns+` FROM albums WHERE id = ?`, id)
	a, err := scanAlbum(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting album: %w", err)
	}
	return a, nil
}

// List returns albums ordered newest release first, corroboration and
// score breaking ties.
func (s *Service) List(ctx context.Context, limit, offset int) ([]*CanonicalAlbum, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+albumColumns+` FROM albums
		ORDER BY release_date DESC, source_count DESC, weekly_score DESC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing albums: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var albums []*CanonicalAlbum
	for rows.Next() {
		a, err := scanAlbum(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning album: %w", err)
		}
		albums = append(albums, a)
	}
	return albums, rows.Err()
}

// ListAll returns every album, ordered like List.
func (s *Service) ListAll(ctx context.Context) ([]*CanonicalAlbum, error) {
	return s.List(ctx, -1, 0)
}

// Count returns the number of persisted albums.
func (s *Service) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM albums`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting albums: %w", err)
	}
	return n, nil
}

// ListMissingConsensus returns albums without a consensus summary, up to
// limit, oldest release first so backfill works through history.
func (s *Service) ListMissingConsensus(ctx context.Context, limit int) ([]*CanonicalAlbum, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+albumColumns+` FROM albums
		WHERE id NOT IN (SELECT album_id FROM consensus)
		ORDER BY release_date ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing albums missing consensus: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var albums []*CanonicalAlbum
	for rows.Next() {
		a, err := scanAlbum(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning album: %w", err)
		}
		albums = append(albums, a)
	}
	return albums, rows.Err()
}

// Stats summarizes the store for the sync status endpoint.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM albums`).Scan(&stats.Albums); err != nil {
		return nil, fmt.Errorf("counting albums: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM artists`).Scan(&stats.Artists); err != nil {
		return nil, fmt.Errorf("counting artists: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reviews`).Scan(&stats.Reviews); err != nil {
		return nil, fmt.Errorf("counting reviews: %w", err)
	}

	var last sql.NullString
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(last_updated) FROM albums`).Scan(&last); err != nil {
		return nil, fmt.Errorf("reading last update: %w", err)
	}
	if last.Valid {
		if t, err := time.Parse(time.RFC3339, last.String); err == nil {
			stats.LastUpdated = &t
		}
	}
	return stats, nil
}

// UpsertArtist stores an artist satellite record.
func (s *Service) UpsertArtist(ctx context.Context, a *Artist) error {
	if a.ID == "" {
		return errors.New("artist id required")
	}
	if a.LastUpdated.IsZero() {
		a.LastUpdated = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO artists (id, name, bio_excerpt, tags, last_updated)
		VALUES (?, ?, ?, ?, ?)`,
		a.ID, a.Name, a.BioExcerpt, marshalStrings(a.Tags), a.LastUpdated.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("upserting artist: %w", err)
	}
	return nil
}

// GetArtist retrieves an artist by MBID, or nil when absent.
func (s *Service) GetArtist(ctx context.Context, id string) (*Artist, error) {
	var (
		a    Artist
		bio  sql.NullString
		tags sql.NullString
		last string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, bio_excerpt, tags, last_updated FROM artists WHERE id = ?`, id).
		Scan(&a.ID, &a.Name, &bio, &tags, &last)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting artist: %w", err)
	}
	a.BioExcerpt = bio.String
	a.Tags = unmarshalStrings(tags.String)
	a.LastUpdated, _ = time.Parse(time.RFC3339, last)
	return &a, nil
}

// UpsertCoverArt stores an album's artwork location.
func (s *Service) UpsertCoverArt(ctx context.Context, c *CoverArt) error {
	if c.LastUpdated.IsZero() {
		c.LastUpdated = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO cover_art (album_id, url, source, last_updated)
		VALUES (?, ?, ?, ?)`,
		c.AlbumID, c.URL, c.Source, c.LastUpdated.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("upserting cover art: %w", err)
	}
	return nil
}

// GetCoverArt retrieves an album's artwork record, or nil when absent.
func (s *Service) GetCoverArt(ctx context.Context, albumID string) (*CoverArt, error) {
	var (
		c    CoverArt
		last string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT album_id, url, source, last_updated FROM cover_art WHERE album_id = ?`, albumID).
		Scan(&c.AlbumID, &c.URL, &c.Source, &last)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting cover art: %w", err)
	}
	c.LastUpdated, _ = time.Parse(time.RFC3339, last)
	return &c, nil
}

// UpsertConsensus stores a consensus summary for an album.
func (s *Service) UpsertConsensus(ctx context.Context, c *Consensus) error {
	if c.GeneratedAt.IsZero() {
		c.GeneratedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO consensus (album_id, summary, generated_at)
		VALUES (?, ?, ?)`,
		c.AlbumID, c.Summary, c.GeneratedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("upserting consensus: %w", err)
	}
	return nil
}

// GetConsensus retrieves an album's consensus summary, or nil when absent.
func (s *Service) GetConsensus(ctx context.Context, albumID string) (*Consensus, error) {
	var (
		c   Consensus
		gen string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT album_id, summary, generated_at FROM consensus WHERE album_id = ?`, albumID).
		Scan(&c.AlbumID, &c.Summary, &gen)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting consensus: %w", err)
	}
	c.GeneratedAt, _ = time.Parse(time.RFC3339, gen)
	return &c, nil
}

// AddReview attaches a review to an album.
func (s *Service) AddReview(ctx context.Context, r *Review) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reviews (id, album_id, source, url, excerpt, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.AlbumID, r.Source, r.URL, r.Excerpt, r.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("adding review: %w", err)
	}
	return nil
}

// ListReviews returns an album's reviews, newest first.
func (s *Service) ListReviews(ctx context.Context, albumID string) ([]*Review, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, album_id, source, url, excerpt, created_at
		FROM reviews WHERE album_id = ?
		ORDER BY created_at DESC`, albumID)
	if err != nil {
		return nil, fmt.Errorf("listing reviews: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var reviews []*Review
	for rows.Next() {
		var (
			r       Review
			created string
		)
		if err := rows.Scan(&r.ID, &r.AlbumID, &r.Source, &r.URL, &r.Excerpt, &created); err != nil {
			return nil, fmt.Errorf("scanning review: %w", err)
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339, created)
		reviews = append(reviews, &r)
	}
	return reviews, rows.Err()
}

// scanner abstracts *sql.Row and *sql.Rows for shared scanning.
type scanner interface {
	Scan(dest ...any) error
}

func scanAlbum(row scanner) (*CanonicalAlbum, error) {
	var (
		a         CanonicalAlbum
		regions   string
		genres    string
		isReissue int
		barcode   sql.NullString
		tags      string
		last      string
	)
	err := row.Scan(
		&a.ID, &a.ReleaseGroupID, &a.Title, &a.PrimaryArtistID, &a.ArtistCredit,
		&a.Label, &a.ReleaseDate, &regions, &genres, &isReissue, &a.PrimaryType,
		&a.CoverURL, &a.WeeklyScore, &a.TrackCount, &barcode, &tags, &a.SourceCount, &last,
	)
	if err != nil {
		return nil, err
	}

	a.Regions = unmarshalStrings(regions)
	a.Genres = unmarshalStrings(genres)
	a.IsReissue = isReissue != 0
	if barcode.Valid {
		a.Barcode = &barcode.String
	}
	a.SourceTags = unmarshalStrings(tags)
	a.LastUpdated, _ = time.Parse(time.RFC3339, last)
	return &a, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
