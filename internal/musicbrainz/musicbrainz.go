// Package musicbrainz is a client for the MusicBrainz /ws/2 API. The
// pipeline uses it to resolve scraped title/artist pairs into canonical
// releases and to fetch artist metadata.
package musicbrainz

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spingrid/spingrid/internal/cache"
	"github.com/spingrid/spingrid/internal/ratelimit"
	"github.com/spingrid/spingrid/internal/version"
)

const defaultBaseURL = "https://musicbrainz.org/ws/2"

// maxGenres caps how many tag-derived genres a release contributes.
const maxGenres = 3

// Client talks to the MusicBrainz API with rate limiting and a TTL cache
// over resolution results.
type Client struct {
	client  *http.Client
	limiter *ratelimit.LimiterMap
	cache   *cache.TTL
	logger  *slog.Logger
	baseURL string
}

// New creates a client with the default base URL.
func New(limiter *ratelimit.LimiterMap, c *cache.TTL, logger *slog.Logger) *Client {
	return NewWithBaseURL(limiter, c, logger, defaultBaseURL)
}

// NewWithBaseURL creates a client with a custom base URL (for testing).
func NewWithBaseURL(limiter *ratelimit.LimiterMap, c *cache.TTL, logger *slog.Logger, baseURL string) *Client {
	return &Client{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter: limiter,
		cache:   c,
		logger:  logger.With(slog.String("provider", "musicbrainz")),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// ResolveRelease searches for the release best matching a scraped
// title/artist pair. The first search hit wins; ErrNotFound is returned
// when the search matches nothing. Results, including misses, are
// memoized in the TTL cache so repeated syncs do not re-query upstream.
func (c *Client) ResolveRelease(ctx context.Context, title, artist string) (*Release, error) {
	key := "release:" + strings.ToLower(strings.TrimSpace(title)) + "|" + strings.ToLower(strings.TrimSpace(artist))
	if v, ok := c.cache.Get(key); ok {
		if r, ok := v.(*Release); ok && r != nil {
			return r, nil
		}
		return nil, &ErrNotFound{Entity: "release", Query: title + " / " + artist}
	}

	query := fmt.Sprintf("title:%q AND artist:%q", title, artist)
	params := url.Values{
		"query": {query},
		"fmt":   {"json"},
		"limit": {"1"},
		"inc":   {"artist-credits+labels+release-groups+media+tags"},
	}
	reqURL := c.baseURL + "/release?" + params.Encode()

	body, err := c.doRequest(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing search response: %w", err)
	}

	if len(resp.Releases) == 0 {
		// Negative results are cached too; unverifiable scrapes repeat
		// every sync otherwise.
		c.cache.Set(key, (*Release)(nil))
		return nil, &ErrNotFound{Entity: "release", Query: title + " / " + artist}
	}

	release := resp.Releases[0]
	c.cache.Set(key, &release)
	return &release, nil
}

// searchLimitMax caps interactive searches; MusicBrainz allows up to 100
// but anything past 50 is noise for this UI.
const (
	searchLimitDefault = 20
	searchLimitMax     = 50
)

// SearchReleases runs a free-text release search for the interactive
// search endpoint. Unlike ResolveRelease it returns every hit, and
// nothing is cached: each query is assumed to be unique.
func (c *Client) SearchReleases(ctx context.Context, query string, limit int) ([]Release, error) {
	if limit <= 0 {
		limit = searchLimitDefault
	}
	if limit > searchLimitMax {
		limit = searchLimitMax
	}

	params := url.Values{
		"query": {query},
		"fmt":   {"json"},
		"limit": {fmt.Sprint(limit)},
		"inc":   {"artist-credits+labels+release-groups+media+tags"},
	}
	reqURL := c.baseURL + "/release?" + params.Encode()

	body, err := c.doRequest(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing search response: %w", err)
	}
	return resp.Releases, nil
}

// GetArtist fetches an artist by MBID.
func (c *Client) GetArtist(ctx context.Context, mbid string) (*Artist, error) {
	params := url.Values{
		"inc": {"tags+aliases+url-rels"},
		"fmt": {"json"},
	}
	reqURL := c.baseURL + "/artist/" + url.PathEscape(mbid) + "?" + params.Encode()

	body, err := c.doRequest(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	var artist Artist
	if err := json.Unmarshal(body, &artist); err != nil {
		return nil, fmt.Errorf("parsing artist response: %w", err)
	}
	return &artist, nil
}

// doRequest executes an HTTP GET with rate limiting and standard headers.
func (c *Client) doRequest(ctx context.Context, reqURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx, ratelimit.ServiceMusicBrainz); err != nil {
		return nil, &ErrUnavailable{Cause: fmt.Errorf("rate limiter: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent())
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("requesting", slog.String("url", reqURL))

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &ErrUnavailable{Cause: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusNotFound {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &ErrNotFound{Entity: "resource", Query: reqURL}
	}

	if resp.StatusCode == http.StatusServiceUnavailable || resp.StatusCode == http.StatusTooManyRequests {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &ErrUnavailable{
			Cause:      fmt.Errorf("HTTP %d", resp.StatusCode),
			RetryAfter: 2 * time.Second,
		}
	}

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &ErrUnavailable{Cause: fmt.Errorf("unexpected HTTP %d", resp.StatusCode)}
	}

	return io.ReadAll(io.LimitReader(resp.Body, 512*1024))
}

// ArtistPhrase joins the release's artist credit into a display string.
func (r *Release) ArtistPhrase() string {
	names := make([]string, 0, len(r.ArtistCredit))
	for _, ac := range r.ArtistCredit {
		if ac.Name != "" {
			names = append(names, ac.Name)
		}
	}
	return strings.Join(names, ", ")
}

// PrimaryArtistID returns the MBID of the first credited artist, if any.
func (r *Release) PrimaryArtistID() string {
	if len(r.ArtistCredit) > 0 && r.ArtistCredit[0].Artist != nil {
		return r.ArtistCredit[0].Artist.ID
	}
	return ""
}

// LabelName returns the first label on the release, or "Unknown Label".
func (r *Release) LabelName() string {
	if len(r.LabelInfo) > 0 && r.LabelInfo[0].Label.Name != "" {
		return r.LabelInfo[0].Label.Name
	}
	return "Unknown Label"
}

// Genres derives genres from folksonomy tags. Release tags win over
// release-group tags; tags need at least one vote and at most three
// genres are kept.
func (r *Release) Genres() []string {
	tags := r.Tags
	if len(tags) == 0 {
		tags = r.ReleaseGroup.Tags
	}

	var genres []string
	for _, t := range tags {
		if t.Count < 1 || t.Name == "" {
			continue
		}
		genres = append(genres, t.Name)
		if len(genres) == maxGenres {
			break
		}
	}
	return genres
}

// IsReissue reports whether the release group carries the Reissue
// secondary type.
func (r *Release) IsReissue() bool {
	for _, st := range r.ReleaseGroup.SecondaryTypes {
		if st == "Reissue" {
			return true
		}
	}
	return false
}

// TrackCount sums tracks across media, preferring explicit track lists
// over the search-result track-count field.
func (r *Release) TrackCount() int {
	total := 0
	for _, m := range r.Media {
		if len(m.Tracks) > 0 {
			total += len(m.Tracks)
		} else {
			total += m.TrackCount
		}
	}
	return total
}

func userAgent() string {
	return fmt.Sprintf("SpinGrid/%s (https://github.com/spingrid/spingrid)", version.Version)
}
