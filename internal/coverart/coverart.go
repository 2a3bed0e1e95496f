// Package coverart locates album artwork by walking a chain of providers:
// the Cover Art Archive when a MusicBrainz release ID is known, then
// iTunes, then Deezer, then a bundled placeholder. Lookup never fails;
// the worst outcome is the placeholder.
package coverart

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

	"github.com/sethvargo/go-retry"

	"github.com/spingrid/spingrid/internal/ratelimit"
)

// PlaceholderURL is served when no provider has artwork.
const PlaceholderURL = "/placeholder.svg"

const (
	defaultArchiveBaseURL = "https://coverartarchive.org"
	defaultITunesBaseURL  = "https://itunes.apple.com"
	defaultDeezerBaseURL  = "https://api.deezer.com"
)

// attemptTimeout bounds one provider attempt; overallBudget bounds the
// whole chain so a slow provider cannot stall a sync batch.
const (
	attemptTimeout = 8 * time.Second
	overallBudget  = 15 * time.Second
)

const maxBodyBytes = 512 * 1024

// Service resolves cover art URLs.
type Service struct {
	client         *http.Client
	limiter        *ratelimit.LimiterMap
	logger         *slog.Logger
	archiveBaseURL string
	itunesBaseURL  string
	deezerBaseURL  string
}

// New creates a cover art service with the default provider URLs.
func New(limiter *ratelimit.LimiterMap, logger *slog.Logger) *Service {
	return NewWithBaseURLs(limiter, logger, defaultArchiveBaseURL, defaultITunesBaseURL, defaultDeezerBaseURL)
}

// NewWithBaseURLs creates a service with custom provider URLs (for testing).
func NewWithBaseURLs(limiter *ratelimit.LimiterMap, logger *slog.Logger, archiveURL, itunesURL, deezerURL string) *Service {
	return &Service{
		client:         &http.Client{Timeout: attemptTimeout},
		limiter:        limiter,
		logger:         logger.With(slog.String("component", "coverart")),
		archiveBaseURL: strings.TrimRight(archiveURL, "/"),
		itunesBaseURL:  strings.TrimRight(itunesURL, "/"),
		deezerBaseURL:  strings.TrimRight(deezerURL, "/"),
	}
}

// Lookup walks the provider chain and returns the first artwork URL found,
// or PlaceholderURL. releaseID may be empty when the album was never
// resolved against MusicBrainz.
func (s *Service) Lookup(ctx context.Context, title, artist, releaseID string) string {
	ctx, cancel := context.WithTimeout(ctx, overallBudget)
	defer cancel()

	if releaseID != "" {
		if u, err := s.fromArchive(ctx, releaseID); err == nil && u != "" {
			return u
		} else if err != nil {
			s.logger.Debug("cover art archive miss", slog.String("release", releaseID), slog.String("error", err.Error()))
		}
	}

	if u, err := s.fromITunes(ctx, title, artist); err == nil && u != "" {
		return u
	} else if err != nil {
		s.logger.Debug("itunes miss", slog.String("title", title), slog.String("error", err.Error()))
	}

	if u, err := s.fromDeezer(ctx, title, artist); err == nil && u != "" {
		return u
	} else if err != nil {
		s.logger.Debug("deezer miss", slog.String("title", title), slog.String("error", err.Error()))
	}

	return PlaceholderURL
}

type archiveResponse struct {
	Images []struct {
		Front bool   `json:"front"`
		Image string `json:"image"`
	} `json:"images"`
}

// fromArchive queries the Cover Art Archive by release MBID. The front
// cover wins; any image beats none.
func (s *Service) fromArchive(ctx context.Context, releaseID string) (string, error) {
	var resp archiveResponse
	reqURL := s.archiveBaseURL + "/release/" + url.PathEscape(releaseID)
	if err := s.fetchJSON(ctx, ratelimit.ServiceCoverArtArchive, reqURL, &resp); err != nil {
		return "", err
	}

	for _, img := range resp.Images {
		if img.Front {
			return img.Image, nil
		}
	}
	if len(resp.Images) > 0 {
		return resp.Images[0].Image, nil
	}
	return "", nil
}

type itunesResponse struct {
	Results []struct {
		ArtworkURL100 string `json:"artworkUrl100"`
	} `json:"results"`
}

// fromITunes searches the iTunes catalog. Thumbnails come back at
// 100x100; the CDN serves the same path at 600x600.
func (s *Service) fromITunes(ctx context.Context, title, artist string) (string, error) {
	params := url.Values{
		"term":   {artist + " " + title},
		"entity": {"album"},
		"limit":  {"1"},
	}
	reqURL := s.itunesBaseURL + "/search?" + params.Encode()

	var resp itunesResponse
	if err := s.fetchJSON(ctx, ratelimit.ServiceITunes, reqURL, &resp); err != nil {
		return "", err
	}

	if len(resp.Results) > 0 && resp.Results[0].ArtworkURL100 != "" {
		return strings.Replace(resp.Results[0].ArtworkURL100, "100x100", "600x600", 1), nil
	}
	return "", nil
}

type deezerResponse struct {
	Data []struct {
		CoverXL  string `json:"cover_xl"`
		CoverBig string `json:"cover_big"`
	} `json:"data"`
}

func (s *Service) fromDeezer(ctx context.Context, title, artist string) (string, error) {
	params := url.Values{
		"q":     {artist + " " + title},
		"limit": {"1"},
	}
	reqURL := s.deezerBaseURL + "/search/album?" + params.Encode()

	var resp deezerResponse
	if err := s.fetchJSON(ctx, ratelimit.ServiceDeezer, reqURL, &resp); err != nil {
		return "", err
	}

	if len(resp.Data) > 0 {
		if resp.Data[0].CoverXL != "" {
			return resp.Data[0].CoverXL, nil
		}
		return resp.Data[0].CoverBig, nil
	}
	return "", nil
}

// fetchJSON performs a rate-limited GET and decodes the body. Server-side
// failures are retried once after a short pause; 404s are treated as a
// clean miss.
func (s *Service) fetchJSON(ctx context.Context, service, reqURL string, target any) error {
	backoff := retry.WithMaxRetries(1, retry.NewConstant(500*time.Millisecond))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := s.limiter.Wait(ctx, service); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		attemptCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
		defer cancel()

		req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, reqURL, nil)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := s.client.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close() //nolint:errcheck

		switch {
		case resp.StatusCode == http.StatusNotFound:
			_, _ = io.Copy(io.Discard, resp.Body)
			return errNoArtwork
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			_, _ = io.Copy(io.Discard, resp.Body)
			return retry.RetryableError(fmt.Errorf("HTTP %d", resp.StatusCode))
		case resp.StatusCode != http.StatusOK:
			_, _ = io.Copy(io.Discard, resp.Body)
			return fmt.Errorf("unexpected HTTP %d", resp.StatusCode)
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return retry.RetryableError(fmt.Errorf("reading body: %w", err))
		}
		if err := json.Unmarshal(body, target); err != nil {
			return fmt.Errorf("parsing response: %w", err)
		}
		return nil
	})
}

var errNoArtwork = fmt.Errorf("no artwork")
