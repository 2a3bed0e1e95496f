// Package ratelimit provides per-service client-side request pacing.
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Service names with known upstream rate limits.
const (
	ServiceMusicBrainz     = "musicbrainz"
	ServiceCoverArtArchive = "coverartarchive"
	ServiceITunes          = "itunes"
	ServiceDeezer          = "deezer"
	ServiceScrape          = "scrape"
)

// Default rate limits per service (requests per second).
var defaultLimits = map[string]rate.Limit{
	ServiceMusicBrainz:     1,
	ServiceCoverArtArchive: 1,
	ServiceITunes:          5,
	ServiceDeezer:          5,
	ServiceScrape:          1,
}

// LimiterMap holds one rate.Limiter per upstream service, created once at startup.
type LimiterMap struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
}

// NewLimiterMap creates limiters for all known services.
func NewLimiterMap() *LimiterMap {
	m := &LimiterMap{
		limiters: make(map[string]*rate.Limiter, len(defaultLimits)),
	}
	for name, limit := range defaultLimits {
		m.limiters[name] = rate.NewLimiter(limit, 1)
	}
	return m
}

// Wait blocks until the limiter for the given service allows a request,
// or the context is canceled. Unknown services are not limited.
func (m *LimiterMap) Wait(ctx context.Context, service string) error {
	m.mu.RLock()
	limiter, ok := m.limiters[service]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	return limiter.Wait(ctx)
}
