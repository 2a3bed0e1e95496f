// Package score computes the weekly scores shown in the feed. Two scoring
// functions exist on purpose: curated feed entries are scored off their
// review date before any MusicBrainz metadata exists, while synced albums
// are scored off the resolved release. Keep them separate; they answer
// different questions.
package score

import (
	"strings"
	"time"
)

const (
	base = 70
	min  = 50
	max  = 100
)

// popularGenres earn a small boost during sync scoring.
var popularGenres = map[string]bool{
	"rock":       true,
	"pop":        true,
	"hip hop":    true,
	"electronic": true,
	"indie":      true,
}

// FeedScore scores a reconciled feed entry by review recency. reviewDate
// is YYYY-MM-DD; an unparseable date earns no recency boost.
func FeedScore(reviewDate string, now time.Time) int {
	s := base

	switch days := daysSince(reviewDate, now); {
	case days < 0:
		// future-dated or unparseable
	case days <= 7:
		s += 15
	case days <= 14:
		s += 10
	case days <= 30:
		s += 5
	}

	// Appearing in a critic's list at all is itself a signal.
	s += 10

	return clamp(s)
}

// SyncScore scores a resolved release by recency, format, track count,
// and genre tags.
func SyncScore(releaseDate string, now time.Time, primaryType string, trackCount int, tags []string) int {
	s := base

	switch days := daysSince(releaseDate, now); {
	case days < 0:
	case days <= 7:
		s += 10
	case days <= 14:
		s += 5
	}

	if primaryType == "Album" {
		s += 5
	}
	if trackCount >= 10 {
		s += 3
	}
	for _, tag := range tags {
		if popularGenres[strings.ToLower(tag)] {
			s += 2
			break
		}
	}

	return clamp(s)
}

// daysSince returns whole days between date (YYYY-MM-DD) and now, or -1
// when the date does not parse or lies in the future.
func daysSince(date string, now time.Time) int {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return -1
	}
	days := int(now.Sub(t).Hours() / 24)
	if days < 0 {
		return -1
	}
	return days
}

func clamp(s int) int {
	if s < min {
		return min
	}
	if s > max {
		return max
	}
	return s
}
