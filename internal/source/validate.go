package source

import (
	"html"
	"regexp"
	"strings"
)

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// CleanText strips residual markup and entities from extracted text.
func CleanText(s string) string {
	s = tagPattern.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	return strings.TrimSpace(s)
}

// ValidTitle reports whether an extracted title is usable downstream.
// Reconciliation keys on titles, so anything too short, too long, or still
// carrying markup is rejected at the adapter boundary. The banned list is
// adapter-supplied site navigation text that pattern matching tends to pick up.
func ValidTitle(title string, banned []string) bool {
	if len(title) < 4 || len(title) >= 100 {
		return false
	}
	if strings.ContainsAny(title, "<>") {
		return false
	}
	for _, b := range banned {
		if strings.Contains(title, b) {
			return false
		}
	}
	return true
}

var artistContextPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)by\s+([^,<]+)`),
	regexp.MustCompile(`(?i)artist[^>]*>([^<]+)<`),
	regexp.MustCompile(`(?i)performer[^>]*>([^<]+)<`),
}

// UnknownArtist is used when no artist can be extracted near a title.
const UnknownArtist = "Unknown Artist"

// ArtistFromContext scans the HTML surrounding a title match for an artist
// name. Extraction is heuristic; callers get UnknownArtist when nothing
// plausible is found.
func ArtistFromContext(htmlContext string) string {
	for _, p := range artistContextPatterns {
		m := p.FindStringSubmatch(htmlContext)
		if m == nil {
			continue
		}
		artist := CleanText(m[1])
		if artist != "" && len(artist) < 100 {
			return artist
		}
	}
	return UnknownArtist
}

// Context returns a window of the page around index i, used for artist
// extraction near a title match.
func Context(page string, i, radius int) string {
	start := i - radius
	if start < 0 {
		start = 0
	}
	end := i + radius
	if end > len(page) {
		end = len(page)
	}
	return page[start:end]
}
