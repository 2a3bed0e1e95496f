package album

import (
	"encoding/json"
	"time"
)

// CanonicalAlbum is the persisted, MusicBrainz-verified form of an album.
// IDs are MusicBrainz release MBIDs.
type CanonicalAlbum struct {
	ID              string    `json:"id"`
	ReleaseGroupID  string    `json:"releaseGroupId"`
	Title           string    `json:"title"`
	PrimaryArtistID string    `json:"primaryArtistId"`
	ArtistCredit    string    `json:"artistCredit"`
	Label           string    `json:"label"`
	ReleaseDate     string    `json:"releaseDate"`
	Regions         []string  `json:"regions"`
	Genres          []string  `json:"genres"`
	IsReissue       bool      `json:"isReissue"`
	PrimaryType     string    `json:"primaryType"`
	CoverURL        string    `json:"coverUrl"`
	WeeklyScore     int       `json:"weeklyScore"`
	TrackCount      int       `json:"trackCount"`
	Barcode         *string   `json:"barcode,omitempty"`
	SourceTags      []string  `json:"sourceTags"`
	SourceCount     int       `json:"sourceCount"`
	LastUpdated     time.Time `json:"lastUpdated"`
}

// Artist is the persisted artist satellite record.
type Artist struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	BioExcerpt  string    `json:"bioExcerpt,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// CoverArt records where an album's artwork was found.
type CoverArt struct {
	AlbumID     string    `json:"albumId"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// Consensus is a generated critical-consensus summary for an album.
type Consensus struct {
	AlbumID     string    `json:"albumId"`
	Summary     string    `json:"summary"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// Review is one critic review attached to an album.
type Review struct {
	ID        string    `json:"id"`
	AlbumID   string    `json:"albumId"`
	Source    string    `json:"source"`
	URL       string    `json:"url,omitempty"`
	Excerpt   string    `json:"excerpt,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Stats summarizes the persisted store.
type Stats struct {
	Albums      int        `json:"albums"`
	Artists     int        `json:"artists"`
	Reviews     int        `json:"reviews"`
	LastUpdated *time.Time `json:"lastUpdated,omitempty"`
}

// marshalStrings encodes a string slice as JSON for TEXT column storage.
func marshalStrings(values []string) string {
	if len(values) == 0 {
		return "[]"
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// unmarshalStrings decodes a JSON TEXT column back into a string slice.
func unmarshalStrings(data string) []string {
	if data == "" || data == "[]" {
		return nil
	}
	var values []string
	if err := json.Unmarshal([]byte(data), &values); err != nil {
		return nil
	}
	return values
}
