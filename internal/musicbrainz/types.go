package musicbrainz

// Wire types for the MusicBrainz /ws/2 JSON API. Only the fields the
// enrichment pipeline reads are mapped.

// Release is a MusicBrainz release with the includes the resolver requests
// (artist-credits, labels, release-groups, media, tags).
type Release struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Date         string         `json:"date"`
	Country      string         `json:"country"`
	Status       string         `json:"status"`
	Barcode      string         `json:"barcode"`
	ArtistCredit []ArtistCredit `json:"artist-credit"`
	ReleaseGroup ReleaseGroup   `json:"release-group"`
	LabelInfo    []LabelInfo    `json:"label-info"`
	Media        []Media        `json:"media"`
	Tags         []Tag          `json:"tags"`
}

// ReleaseGroup carries the grouping metadata attached to a release.
type ReleaseGroup struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	PrimaryType      string   `json:"primary-type"`
	SecondaryTypes   []string `json:"secondary-types"`
	FirstReleaseDate string   `json:"first-release-date"`
	Tags             []Tag    `json:"tags"`
}

// ArtistCredit is one entry of a release's artist credit phrase.
type ArtistCredit struct {
	Name   string        `json:"name"`
	Artist *CreditArtist `json:"artist"`
}

// CreditArtist is the artist referenced by a credit entry.
type CreditArtist struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	SortName string `json:"sort-name"`
}

// LabelInfo is one label attached to a release.
type LabelInfo struct {
	Label struct {
		Name string `json:"name"`
	} `json:"label"`
}

// Media is one medium of a release. Search results carry a track count;
// full lookups may carry the track list itself.
type Media struct {
	TrackCount int `json:"track-count"`
	Tracks     []struct {
		Title string `json:"title"`
	} `json:"tracks"`
}

// Tag is a folksonomy tag with its vote count.
type Tag struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Artist is a MusicBrainz artist with tags, aliases, and URL relations.
type Artist struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	SortName  string `json:"sort-name"`
	Type      string `json:"type"`
	Country   string `json:"country"`
	BeginArea *Area  `json:"begin-area"`
	EndArea   *Area  `json:"end-area"`
	LifeSpan  struct {
		Begin string `json:"begin"`
		End   string `json:"end"`
	} `json:"life-span"`
	Tags      []Tag      `json:"tags"`
	Aliases   []Alias    `json:"aliases"`
	Relations []Relation `json:"relations"`
}

// Area is a named place attached to an artist.
type Area struct {
	Name string `json:"name"`
}

// Alias is an alternative artist name.
type Alias struct {
	Name string `json:"name"`
}

// Relation is a typed link from an artist, of which only URL relations
// are requested.
type Relation struct {
	Type string `json:"type"`
	URL  *struct {
		Resource string `json:"resource"`
	} `json:"url"`
}

// searchResponse wraps release search results.
type searchResponse struct {
	Releases []Release `json:"releases"`
	Count    int       `json:"count"`
}
