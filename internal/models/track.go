package models

// MusicTrack is a catalog track attached to a post. Duration is in seconds.
type MusicTrack struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	Album      string `json:"album"`
	Duration   int    `json:"duration"`
	PreviewURL string `json:"previewUrl,omitempty"`
	CoverURL   string `json:"coverUrl,omitempty"`
	DeezerURL  string `json:"deezerUrl,omitempty"`
}

// HasPreview reports whether the track carries a playable preview.
func (t *MusicTrack) HasPreview() bool {
	return t != nil && t.PreviewURL != ""
}

// Clone returns a copy of t, or nil.
func (t *MusicTrack) Clone() *MusicTrack {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// SearchQuery is a paged catalog search. Zero Limit means the catalog default.
type SearchQuery struct {
	Query string
	Limit int
	Index int
}

// SearchResult is one page of catalog search results.
type SearchResult struct {
	Tracks  []MusicTrack `json:"tracks"`
	Total   int          `json:"total"`
	HasMore bool         `json:"hasMore"`
}
