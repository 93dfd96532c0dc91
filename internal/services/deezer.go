package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/soundpost/internal/models"
	"github.com/desertthunder/soundpost/internal/shared"
)

const (
	deezerBaseURL      = "https://api.deezer.com"
	deezerTrackURL     = "https://www.deezer.com/track/"
	defaultSearchLimit = 25
	artistSearchLimit  = 10
	similarSearchLimit = 5
	minQueryLength     = 2
)

// DeezerArtist is the artist object embedded in a Deezer track.
type DeezerArtist struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// DeezerAlbum is the album object embedded in a Deezer track.
type DeezerAlbum struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Cover       string `json:"cover"`
	CoverMedium string `json:"cover_medium"`
}

// DeezerTrack is a track record from the Deezer API.
type DeezerTrack struct {
	ID       int64        `json:"id"`
	Title    string       `json:"title"`
	Duration int          `json:"duration"`
	Preview  string       `json:"preview"`
	Artist   DeezerArtist `json:"artist"`
	Album    DeezerAlbum  `json:"album"`
}

// DeezerSearchResponse is the payload of GET /search.
type DeezerSearchResponse struct {
	Data  []DeezerTrack `json:"data"`
	Total int           `json:"total"`
}

// ToMusicTrack normalizes a Deezer record.
func (t DeezerTrack) ToMusicTrack() models.MusicTrack {
	cover := t.Album.CoverMedium
	if cover == "" {
		cover = t.Album.Cover
	}
	id := strconv.FormatInt(t.ID, 10)
	return models.MusicTrack{
		ID:         id,
		Title:      t.Title,
		Artist:     t.Artist.Name,
		Album:      t.Album.Title,
		Duration:   t.Duration,
		PreviewURL: t.Preview,
		CoverURL:   cover,
		DeezerURL:  deezerTrackURL + id,
	}
}

// DeezerService implements [Catalog] against the Deezer API through a [RelayChain].
type DeezerService struct {
	baseURL    string
	relays     *RelayChain
	httpClient *http.Client
	logger     *log.Logger
}

// NewDeezerService creates a Deezer client. An empty baseURL selects the public API.
//
// httpClient is used for direct requests such as preview validation.
func NewDeezerService(baseURL string, relays *RelayChain, httpClient *http.Client, logger *log.Logger) *DeezerService {
	if baseURL == "" {
		baseURL = deezerBaseURL
	}
	if relays == nil {
		relays = NewRelayChain(RelayChainOpts{HTTPClient: httpClient, Logger: logger})
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return &DeezerService{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		relays:     relays,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Name returns the catalog name.
func (s *DeezerService) Name() string { return "Deezer" }

// SearchTracks searches tracks and reports whether more pages remain.
func (s *DeezerService) SearchTracks(ctx context.Context, q models.SearchQuery) (*models.SearchResult, error) {
	term := strings.TrimSpace(q.Query)
	if len([]rune(term)) < minQueryLength {
		return &models.SearchResult{Tracks: []models.MusicTrack{}}, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	index := max(q.Index, 0)

	params := url.Values{}
	params.Set("q", term)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("index", strconv.Itoa(index))
	target := s.baseURL + "/search?" + params.Encode()

	s.logger.Debug("searching catalog", "query", term, "limit", limit, "index", index)

	resp, err := s.relays.Do(ctx, target)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, fmt.Errorf("%w: search returned status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	body, err := jsonBody(resp)
	if err != nil {
		return nil, err
	}

	var raw struct {
		Data  *[]DeezerTrack `json:"data"`
		Total int            `json:"total"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrMalformedResponse, err)
	}
	if raw.Data == nil {
		return nil, fmt.Errorf("%w: search response has no data array", shared.ErrMalformedResponse)
	}

	tracks := make([]models.MusicTrack, 0, len(*raw.Data))
	for _, t := range *raw.Data {
		tracks = append(tracks, t.ToMusicTrack())
	}

	return &models.SearchResult{
		Tracks:  tracks,
		Total:   raw.Total,
		HasMore: index+limit < raw.Total,
	}, nil
}

// GetTrack fetches one track; 404 yields nil without error.
func (s *DeezerService) GetTrack(ctx context.Context, id string) (*models.MusicTrack, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: track id", shared.ErrMissingArgument)
	}

	resp, err := s.relays.Do(ctx, s.baseURL+"/track/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if !resp.OK() {
		return nil, fmt.Errorf("%w: track lookup returned status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	body, err := jsonBody(resp)
	if err != nil {
		return nil, err
	}

	// Deezer answers unknown ids with 200 and an error object.
	var raw struct {
		DeezerTrack
		Error *struct {
			Type    string `json:"type"`
			Message string `json:"message"`
			Code    int    `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrMalformedResponse, err)
	}
	if raw.Error != nil {
		if raw.Error.Code == 800 {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %s", shared.ErrAPIRequest, raw.Error.Message)
	}
	if raw.ID == 0 {
		return nil, fmt.Errorf("%w: track response has no id", shared.ErrMalformedResponse)
	}

	track := raw.DeezerTrack.ToMusicTrack()
	return &track, nil
}

// SearchByArtist searches with an artist:"name" query.
func (s *DeezerService) SearchByArtist(ctx context.Context, artist string, limit int) (*models.SearchResult, error) {
	if limit <= 0 {
		limit = artistSearchLimit
	}
	return s.SearchTracks(ctx, models.SearchQuery{Query: `artist:"` + artist + `"`, Limit: limit})
}

// SearchByAlbum searches with an album:"title" query.
func (s *DeezerService) SearchByAlbum(ctx context.Context, album string, limit int) (*models.SearchResult, error) {
	if limit <= 0 {
		limit = artistSearchLimit
	}
	return s.SearchTracks(ctx, models.SearchQuery{Query: `album:"` + album + `"`, Limit: limit})
}

// SimilarTracks returns other tracks by the same artist. Deezer has no recommendation endpoint.
func (s *DeezerService) SimilarTracks(ctx context.Context, id string) ([]models.MusicTrack, error) {
	track, err := s.GetTrack(ctx, id)
	if err != nil {
		return nil, err
	}
	if track == nil {
		return []models.MusicTrack{}, nil
	}

	result, err := s.SearchByArtist(ctx, track.Artist, similarSearchLimit)
	if err != nil {
		return nil, err
	}

	similar := make([]models.MusicTrack, 0, len(result.Tracks))
	for _, t := range result.Tracks {
		if t.ID != id {
			similar = append(similar, t)
		}
	}
	return similar, nil
}

// IsAvailable fetches the genre list through the relays.
func (s *DeezerService) IsAvailable(ctx context.Context) bool {
	resp, err := s.relays.Do(ctx, s.baseURL+"/genre")
	if err != nil {
		s.logger.Warn("catalog unavailable", "error", err)
		return false
	}
	return resp.OK()
}

// ValidatePreviewURL sends a direct HEAD request to the preview.
func (s *DeezerService) ValidatePreviewURL(ctx context.Context, previewURL string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, previewURL, nil)
	if err != nil {
		return false
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// jsonBody rejects relay error pages served as HTML.
func jsonBody(resp *RelayResponse) ([]byte, error) {
	body := bytes.TrimSpace(resp.Body)
	if bytes.HasPrefix(body, []byte("<")) {
		return nil, fmt.Errorf("%w (relay %s)", shared.ErrRelayReturnedHTML, resp.Relay)
	}
	return body, nil
}
