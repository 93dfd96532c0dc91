// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/soundpost/internal/models"
)

// MockCatalog is a catalog test double. Tracks are served by id and every search returns Results.
type MockCatalog struct {
	mu       sync.Mutex
	Tracks   map[string]models.MusicTrack
	Results  []models.MusicTrack
	Err      error
	Searches int
	Lookups  int
}

func (m *MockCatalog) SearchTracks(ctx context.Context, q models.SearchQuery) (*models.SearchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Searches++
	if m.Err != nil {
		return nil, m.Err
	}
	tracks := append([]models.MusicTrack{}, m.Results...)
	return &models.SearchResult{Tracks: tracks, Total: len(tracks)}, nil
}

func (m *MockCatalog) GetTrack(ctx context.Context, id string) (*models.MusicTrack, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Lookups++
	if m.Err != nil {
		return nil, m.Err
	}
	t, ok := m.Tracks[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (m *MockCatalog) SearchByArtist(ctx context.Context, artist string, limit int) (*models.SearchResult, error) {
	return m.SearchTracks(ctx, models.SearchQuery{Query: artist, Limit: limit})
}

func (m *MockCatalog) SearchByAlbum(ctx context.Context, album string, limit int) (*models.SearchResult, error) {
	return m.SearchTracks(ctx, models.SearchQuery{Query: album, Limit: limit})
}

func (m *MockCatalog) SimilarTracks(ctx context.Context, id string) ([]models.MusicTrack, error) {
	res, err := m.SearchTracks(ctx, models.SearchQuery{Query: id})
	if err != nil {
		return nil, err
	}
	return res.Tracks, nil
}

func (m *MockCatalog) IsAvailable(ctx context.Context) bool { return m.Err == nil }

func (m *MockCatalog) ValidatePreviewURL(ctx context.Context, url string) bool { return url != "" }

// RoundTripperFunc adapts a function to [http.RoundTripper]
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// JSONResponse builds a response with the given status and body
func JSONResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
