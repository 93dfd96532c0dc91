package services

import (
	"context"

	"github.com/desertthunder/soundpost/internal/models"
)

// Catalog searches and fetches track metadata from a remote music catalog.
type Catalog interface {
	// SearchTracks runs a free-text search. Queries shorter than two characters return an empty result without I/O.
	SearchTracks(ctx context.Context, q models.SearchQuery) (*models.SearchResult, error)

	// GetTrack fetches one track. A missing track yields nil without error.
	GetTrack(ctx context.Context, id string) (*models.MusicTrack, error)

	// SearchByArtist searches the artist's tracks.
	SearchByArtist(ctx context.Context, artist string, limit int) (*models.SearchResult, error)

	// SearchByAlbum searches the album's tracks.
	SearchByAlbum(ctx context.Context, album string, limit int) (*models.SearchResult, error)

	// SimilarTracks suggests tracks by the same artist, excluding the source track.
	SimilarTracks(ctx context.Context, id string) ([]models.MusicTrack, error)

	// IsAvailable reports whether the catalog answers at all.
	IsAvailable(ctx context.Context) bool

	// ValidatePreviewURL reports whether a preview URL still resolves.
	ValidatePreviewURL(ctx context.Context, url string) bool
}
