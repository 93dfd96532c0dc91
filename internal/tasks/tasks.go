package tasks

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/soundpost/internal/models"
)

// PostSource lists one author's posts, newest first.
type PostSource interface {
	ListByUser(ctx context.Context, userID string) ([]models.Post, error)
}

// AuthorExportResult is the outcome of exporting one author.
type AuthorExportResult struct {
	AuthorID   string   `json:"authorId"`
	AuthorName string   `json:"authorName"`
	Posts      int      `json:"posts"`
	Files      []string `json:"files,omitempty"`
	Success    bool     `json:"success"`
	Error      error    `json:"-"`
	Message    string   `json:"error,omitempty"`
}

// BulkExportResult summarizes a bulk export. It is also the manifest's content.
type BulkExportResult struct {
	Format            string               `json:"format"`
	GeneratedAt       string               `json:"generatedAt"`
	TotalAuthors      int                  `json:"totalAuthors"`
	SuccessfulExports int                  `json:"successfulExports"`
	FailedExports     int                  `json:"failedExports"`
	OutputDirectory   string               `json:"outputDirectory"`
	ManifestPath      string               `json:"-"`
	Results           []AuthorExportResult `json:"results"`
}

// Exporter runs bulk exports.
type Exporter struct {
	logger *log.Logger
}

// NewExporter creates an Exporter. A nil logger is replaced by the default logger.
func NewExporter(logger *log.Logger) *Exporter {
	if logger == nil {
		logger = log.Default()
	}
	return &Exporter{logger: logger}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *Exporter) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}
