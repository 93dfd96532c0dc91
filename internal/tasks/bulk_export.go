package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/desertthunder/soundpost/internal/formatter"
	"github.com/desertthunder/soundpost/internal/models"
	"github.com/desertthunder/soundpost/internal/shared"
)

// BulkExportOpts contains configuration for bulk feed exports.
type BulkExportOpts struct {
	Format      string       // Export format: json, csv, markdown, txt
	OutputDir   string       // Base output directory (default: feed_export_{epoch})
	NumWorkers  int          // Concurrent workers (default: 5, max: 10)
	RateLimit   float64      // Post lookups per second (default: 5)
	CoverClient *http.Client // Downloads markdown covers when set
	Now         func() time.Time
}

type authorJob struct {
	author *models.User
	posts  []models.Post
}

// BulkExport exports each author's posts concurrently and writes export_manifest.json.
//
// Lookup failures and render failures are recorded per author. Only setup and manifest
// failures are returned as errors.
func (e *Exporter) BulkExport(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	src PostSource,
	authors []*models.User,
	opts BulkExportOpts,
) (*BulkExportResult, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: post source not initialized", shared.ErrServiceUnavailable)
	}

	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("feed_export_%d", opts.Now().Unix())
	}
	if opts.Format == "" {
		opts.Format = "json"
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 5
	}
	opts.NumWorkers = min(opts.NumWorkers, 10)
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &BulkExportResult{
		Format:          opts.Format,
		GeneratedAt:     shared.Timestamp(opts.Now()),
		TotalAuthors:    len(authors),
		OutputDirectory: opts.OutputDir,
		Results:         make([]AuthorExportResult, 0, len(authors)),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	jobs := make(chan authorJob, len(authors))
	results := make(chan AuthorExportResult, len(authors))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go e.exportWorker(ctx, &wg, jobs, results, opts)
	}

	go func() {
		defer close(jobs)
		for i, author := range authors {
			if err := limiter.Wait(ctx); err != nil {
				return
			}

			e.sendProgress(prog, fetchingPostsUpdate(i+1, len(authors), author.DisplayName()))
			posts, err := src.ListByUser(ctx, author.ID)
			if err != nil {
				results <- failedResult(author, fmt.Errorf("failed to fetch posts: %w", err))
				continue
			}
			jobs <- authorJob{author: author, posts: posts}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		if res.Success {
			result.SuccessfulExports++
			e.sendProgress(prog, exportCompletedUpdate(completed, len(authors), res.AuthorName, len(res.Files)))
		} else {
			result.FailedExports++
			res.Message = res.Error.Error()
			e.logger.Warn("author export failed", "author", res.AuthorID, "error", res.Error)
			e.sendProgress(prog, exportFailedUpdate(completed, len(authors), res.AuthorName, res.Error))
		}
		result.Results = append(result.Results, res)
	}

	sort.Slice(result.Results, func(i, j int) bool {
		return result.Results[i].AuthorID < result.Results[j].AuthorID
	})

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	e.sendProgress(prog, manifestUpdate(manifestPath))
	if err := writeManifest(result, manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// exportWorker renders authors from the jobs channel until it closes.
func (e *Exporter) exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan authorJob,
	results chan<- AuthorExportResult,
	opts BulkExportOpts,
) {
	defer wg.Done()

	for job := range jobs {
		if err := ctx.Err(); err != nil {
			results <- failedResult(job.author, err)
			continue
		}
		results <- e.exportAuthor(ctx, job, opts)
	}
}

// exportAuthor writes one author's posts in the requested format.
func (e *Exporter) exportAuthor(ctx context.Context, j authorJob, opts BulkExportOpts) AuthorExportResult {
	result := AuthorExportResult{
		AuthorID:   j.author.ID,
		AuthorName: j.author.DisplayName(),
		Posts:      len(j.posts),
	}

	title := fmt.Sprintf("Posts by %s", result.AuthorName)
	export := formatter.NewFeedExport(j.author.ID, title, j.posts, opts.Now())

	switch opts.Format {
	case "csv":
		res, err := formatter.WriteCSVExport(export, filepath.Join(opts.OutputDir, j.author.ID))
		if err != nil {
			result.Error = fmt.Errorf("CSV export failed: %w", err)
			return result
		}
		result.Files = []string{res.PostsFile, res.MetadataFile}

	case "markdown":
		res, err := formatter.WriteMarkdownExport(ctx, export, formatter.MarkdownOptions{
			Dir:    filepath.Join(opts.OutputDir, j.author.ID),
			Client: opts.CoverClient,
		})
		if err != nil {
			result.Error = fmt.Errorf("markdown export failed: %w", err)
			return result
		}
		for _, w := range res.Warnings {
			e.logger.Warn("export warning", "author", j.author.ID, "detail", w)
		}
		result.Files = res.Files

	case "txt":
		path, err := formatter.WriteTextExport(export, filepath.Join(opts.OutputDir, j.author.ID+"_posts.txt"))
		if err != nil {
			result.Error = fmt.Errorf("text export failed: %w", err)
			return result
		}
		result.Files = []string{path}

	case "json":
		path := filepath.Join(opts.OutputDir, j.author.ID+".json")
		data, err := json.MarshalIndent(struct {
			*formatter.FeedExport
			Posts []models.Post `json:"posts"`
		}{export, j.posts}, "", "  ")
		if err != nil {
			result.Error = fmt.Errorf("JSON marshal failed: %w", err)
			return result
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			result.Error = fmt.Errorf("JSON write failed: %w", err)
			return result
		}
		result.Files = []string{path}

	default:
		result.Error = fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, opts.Format)
		return result
	}

	result.Success = true
	return result
}

func failedResult(author *models.User, err error) AuthorExportResult {
	return AuthorExportResult{AuthorID: author.ID, AuthorName: author.DisplayName(), Error: err}
}

func writeManifest(result *BulkExportResult, path string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
