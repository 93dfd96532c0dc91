// package formatter exports feeds to files (CSV, Markdown, plain text) for sharing outside the client
package formatter

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/soundpost/internal/models"
	"github.com/desertthunder/soundpost/internal/shared"
)

// FeedExport is a snapshot of a feed. ID names the files written for it.
type FeedExport struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	GeneratedAt string        `json:"generatedAt"`
	Posts       []models.Post `json:"-"`
}

// NewFeedExport stamps posts with the generation time.
func NewFeedExport(id, title string, posts []models.Post, now time.Time) *FeedExport {
	return &FeedExport{ID: id, Title: title, GeneratedAt: shared.Timestamp(now), Posts: posts}
}

type metadata struct {
	*FeedExport
	PostCount    int `json:"postCount"`
	LikeCount    int `json:"likeCount"`
	CommentCount int `json:"commentCount"`
}

// ExportToCSV writes one row per post with columns: ID, Author, Content, Track, Artist, Likes, Comments, CreatedAt
func ExportToCSV(export *FeedExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Author", "Content", "Track", "Artist", "Likes", "Comments", "CreatedAt"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, post := range export.Posts {
		var title, artist string
		if post.MusicTrack != nil {
			title, artist = post.MusicTrack.Title, post.MusicTrack.Artist
		}
		record := []string{
			post.ID,
			post.User.DisplayName(),
			post.Content,
			title,
			artist,
			strconv.Itoa(post.LikesCount),
			strconv.Itoa(post.CommentsCount),
			post.CreatedAt,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportToMarkdown renders the feed with comments nested under each post.
//
// covers maps track ids to image paths relative to the Markdown file.
func ExportToMarkdown(export *FeedExport, covers map[string]string) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", export.Title)
	fmt.Fprintf(&buf, "**Posts**: %d\n", len(export.Posts))
	fmt.Fprintf(&buf, "**Generated**: %s\n\n", export.GeneratedAt)

	for _, post := range export.Posts {
		fmt.Fprintf(&buf, "## %s\n\n", post.User.DisplayName())
		if post.Content != "" {
			fmt.Fprintf(&buf, "%s\n\n", post.Content)
		}
		if post.ImageURL != "" {
			fmt.Fprintf(&buf, "![Image](%s)\n\n", post.ImageURL)
		}
		if track := post.MusicTrack; track != nil {
			if cover := covers[track.ID]; cover != "" {
				fmt.Fprintf(&buf, "![Cover](%s)\n\n", cover)
			}
			albumPart := ""
			if track.Album != "" {
				albumPart = fmt.Sprintf(" (%s)", track.Album)
			}
			fmt.Fprintf(&buf, "🎵 %s - %s%s [%s]\n\n", track.Artist, track.Title, albumPart, shared.FormatDuration(track.Duration))
		}
		fmt.Fprintf(&buf, "♥ %d · 💬 %d · %s\n\n", post.LikesCount, post.CommentsCount, post.CreatedAt)

		for _, c := range post.Comments {
			fmt.Fprintf(&buf, "> **%s**: %s\n", c.User.DisplayName(), c.Content)
		}
		if len(post.Comments) > 0 {
			buf.WriteString("\n")
		}
	}
	return buf.Bytes(), nil
}

// ExportToText renders one line per post.
func ExportToText(export *FeedExport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Feed: %s\n", export.Title)
	fmt.Fprintf(&buf, "Posts: %d\n\n", len(export.Posts))

	for i, post := range export.Posts {
		content := strings.Join(strings.Fields(post.Content), " ")
		fmt.Fprintf(&buf, "%d. %s: %s", i+1, post.User.DisplayName(), content)
		if post.MusicTrack != nil {
			fmt.Fprintf(&buf, " [%s - %s]", post.MusicTrack.Artist, post.MusicTrack.Title)
		}
		fmt.Fprintf(&buf, " (%d likes, %d comments)\n", post.LikesCount, post.CommentsCount)
	}
	return buf.Bytes(), nil
}

// ToMetadataJSON summarizes the export without its posts.
func ToMetadataJSON(export *FeedExport) ([]byte, error) {
	m := metadata{FeedExport: export, PostCount: len(export.Posts)}
	for _, p := range export.Posts {
		m.LikeCount += p.LikesCount
		m.CommentCount += p.CommentsCount
	}
	return json.MarshalIndent(m, "", "  ")
}

// DownloadImage fetches url and returns the raw bytes.
func DownloadImage(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: empty URL provided", shared.ErrInvalidArgument)
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	return data, nil
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	PostsFile    string
	MetadataFile string
}

// WriteCSVExport writes {base}_posts.csv and {base}_metadata.json. base defaults to the export ID.
func WriteCSVExport(export *FeedExport, base string) (*CSVExportResult, error) {
	if base == "" {
		base = export.ID
	}

	csvData, err := ExportToCSV(export)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	postsFile := base + "_posts.csv"
	if err := os.WriteFile(postsFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := ToMetadataJSON(export)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := base + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{PostsFile: postsFile, MetadataFile: metadataFile}, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory string
	Files     []string
	Warnings  []string
}

// MarkdownOptions controls WriteMarkdownExport. Covers are only downloaded when Client is set.
type MarkdownOptions struct {
	Dir    string
	Client *http.Client
}

// WriteMarkdownExport writes {dir}/README.md and, when a client is given, {dir}/covers/{track}.jpg.
//
// dir defaults to the export ID. Cover download failures are recorded as warnings.
func WriteMarkdownExport(ctx context.Context, export *FeedExport, opts MarkdownOptions) (*MarkdownExportResult, error) {
	dir := opts.Dir
	if dir == "" {
		dir = export.ID
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{Directory: dir, Files: []string{}}
	covers := map[string]string{}

	if opts.Client != nil {
		for _, post := range export.Posts {
			track := post.MusicTrack
			if track == nil || track.CoverURL == "" || covers[track.ID] != "" {
				continue
			}
			data, err := DownloadImage(ctx, opts.Client, track.CoverURL)
			if err != nil {
				result.Warnings = append(result.Warnings, fmt.Sprintf("cover %s: %v", track.ID, err))
				continue
			}
			rel := filepath.Join("covers", track.ID+".jpg")
			path := filepath.Join(dir, rel)
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return nil, fmt.Errorf("failed to create covers directory: %w", err)
			}
			if err := os.WriteFile(path, data, 0644); err != nil {
				result.Warnings = append(result.Warnings, fmt.Sprintf("cover %s: %v", track.ID, err))
				continue
			}
			covers[track.ID] = filepath.ToSlash(rel)
			result.Files = append(result.Files, path)
		}
	}

	mdData, err := ExportToMarkdown(export, covers)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(dir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}
	result.Files = append(result.Files, mdFile)
	return result, nil
}

// WriteTextExport writes the text rendering. path defaults to {export.ID}_posts.txt.
func WriteTextExport(export *FeedExport, path string) (string, error) {
	if path == "" {
		path = export.ID + "_posts.txt"
	}

	textData, err := ExportToText(export)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(path, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}
	return path, nil
}
