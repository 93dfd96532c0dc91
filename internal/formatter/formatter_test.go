package formatter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/soundpost/internal/models"
	th "github.com/desertthunder/soundpost/internal/testing"
)

func sampleExport(coverURL string) *FeedExport {
	ana := &models.User{ID: "u1", Username: "ana", FullName: "Ana Uno"}
	beto := &models.User{ID: "u2", Username: "beto", FullName: "Beto Dos"}

	return NewFeedExport("feed", "Latest posts", []models.Post{
		{
			ID:      "p1",
			UserID:  "u1",
			User:    ana,
			Content: "escuchen esto,\nen serio",
			MusicTrack: &models.MusicTrack{
				ID: "3135556", Title: "Harder, Better, Faster, Stronger", Artist: "Daft Punk",
				Album: "Discovery", Duration: 224, CoverURL: coverURL,
			},
			LikesCount:    1,
			LikedBy:       []string{"u2"},
			CommentsCount: 1,
			Comments:      []models.Comment{{ID: "c1", UserID: "u2", User: beto, Content: "temazo"}},
			CreatedAt:     "2024-05-01T12:00:00.000Z",
		},
		{
			ID:        "p2",
			UserID:    "u9",
			Content:   "sin perfil",
			CreatedAt: "2024-05-01T11:00:00.000Z",
		},
	}, time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC))
}

func TestExporters(t *testing.T) {
	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(sampleExport(""))
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}
		output := string(data)

		if !strings.HasPrefix(output, "ID,Author,Content,Track,Artist,Likes,Comments,CreatedAt\n") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, `p1,Ana Uno,"escuchen esto,`) {
			t.Errorf("CSV should quote multi-line content, got: %s", output)
		}
		if !strings.Contains(output, `"Harder, Better, Faster, Stronger",Daft Punk,1,1,`) {
			t.Errorf("CSV missing track columns, got: %s", output)
		}
		if !strings.Contains(output, "p2,Usuario,sin perfil,,,0,0,") {
			t.Errorf("CSV should fall back to the placeholder author, got: %s", output)
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		data, err := ExportToMarkdown(sampleExport(""), map[string]string{"3135556": "covers/3135556.jpg"})
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}
		output := string(data)

		for _, want := range []string{
			"# Latest posts",
			"**Posts**: 2",
			"## Ana Uno",
			"![Cover](covers/3135556.jpg)",
			"Daft Punk - Harder, Better, Faster, Stronger (Discovery) [3:44]",
			"> **Beto Dos**: temazo",
			"## Usuario",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("Markdown missing %q, got:\n%s", want, output)
			}
		}
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(sampleExport(""))
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}
		output := string(data)

		if !strings.Contains(output, "1. Ana Uno: escuchen esto, en serio [Daft Punk - Harder, Better, Faster, Stronger] (1 likes, 1 comments)") {
			t.Errorf("unexpected text output:\n%s", output)
		}
		if !strings.Contains(output, "2. Usuario: sin perfil (0 likes, 0 comments)") {
			t.Errorf("unexpected text output:\n%s", output)
		}
	})

	t.Run("ToMetadataJSON", func(t *testing.T) {
		data, err := ToMetadataJSON(sampleExport(""))
		if err != nil {
			t.Fatalf("ToMetadataJSON failed: %v", err)
		}

		var got map[string]any
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if got["id"] != "feed" || got["postCount"] != float64(2) || got["likeCount"] != float64(1) || got["commentCount"] != float64(1) {
			t.Errorf("metadata = %v", got)
		}
		if _, ok := got["posts"]; ok {
			t.Error("metadata should not include posts")
		}
		if got["generatedAt"] != "2024-05-02T09:00:00.000Z" {
			t.Errorf("generatedAt = %v", got["generatedAt"])
		}
	})
}

func TestWriters(t *testing.T) {
	t.Run("WriteCSVExport", func(t *testing.T) {
		tempDir := t.TempDir()
		originalDir := th.MustGetwd(t)
		th.MustChdir(t, tempDir)
		defer th.MustChdir(t, originalDir)

		result, err := WriteCSVExport(sampleExport(""), "")
		if err != nil {
			t.Fatalf("WriteCSVExport failed: %v", err)
		}
		if result.PostsFile != "feed_posts.csv" || result.MetadataFile != "feed_metadata.json" {
			t.Errorf("result = %+v", result)
		}
		th.AssertFileExists(t, result.PostsFile)
		th.AssertFileExists(t, result.MetadataFile)

		result, err = WriteCSVExport(sampleExport(""), "custom")
		if err != nil {
			t.Fatalf("WriteCSVExport failed: %v", err)
		}
		if result.PostsFile != "custom_posts.csv" {
			t.Errorf("PostsFile = %q", result.PostsFile)
		}
	})

	t.Run("WriteMarkdownExport", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/missing.jpg" {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Header().Set("Content-Type", "image/jpeg")
			_, _ = w.Write([]byte("jpeg-bytes"))
		}))
		defer server.Close()

		dir := filepath.Join(t.TempDir(), "out")
		result, err := WriteMarkdownExport(context.Background(), sampleExport(server.URL+"/cover.jpg"), MarkdownOptions{Dir: dir, Client: server.Client()})
		if err != nil {
			t.Fatalf("WriteMarkdownExport failed: %v", err)
		}

		th.AssertDirExists(t, result.Directory)
		cover := filepath.Join(dir, "covers", "3135556.jpg")
		th.AssertFileExists(t, cover)
		if th.MustReadFile(t, cover) != "jpeg-bytes" {
			t.Error("cover content mismatch")
		}
		if !strings.Contains(th.MustReadFile(t, filepath.Join(dir, "README.md")), "![Cover](covers/3135556.jpg)") {
			t.Error("README does not reference the downloaded cover")
		}

		result, err = WriteMarkdownExport(context.Background(), sampleExport(server.URL+"/missing.jpg"), MarkdownOptions{Dir: dir, Client: server.Client()})
		if err != nil {
			t.Fatalf("WriteMarkdownExport failed: %v", err)
		}
		if len(result.Warnings) != 1 {
			t.Errorf("warnings = %v", result.Warnings)
		}
	})

	t.Run("WriteTextExport", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "feed.txt")
		got, err := WriteTextExport(sampleExport(""), path)
		if err != nil {
			t.Fatalf("WriteTextExport failed: %v", err)
		}
		if got != path {
			t.Errorf("path = %q", got)
		}
		if !strings.HasPrefix(th.MustReadFile(t, path), "Feed: Latest posts") {
			t.Error("unexpected text file content")
		}
	})
}

func TestDownloadImage(t *testing.T) {
	if _, err := DownloadImage(context.Background(), nil, ""); err == nil {
		t.Error("expected error for empty URL")
	}

	client := &http.Client{Transport: th.RoundTripperFunc(func(*http.Request) (*http.Response, error) {
		return th.JSONResponse(http.StatusInternalServerError, "{}"), nil
	})}
	if _, err := DownloadImage(context.Background(), client, "https://img.example.com/a.jpg"); err == nil {
		t.Error("expected error for non-200 status")
	}
}
