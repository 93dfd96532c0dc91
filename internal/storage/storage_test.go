package storage

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/desertthunder/soundpost/internal/models"
	"github.com/desertthunder/soundpost/internal/shared"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := range w {
		for y := range h {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

func TestPaths(t *testing.T) {
	if got := PostImagePath("u1", 1700000000000, "my photo.png"); got != "posts/u1/1700000000000_my_photo.png" {
		t.Errorf("unexpected post path: %s", got)
	}
	if got := AvatarPath("u1", 5, "../../etc/passwd"); got != "avatars/u1/5_passwd" {
		t.Errorf("expected directory components stripped, got %s", got)
	}
}

func TestNormalizeImage(t *testing.T) {
	t.Run("Shrinks Wide Image", func(t *testing.T) {
		in := models.ImageFile{Name: "wide.png", ContentType: "image/png", Data: pngBytes(t, 2000, 100)}
		out, err := NormalizeImage(in, MaxPostImageWidth, false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.ContentType != "image/jpeg" || out.Name != "wide.jpg" {
			t.Errorf("expected jpeg output, got %s %s", out.ContentType, out.Name)
		}

		img, err := imaging.Decode(bytes.NewReader(out.Data))
		if err != nil {
			t.Fatalf("failed to decode output: %v", err)
		}
		if img.Bounds().Dx() != MaxPostImageWidth {
			t.Errorf("expected width %d, got %d", MaxPostImageWidth, img.Bounds().Dx())
		}
	})

	t.Run("Square Avatar", func(t *testing.T) {
		in := models.ImageFile{Name: "me.png", ContentType: "image/png", Data: pngBytes(t, 300, 200)}
		out, err := NormalizeImage(in, 64, true)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		img, _ := imaging.Decode(bytes.NewReader(out.Data))
		if img.Bounds().Dx() != 64 || img.Bounds().Dy() != 64 {
			t.Errorf("expected 64x64, got %v", img.Bounds())
		}
	})

	t.Run("Rejects Garbage", func(t *testing.T) {
		_, err := NormalizeImage(models.ImageFile{ContentType: "image/png", Data: []byte("nope")}, 100, false)
		if !errors.Is(err, shared.ErrValidation) {
			t.Errorf("expected ErrValidation, got %v", err)
		}
	})
}

func TestLocalStore(t *testing.T) {
	ctx := context.Background()

	t.Run("Upload And URL", func(t *testing.T) {
		s, err := NewLocalStore(t.TempDir(), "")
		if err != nil {
			t.Fatalf("failed to create store: %v", err)
		}
		if err := s.Upload(ctx, "posts/u1/a.jpg", []byte("x"), "image/jpeg"); err != nil {
			t.Fatalf("failed to upload: %v", err)
		}
		u, err := s.DownloadURL(ctx, "posts/u1/a.jpg")
		if err != nil {
			t.Fatalf("failed to get url: %v", err)
		}
		if !strings.HasPrefix(u, "file://") || !strings.HasSuffix(u, "/posts/u1/a.jpg") {
			t.Errorf("unexpected url: %s", u)
		}
	})

	t.Run("Base URL", func(t *testing.T) {
		s, _ := NewLocalStore(t.TempDir(), "http://cdn.local/")
		s.Upload(ctx, "a.jpg", []byte("x"), "image/jpeg")
		if u, _ := s.DownloadURL(ctx, "a.jpg"); u != "http://cdn.local/a.jpg" {
			t.Errorf("unexpected url: %s", u)
		}
	})

	t.Run("Missing Object", func(t *testing.T) {
		s, _ := NewLocalStore(t.TempDir(), "")
		if _, err := s.DownloadURL(ctx, "nope.jpg"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Path Escape", func(t *testing.T) {
		s, _ := NewLocalStore(t.TempDir(), "")
		if err := s.Upload(ctx, "../outside.jpg", []byte("x"), "image/jpeg"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestS3Store(t *testing.T) {
	var (
		mu      sync.Mutex
		objects = map[string][]byte{}
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		switch r.Method {
		case http.MethodPut:
			body, _ := io.ReadAll(r.Body)
			objects[r.URL.Path] = body
			w.WriteHeader(http.StatusOK)
		case http.MethodHead:
			if _, ok := objects[r.URL.Path]; !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	s, err := NewS3Store(ctx, S3Options{
		Bucket:          "media",
		PublicURL:       "https://media.example.com/",
		Endpoint:        srv.URL,
		Region:          "us-east-1",
		AccessKeyID:     "test",
		SecretAccessKey: "test",
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	t.Run("Upload", func(t *testing.T) {
		if err := s.Upload(ctx, "posts/u1/a.jpg", []byte("jpeg"), "image/jpeg"); err != nil {
			t.Fatalf("failed to upload: %v", err)
		}
		mu.Lock()
		defer mu.Unlock()
		if _, ok := objects["/media/posts/u1/a.jpg"]; !ok {
			t.Errorf("expected path-style object key, got %v", objects)
		}
	})

	t.Run("DownloadURL", func(t *testing.T) {
		u, err := s.DownloadURL(ctx, "posts/u1/a.jpg")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if u != "https://media.example.com/posts/u1/a.jpg" {
			t.Errorf("unexpected url: %s", u)
		}
		if _, err := s.DownloadURL(ctx, "missing.jpg"); err == nil {
			t.Error("expected error for missing object")
		}
	})

	t.Run("Missing Config", func(t *testing.T) {
		if _, err := NewS3Store(ctx, S3Options{}); !errors.Is(err, shared.ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
	})
}

func TestFromConfig(t *testing.T) {
	cfg := shared.DefaultConfig()
	cfg.Storage.LocalDir = t.TempDir()

	s, err := FromConfig(context.Background(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := s.(*LocalStore); !ok {
		t.Errorf("expected LocalStore, got %T", s)
	}

	cfg.Storage.Kind = "floppy"
	if _, err := FromConfig(context.Background(), cfg); !errors.Is(err, shared.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestGCSMediaURL(t *testing.T) {
	got := gcsMediaURL("demo.appspot.com", "posts/u1/a b.jpg")
	want := "https://firebasestorage.googleapis.com/v0/b/demo.appspot.com/o/posts%2Fu1%2Fa%20b.jpg?alt=media"
	if got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}
