package storage

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"path"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/desertthunder/soundpost/internal/models"
	"github.com/desertthunder/soundpost/internal/shared"
)

// ObjectStore stores binary objects by slash separated path.
type ObjectStore interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) error
	DownloadURL(ctx context.Context, path string) (string, error)
}

// Image size limits applied by [NormalizeImage].
const (
	MaxPostImageWidth = 1080
	AvatarSize        = 400
	JPEGQuality       = 85
)

// PostImagePath returns posts/<userID>/<unix millis>_<name>.
func PostImagePath(userID string, millis int64, name string) string {
	return path.Join("posts", userID, fmt.Sprintf("%d_%s", millis, cleanName(name)))
}

// AvatarPath returns avatars/<userID>/<unix millis>_<name>.
func AvatarPath(userID string, millis int64, name string) string {
	return path.Join("avatars", userID, fmt.Sprintf("%d_%s", millis, cleanName(name)))
}

func cleanName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "image.jpg"
	}
	return strings.ReplaceAll(name, " ", "_")
}

// NormalizeImage decodes an image, shrinks it to fit maxWidth (or fills a square of maxWidth when square is set)
// and re-encodes it as JPEG. GIFs are passed through untouched.
func NormalizeImage(file models.ImageFile, maxWidth int, square bool) (models.ImageFile, error) {
	if strings.EqualFold(file.ContentType, "image/gif") {
		return file, nil
	}

	img, err := imaging.Decode(bytes.NewReader(file.Data), imaging.AutoOrientation(true))
	if err != nil {
		return file, fmt.Errorf("%w: failed to decode image: %v", shared.ErrValidation, err)
	}

	var out image.Image = img
	switch {
	case square:
		out = imaging.Fill(img, maxWidth, maxWidth, imaging.Center, imaging.Lanczos)
	case img.Bounds().Dx() > maxWidth:
		out = imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, imaging.JPEG, imaging.JPEGQuality(JPEGQuality)); err != nil {
		return file, fmt.Errorf("failed to encode jpeg: %w", err)
	}

	name := strings.TrimSuffix(file.Name, path.Ext(file.Name)) + ".jpg"
	return models.ImageFile{Name: name, ContentType: "image/jpeg", Data: buf.Bytes()}, nil
}
