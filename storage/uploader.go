package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

var ErrUnsupportedContentType = errors.New("unsupported image content type")

type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)

	Delete(ctx context.Context, key string) error

	GetPublicURL(key string) string
}

var imageExtensions = map[string]string{
	"image/jpeg":    ".jpg",
	"image/jpg":     ".jpg",
	"image/png":     ".png",
	"image/gif":     ".gif",
	"image/webp":    ".webp",
	"image/svg+xml": ".svg",
}

// ImageExtension maps an image content type to the file extension used in object keys.
func ImageExtension(contentType string) (string, error) {
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	if ext, ok := imageExtensions[ct]; ok {
		return ext, nil
	}
	return "", fmt.Errorf("%w: '%s'", ErrUnsupportedContentType, contentType)
}

// LogoKey builds a unique object key for a university logo.
// Each upload gets a fresh key so CDN caches never serve a stale image.
func LogoKey(universityID int, ext string) string {
	return path.Join("universities", fmt.Sprint(universityID), "logo-"+uuid.NewString()+ext)
}
