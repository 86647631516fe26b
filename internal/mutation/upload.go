package mutation

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/afero"

	"github.com/five82/marquee/internal/catalog"
)

// MaxUploadBytes is the largest image accepted for upload.
const MaxUploadBytes = 5 << 20

// Upload check failures.
var (
	ErrNotImage = errors.New("file is not an image")
	ErrTooLarge = errors.New("file exceeds 5MB")
)

// UploadError aborts a submission whose image could not be uploaded.
type UploadError struct {
	Field string
	Path  string
	Err   error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %s %s: %v", e.Field, e.Path, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// Image is a local file that passed the upload checks.
type Image struct {
	Name        string
	ContentType string
	Data        []byte
}

// LoadImage reads path from fsys and checks that it is an image no larger
// than MaxUploadBytes. The content type is sniffed from the bytes, not taken
// from the extension.
func LoadImage(fsys afero.Fs, path string) (*Image, error) {
	info, err := fsys.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > MaxUploadBytes {
		return nil, ErrTooLarge
	}
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, err
	}
	if len(data) > MaxUploadBytes {
		return nil, ErrTooLarge
	}
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, ErrNotImage
	}
	contentType, _, _ := strings.Cut(mt.String(), ";")
	return &Image{Name: filepath.Base(path), ContentType: contentType, Data: data}, nil
}

// uploadImages replaces the poster and backdrop references in input with
// freshly uploaded objects, poster first. The first failure aborts; input is
// left as it was.
func (c *Controller) uploadImages(ctx context.Context, form Form, input *catalog.MovieInput) error {
	uploads := []struct {
		field string
		path  string
		dst   *string
	}{
		{"poster", strings.TrimSpace(form.PosterFile), new(string)},
		{"backdrop", strings.TrimSpace(form.BackdropFile), new(string)},
	}
	for _, u := range uploads {
		if u.path == "" {
			continue
		}
		publicURL, err := c.upload(ctx, u.path)
		if err != nil {
			c.logger.Warn("image upload failed", "field", u.field, "path", u.path, "error", err)
			return &UploadError{Field: u.field, Path: u.path, Err: err}
		}
		*u.dst = publicURL
	}
	if v := *uploads[0].dst; v != "" {
		input.PosterPath = v
	}
	if v := *uploads[1].dst; v != "" {
		input.BackdropPath = v
	}
	return nil
}

func (c *Controller) upload(ctx context.Context, path string) (string, error) {
	img, err := LoadImage(c.fs, path)
	if err != nil {
		return "", err
	}
	target, err := c.api.Presign(ctx, img.Name, img.ContentType)
	if err != nil {
		return "", fmt.Errorf("presign: %w", err)
	}
	if err := c.api.PutObject(ctx, target.PresignedURL, img.Data, img.ContentType); err != nil {
		return "", fmt.Errorf("transfer: %w", err)
	}
	c.logger.Info("image uploaded", "name", img.Name, "content_type", img.ContentType, "bytes", len(img.Data))
	return target.PublicURL, nil
}

func uploadMessage(err error) string {
	switch {
	case errors.Is(err, ErrNotImage):
		return "Please select a valid image file"
	case errors.Is(err, ErrTooLarge):
		return "File size must be less than 5MB"
	default:
		return "Failed to upload image"
	}
}
