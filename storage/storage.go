package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrImageTooLarge = errors.New("image exceeds the maximum upload size")
	ErrNotAnImage    = errors.New("file is not an image")
	ErrEmptyFile     = errors.New("empty file")
)

// ObjectStore uploads a blob and returns its public URL.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// Image is an upload that passed CheckImage.
type Image struct {
	Data        []byte
	ContentType string
	Extension   string
}

// CheckImage sniffs the content and enforces the size limit. It runs before
// any network call so a rejected file never reaches the store.
func CheckImage(data []byte, maxBytes int64) (*Image, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w (%d MB max)", ErrImageTooLarge, maxBytes/(1024*1024))
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, fmt.Errorf("%w: detected %s", ErrNotAnImage, mt.String())
	}

	ext := strings.TrimPrefix(mt.Extension(), ".")
	if ext == "" {
		ext = "bin"
	}
	return &Image{Data: data, ContentType: mt.String(), Extension: ext}, nil
}

// ObjectKey names an upload <owner>/<unix millis>.<ext>.
func ObjectKey(owner string, at time.Time, ext string) string {
	return fmt.Sprintf("%s/%d.%s", owner, at.UnixMilli(), strings.TrimPrefix(ext, "."))
}
