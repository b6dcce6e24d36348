package storage

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"
)

// Normalize downsizes JPEG and PNG images to fit maxDim on their longer side
// and applies EXIF orientation. Other formats, and images already small
// enough, are returned unchanged.
func Normalize(img *Image, maxDim int) (*Image, error) {
	if maxDim <= 0 {
		return img, nil
	}

	var format imaging.Format
	switch img.ContentType {
	case "image/jpeg":
		format = imaging.JPEG
	case "image/png":
		format = imaging.PNG
	default:
		return img, nil
	}

	decoded, err := imaging.Decode(bytes.NewReader(img.Data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	bounds := decoded.Bounds()
	if bounds.Dx() <= maxDim && bounds.Dy() <= maxDim {
		return img, nil
	}

	resized := imaging.Fit(decoded, maxDim, maxDim, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, format, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return &Image{Data: buf.Bytes(), ContentType: img.ContentType, Extension: img.Extension}, nil
}
