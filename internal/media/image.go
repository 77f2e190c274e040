package media

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/disintegration/imaging"
)

var imageFormats = map[string]imaging.Format{
	"image/jpeg": imaging.JPEG,
	"image/jpg":  imaging.JPEG,
	"image/png":  imaging.PNG,
	"image/gif":  imaging.GIF,
	"image/tiff": imaging.TIFF,
	"image/bmp":  imaging.BMP,
}

var formatTypes = map[imaging.Format]string{
	imaging.JPEG: "image/jpeg",
	imaging.PNG:  "image/png",
	imaging.GIF:  "image/gif",
	imaging.TIFF: "image/tiff",
	imaging.BMP:  "image/bmp",
}

var typeExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/tiff": ".tiff",
	"image/bmp":  ".bmp",
	"video/mp4":  ".mp4",
}

// imageFormat reports the format an image content type decodes as
func imageFormat(contentType string) (imaging.Format, bool) {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt = strings.ToLower(strings.TrimSpace(contentType))
	}
	f, ok := imageFormats[mt]
	return f, ok
}

// extensionOf returns the file extension stored objects of a processed
// content type carry
func extensionOf(contentType string) (string, bool) {
	ext, ok := typeExtensions[contentType]
	return ext, ok
}

// ImageResizer shrinks images wider than MaxWidth, keeping aspect ratio.
// Smaller images are re-encoded at their own size.
type ImageResizer struct {
	MaxWidth int
}

// Process returns the encoded result and its content type. Formats the
// resizer cannot decode are rejected with ErrUnsupportedMedia.
func (p ImageResizer) Process(r io.Reader, contentType string) ([]byte, string, error) {
	format, ok := imageFormat(contentType)
	if !ok {
		return nil, "", fmt.Errorf("%w: cannot process %q", ErrUnsupportedMedia, contentType)
	}

	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", fmt.Errorf("%w: cannot decode image: %v", ErrUnsupportedMedia, err)
	}
	if p.MaxWidth > 0 && img.Bounds().Dx() > p.MaxWidth {
		img = imaging.Resize(img, p.MaxWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format, imaging.JPEGQuality(85)); err != nil {
		return nil, "", fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), formatTypes[format], nil
}
