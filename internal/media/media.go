package media

import (
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/tgienger/planx/internal/models"
)

var ErrUnsupportedMedia = errors.New("unsupported media type")

// KindOf classifies a declared content type. Only image formats the
// resizer can decode are accepted.
func KindOf(contentType string) (models.MediaType, error) {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt = strings.ToLower(strings.TrimSpace(contentType))
	}
	switch {
	case strings.HasPrefix(mt, "image/"):
		if _, ok := imageFormat(mt); !ok {
			return "", fmt.Errorf("%w: %q", ErrUnsupportedMedia, contentType)
		}
		return models.MediaImage, nil
	case strings.HasPrefix(mt, "video/"):
		return models.MediaVideo, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedMedia, contentType)
	}
}

// ContentTypeOf returns the declared type, guessing from the file name
// when the client sent none or a generic one
func ContentTypeOf(declared, filename string) string {
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if guess := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); guess != "" {
		return guess
	}
	return declared
}

const maxNameLen = 80

// SanitizeName reduces an uploaded file name to a safe object key segment
func SanitizeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.TrimLeft(b.String(), ".")
	if len(out) > maxNameLen {
		ext := filepath.Ext(out)
		if len(ext) > 10 {
			ext = ""
		}
		out = out[:maxNameLen-len(ext)] + ext
	}
	if out == "" {
		out = "file"
	}
	return out
}

func replaceExt(name, ext string) string {
	return strings.TrimSuffix(name, filepath.Ext(name)) + ext
}
