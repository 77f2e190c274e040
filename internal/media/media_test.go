package media

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/planx/internal/models"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		contentType string
		want        models.MediaType
		wantErr     bool
	}{
		{"image/png", models.MediaImage, false},
		{"image/jpeg; charset=binary", models.MediaImage, false},
		{"IMAGE/GIF", models.MediaImage, false},
		{"image/svg+xml", "", true},
		{"image/webp", "", true},
		{"image/x-anything", "", true},
		{"video/mp4", models.MediaVideo, false},
		{"video/quicktime", models.MediaVideo, false},
		{"application/pdf", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			got, err := KindOf(tt.contentType)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedMedia)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestContentTypeOf(t *testing.T) {
	assert.Equal(t, "image/png", ContentTypeOf("image/png", "a.jpg"))
	assert.Equal(t, "image/png", ContentTypeOf("", "a.png"))
	assert.Equal(t, "image/png", ContentTypeOf("application/octet-stream", "A.PNG"))
	assert.Equal(t, "", ContentTypeOf("", "noext"))
}

func TestSanitizeName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"photo.png", "photo.png"},
		{"my photo (1).png", "my_photo__1_.png"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\me\clip.mov`, "clip.mov"},
		{".hidden", "hidden"},
		{"", "file"},
		{"ünï.jpg", "_n_.jpg"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeName(tt.in))
		})
	}

	long := SanitizeName(strings.Repeat("a", 200) + ".png")
	assert.Len(t, long, maxNameLen)
	assert.True(t, strings.HasSuffix(long, ".png"))
}

func pngOf(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestImageResizer(t *testing.T) {
	p := ImageResizer{MaxWidth: 100}

	tests := []struct {
		name         string
		w, h         int
		wantW, wantH int
	}{
		{"downscaled", 400, 200, 100, 50},
		{"small kept", 60, 30, 60, 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, ct, err := p.Process(bytes.NewReader(pngOf(t, tt.w, tt.h)), "image/png")
			require.NoError(t, err)
			assert.Equal(t, "image/png", ct)

			img, err := imaging.Decode(bytes.NewReader(out))
			require.NoError(t, err)
			assert.Equal(t, tt.wantW, img.Bounds().Dx())
			assert.Equal(t, tt.wantH, img.Bounds().Dy())
		})
	}
}

func TestImageResizerRejectsUnknownAndCorrupt(t *testing.T) {
	p := ImageResizer{MaxWidth: 100}

	tests := []struct {
		name, contentType, body string
	}{
		{"svg", "image/svg+xml", "<svg/>"},
		{"made up type", "image/x-anything", "alert(document.domain)"},
		{"corrupt png", "image/png", "not a png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, ct, err := p.Process(strings.NewReader(tt.body), tt.contentType)
			assert.ErrorIs(t, err, ErrUnsupportedMedia)
			assert.Nil(t, out)
			assert.Empty(t, ct)
		})
	}
}

func TestImageResizerNormalizesContentType(t *testing.T) {
	p := ImageResizer{MaxWidth: 100}

	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4)), imaging.JPEG))
	_, ct, err := p.Process(&buf, "image/jpg")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", ct)

	ext, ok := extensionOf(ct)
	require.True(t, ok)
	assert.Equal(t, ".jpg", ext)
}
