package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/tgienger/planx/internal/models"
	"github.com/tgienger/planx/internal/storage"
)

// Upload is one file received from a client
type Upload struct {
	Filename    string
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// Stored is an upload after processing and storage
type Stored struct {
	Key  string
	URL  string
	Kind models.MediaType
}

// ImageProcessor compresses a still image
type ImageProcessor interface {
	Process(r io.Reader, contentType string) ([]byte, string, error)
}

// Pipeline validates, compresses and stores uploads
type Pipeline struct {
	store  storage.Store
	images ImageProcessor
	video  Transcoder
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

func NewPipeline(store storage.Store, images ImageProcessor, video Transcoder, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		store:  store,
		images: images,
		video:  video,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Ingest stores every upload and returns them in order. The content type
// of every upload is checked before any work starts. When any file fails,
// files already stored are deleted and the error is returned.
func (p *Pipeline) Ingest(ctx context.Context, uploads []Upload) ([]Stored, error) {
	kinds := make([]models.MediaType, len(uploads))
	for i, u := range uploads {
		kind, err := KindOf(u.ContentType)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", u.Filename, err)
		}
		kinds[i] = kind
	}

	stored := make([]Stored, 0, len(uploads))
	for i, u := range uploads {
		s, err := p.ingestOne(ctx, u, kinds[i])
		if err != nil {
			p.Discard(context.WithoutCancel(ctx), stored)
			return nil, fmt.Errorf("%s: %w", u.Filename, err)
		}
		stored = append(stored, s)
	}
	return stored, nil
}

func (p *Pipeline) ingestOne(ctx context.Context, u Upload, kind models.MediaType) (Stored, error) {
	src, err := u.Open()
	if err != nil {
		return Stored{}, fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	var (
		data        []byte
		contentType string
		name        = SanitizeName(u.Filename)
	)
	switch kind {
	case models.MediaImage:
		data, contentType, err = p.images.Process(src, u.ContentType)
	case models.MediaVideo:
		data, err = p.video.Transcode(ctx, src, u.Filename)
		contentType = "video/mp4"
	}
	if err != nil {
		return Stored{}, err
	}
	ext, ok := extensionOf(contentType)
	if !ok {
		return Stored{}, fmt.Errorf("%w: processed as %q", ErrUnsupportedMedia, contentType)
	}
	name = replaceExt(name, ext)

	key := p.key(name)
	url, err := p.store.Put(ctx, key, contentType, bytes.NewReader(data))
	if err != nil {
		return Stored{}, err
	}
	return Stored{Key: key, URL: url, Kind: kind}, nil
}

func (p *Pipeline) key(name string) string {
	return "media/" + strconv.FormatInt(p.now().UnixMilli(), 10) + "_" + p.newID() + "_" + name
}

// Discard deletes stored objects, logging failures
func (p *Pipeline) Discard(ctx context.Context, stored []Stored) {
	for _, s := range stored {
		if err := p.store.Delete(ctx, s.Key); err != nil {
			p.logger.WarnContext(ctx, "failed to delete orphaned upload", "key", s.Key, "error", err)
		}
	}
}

// DeleteURL removes the object behind a URL produced by the store. URLs
// from elsewhere are ignored.
func (p *Pipeline) DeleteURL(ctx context.Context, url string) error {
	key, ok := p.store.KeyFromURL(url)
	if !ok {
		return nil
	}
	return p.store.Delete(ctx, key)
}
