package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tgienger/planx/internal/config"
)

var ErrInvalidKey = errors.New("invalid object key")

// Store keeps uploaded objects and hands back their public URL
type Store interface {
	Put(ctx context.Context, key, contentType string, body io.Reader) (string, error)
	Delete(ctx context.Context, key string) error
	// KeyFromURL reverses Put's URL, reporting false for foreign URLs
	KeyFromURL(url string) (string, bool)
}

// New builds the store selected by cfg.Driver
func New(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Driver {
	case "s3":
		return NewS3Store(ctx, cfg)
	case "disk":
		return NewDiskStore(cfg.Dir, cfg.PublicBaseURL)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}

func checkKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "..") || strings.Contains(key, `\`) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}

func trimBase(base, url string) (string, bool) {
	prefix := strings.TrimRight(base, "/") + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(url, prefix)
	return key, checkKey(key) == nil
}
