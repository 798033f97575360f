// Package storage persists file payloads behind a pluggable backend.
//
// Paths are assigned by the caller, so several logical files may point at the
// same object. Backends create intermediate "directories" on Save and report
// missing objects with ErrNotFound.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"

	"intakeflow/internal/config"
	"intakeflow/internal/pkg/logger"
)

const (
	TypeLocal = "local"
	TypeS3    = "s3"
	TypeGCS   = "gcs"
	TypeNAS   = "nas"
)

var (
	ErrNotFound       = errors.New("storage: object not found")
	ErrInvalidPath    = errors.New("storage: invalid object path")
	ErrNotImplemented = errors.New("storage: backend not implemented")
)

type Store interface {
	// Save writes the full content of r to path, replacing any existing object.
	Save(ctx context.Context, path string, r io.Reader) (string, error)
	Get(ctx context.Context, path string) ([]byte, error)
	Delete(ctx context.Context, path string) error
	Exists(ctx context.Context, path string) (bool, error)
	// Type is the backend tag recorded on each file row.
	Type() string
}

// New selects the backend named by cfg.Type. Backends that cannot serve
// requests fail here rather than on first use.
func New(ctx context.Context, cfg config.StorageConfig, log *logger.Logger) (Store, error) {
	switch cfg.Type {
	case "", TypeLocal:
		return NewLocalStore(cfg.UploadDir)
	case TypeS3:
		return NewS3Store(ctx, cfg, log)
	case TypeGCS:
		return NewGCSStore(ctx, cfg.GCSBucket, log)
	case TypeNAS:
		return nil, fmt.Errorf("%w: %s", ErrNotImplemented, cfg.Type)
	default:
		return nil, fmt.Errorf("%w: unknown storage type %q", ErrNotImplemented, cfg.Type)
	}
}

// cleanKey normalizes a caller path into a slash separated relative key.
func cleanKey(p string) (string, error) {
	p = strings.ReplaceAll(strings.TrimSpace(p), "\\", "/")
	if p == "" {
		return "", ErrInvalidPath
	}
	cleaned := path.Clean("/" + p)
	key := strings.TrimPrefix(cleaned, "/")
	if key == "" || key == "." {
		return "", ErrInvalidPath
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", ErrInvalidPath
		}
	}
	return key, nil
}

func contentTypeForKey(key string) string {
	if ct := mime.TypeByExtension(path.Ext(key)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
