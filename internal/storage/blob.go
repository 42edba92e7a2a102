package storage

import (
	"context"
	"errors"
	"path"
	"strings"

	"github.com/google/uuid"
)

// ErrBlobNotFound is returned when a blob id or URL is unknown or already revoked.
var ErrBlobNotFound = errors.New("blob not found")

// BlobStore holds produced artifacts and hands out URLs for them.
// Revoking a URL frees the artifact; revoking twice is not an error.
type BlobStore interface {
	Put(ctx context.Context, name string, data []byte, contentType string) (string, error)
	Revoke(ctx context.Context, url string) error
}

// ObjectKey builds a unique object path that keeps the artifact's extension.
func ObjectKey(prefix, name string) string {
	ext := path.Ext(name)
	base := strings.TrimSuffix(path.Base(name), ext)
	if base == "" || base == "." || base == "/" {
		base = "blob"
	}
	key := uuid.New().String() + "-" + base + ext
	if prefix == "" {
		return key
	}
	return strings.TrimSuffix(prefix, "/") + "/" + key
}
