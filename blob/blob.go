// Package blob stores mirrored assets durably under deterministic keys.
package blob

import (
	"context"
	"errors"
)

// ErrForeignURL is returned by Delete for a URL the store did not issue.
var ErrForeignURL = errors.New("blob: url not owned by this store")

// Store is durable, publicly readable object storage. Put overwrites any
// object already stored under key and returns its public URL.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, url string) error
}
