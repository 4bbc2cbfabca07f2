// Package storage defines read access to objects in external blob storage.
// medsql only ever reads from it: seed datasets are staged out of band and
// fetched once at startup.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrObjectNotFound reports a key with no object behind it. Implementations
// translate their backend's not-found answer into this error so callers can
// distinguish a missing dataset from an outage.
var ErrObjectNotFound = errors.New("object not found")

// ObjectInfo describes an object without fetching its content.
type ObjectInfo struct {
	Key  string
	Size int64
}

// ObjectStore is the read-only surface the seed loader needs.
type ObjectStore interface {
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Stat(ctx context.Context, key string) (ObjectInfo, error)
}
