// Package memorystorage keeps all records in memory only. It reuses the
// jsondb implementation without the file persistence.
package memorystorage

import (
	"context"

	"github.com/patric-chuzhbe/libtrack/internal/db/jsondb"
)

// MemoryStorage is the in-memory record store used when neither a
// database DSN nor a storage file is configured.
type MemoryStorage struct {
	*jsondb.JSONDB
}

// New returns an empty in-memory store.
func New() (*MemoryStorage, error) {
	return &MemoryStorage{
		JSONDB: &jsondb.JSONDB{
			Cache: jsondb.NewCache(),
		},
	}, nil
}

// Close is a no-op; nothing is persisted.
func (theStorage *MemoryStorage) Close() error {
	return nil
}

// Ping always succeeds.
func (theStorage *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}
