package genstore

import (
	"context"
	"time"
)

// GenStore holds the version counter of every key written through backend/local.
// Versions only ever grow: deletes bump too, so a recreated key never repeats
// a version an earlier reader may still hold.
type GenStore interface {
	// Snapshot returns the current version; missing => 0.
	Snapshot(ctx context.Context, storageKey string) (uint64, error)
	// Bump atomically increments and returns the new version.
	Bump(ctx context.Context, storageKey string) (uint64, error)
	// Cleanup prunes counters untouched for longer than retention.
	Cleanup(retention time.Duration)
	// Close releases resources (no-op ok).
	Close(context.Context) error
}
