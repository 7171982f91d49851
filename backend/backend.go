// Package backend defines the versioned key-value transport used by cassession.
//
// A Backend stores opaque bytes under a key together with a server-assigned
// version. Writes and deletes are conditional on the caller presenting the
// version it last observed; version 0 is the unconditional sentinel and
// skips the comparison.
//
// Implementations MUST be atomic per key: the compare and the mutation happen
// as one step on the server (or under one lock for in-process stores), and a
// version is never reused for the same key, so a stale version can never win.
//
// Implementations MUST be byte-for-byte transparent: Get returns exactly the
// bytes previously passed to CompareAndSet.
package backend

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrConflict is returned when the presented version does not match the stored one.
	ErrConflict = errors.New("backend: version mismatch")
	// ErrNotFound is returned by CompareAndDelete (and by conditional writes) for a missing key.
	ErrNotFound = errors.New("backend: key not found")
	// ErrRejected is returned when the store refused a write (eviction/backpressure).
	ErrRejected = errors.New("backend: write rejected")
)

// Backend is a versioned byte store with TTLs. Must be safe for concurrent use.
type Backend interface {
	// Get returns (value, version, true, nil) on hit and (nil, 0, false, nil) on miss.
	// A hit with version 0 means the entry carries no usable version.
	Get(ctx context.Context, key string) (value []byte, version uint64, found bool, err error)

	// CompareAndSet stores value iff the current version equals version, or
	// version is 0. Returns the new version. ttl <= 0 means no expiry.
	CompareAndSet(ctx context.Context, key string, value []byte, version uint64, ttl time.Duration) (uint64, error)

	// CompareAndDelete removes key iff the current version equals version, or version is 0.
	CompareAndDelete(ctx context.Context, key string, version uint64) error

	// Close releases resources.
	Close(ctx context.Context) error
}
