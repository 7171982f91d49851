package cassession

import (
	"errors"
	"fmt"
)

var (
	// ErrDisabled is returned by writes and deletes on a disabled CasCache.
	ErrDisabled = errors.New("cassession: cache disabled")
	// ErrMissingToken marks a read that returned a value without a usable token.
	// It is reported, never returned: the session continues with unconditional writes.
	ErrMissingToken = errors.New("cassession: value returned without cas token")
)

// TransportError is a network/server failure reaching the cache.
type TransportError struct {
	Op  Op
	Key string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("cassession: %s %q: transport: %v", e.Op, e.Key, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ConflictError means the presented token no longer matches the stored entry:
// another writer won, or the entry was removed. errors.Is(err, backend.ErrConflict)
// or backend.ErrNotFound tells which.
type ConflictError struct {
	Op    Op
	Key   string
	Token Token
	Err   error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("cassession: %s %q with token=%d: %v", e.Op, e.Key, e.Token, e.Err)
}

func (e *ConflictError) Unwrap() error { return e.Err }

// PreconditionError is returned to direct Store callers for operations on an
// unset session id or without a request context.
type PreconditionError struct {
	Op     string
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("cassession: %s: %s", e.Op, e.Reason)
}

// DroppedWriteError is returned by Store.Set when the session could not be
// persisted. The in-memory session is ahead of the cache until the next
// request re-reads it.
type DroppedWriteError struct {
	SessionID string
	Err       error
}

func (e *DroppedWriteError) Error() string {
	return fmt.Sprintf("cassession: session %s not saved: %v", e.SessionID, e.Err)
}

func (e *DroppedWriteError) Unwrap() error { return e.Err }
