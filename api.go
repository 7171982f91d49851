package cassession

import (
	"context"
	"time"

	"github.com/unkn0wn-root/cassession/backend"
	c "github.com/unkn0wn-root/cassession/codec"
)

// Token is the version a backend assigned to a stored entry.
type Token uint64

// Unconditional is the "no known version" sentinel: never read, or invalidated
// after a failed write. Writes presenting it skip the version check.
const Unconditional Token = 0

// Data is the session mapping exposed to application code.
type Data = map[string]any

// Cache is the versioned cache the Store is built on. *CasCache[V] implements it.
type Cache[V any] interface {
	// ReadWithToken returns the value and its token. Errors are only returned in strict mode.
	ReadWithToken(ctx context.Context, key string) (v V, token Token, found bool, err error)
	// WriteWithToken stores v iff the stored token equals token (or token is Unconditional).
	// ttl == 0 uses DefaultTTL; ttl < 0 means no expiry.
	WriteWithToken(ctx context.Context, key string, v V, token Token, ttl time.Duration) (Token, error)
	// DeleteWithToken removes key iff the stored token equals token (or token is Unconditional).
	DeleteWithToken(ctx context.Context, key string, token Token) error
	DefaultTTL() time.Duration
	Close(context.Context) error
}

// IDGenerator allocates session ids. Implementations in package sid.
type IDGenerator interface {
	Generate() (string, error)
}

// SessionStore is what a Session proxies to. *Store implements it.
type SessionStore interface {
	Get(ctx context.Context, rc *RequestContext, sessionID string) (string, Data, error)
	Set(ctx context.Context, rc *RequestContext, sessionID string, data Data, ttl time.Duration) (string, error)
	Destroy(ctx context.Context, rc *RequestContext, sessionID string) (string, error)
}

// CacheOptions tune a CasCache. Backend and Codec are required.
type CacheOptions[V any] struct {
	// Required
	Backend backend.Backend
	Codec   c.Codec[V]

	Namespace  string        // optional key prefix, e.g. "app:prod"
	Logger     Logger        // if nil, NopLogger is used
	Hooks      Hooks         // if nil, NopHooks is used
	DefaultTTL time.Duration // 0 => 30m
	Strict     bool          // return read transport errors instead of reporting a miss
	Disabled   bool          // reads miss, writes and deletes fail with ErrDisabled
}

// StoreOptions tune a Store. Only Cache is required.
type StoreOptions struct {
	// Required
	Cache Cache[Data]

	// Codec encodes snapshots for change detection; must be deterministic.
	// nil => codec.JSON[Data].
	Codec       c.Codec[Data]
	IDGenerator IDGenerator   // nil => sid.UUID
	KeyPrefix   string        // "" => "_session_id:"
	TTL         time.Duration // 0 => Cache.DefaultTTL()
	Logger      Logger        // if nil, NopLogger is used
	Notifier    Notifier      // if nil, NopNotifier is used
	Hooks       Hooks         // if nil, NopHooks is used
}

// SessionOptions tune a Session. All fields are optional.
type SessionOptions struct {
	TTL      time.Duration // passed to Store.Set; 0 => store TTL
	Logger   Logger
	Notifier Notifier
}
