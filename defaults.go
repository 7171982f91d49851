package cassession

import "time"

const (
	// DefaultSessionTTL applies when no TTL is configured anywhere.
	DefaultSessionTTL = 30 * time.Minute
	defaultKeyPrefix  = "_session_id:"
)

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
