package cassession

import "time"

// Op names a CasCache operation.
type Op string

const (
	OpRead   Op = "read_cas"
	OpWrite  Op = "write_cas"
	OpDelete Op = "delete_cas"
)

// Event describes one CasCache call. Hit is true for a read that found a
// value, and for a write or delete that was applied.
type Event struct {
	Op       Op
	Key      string // storage key
	Hit      bool
	OldToken Token // token presented (writes, deletes)
	NewToken Token // token returned (reads, writes)
	Err      error
	Elapsed  time.Duration
}

// Anomaly reasons reported by the Store.
const (
	ReasonMissingToken  = "missing_token"
	ReasonWriteFailed   = "write_failed"
	ReasonDeleteFailed  = "delete_failed"
	ReasonDestroyFailed = "destroy_failed"
)

// Hooks lightweight callbacks for observability. They are a side channel
// only and never influence control flow.
// Implementations MUST be cheap and non-blocking; wrap slow sinks with hooks/async.
type Hooks interface {
	// One call per CasCache operation.
	CacheOp(ev Event)

	// The Store hit a soft failure on storageKey.
	// reason ∈ {"missing_token", "write_failed", "delete_failed", "destroy_failed"}
	SessionAnomaly(storageKey, reason string, token Token)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) CacheOp(Event)                        {}
func (NopHooks) SessionAnomaly(string, string, Token) {}
