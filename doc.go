// Package cassession persists per-client session data in a shared cache with
// compare-and-set (CAS) safety, so concurrent requests for the same session id
// cannot silently overwrite each other.
//
// Components:
//   - backend.Backend: versioned byte store (Redis via Lua scripts, or an
//     in-process store layered over a provider.Provider).
//   - CasCache[V]: ReadWithToken / WriteWithToken / DeleteWithToken over a
//     Backend, with a pluggable Codec[V], fail-soft reads and event hooks.
//   - Store: session id allocation, token lifecycle, snapshot comparison and
//     conflict reporting on top of a Cache[Data].
//   - Session: per-request proxy over the session map. Every mutation reloads
//     the session (refreshing the token) and is followed by a flush.
//
// Keys:
//
//	<ns>:_session_id:<sid>   - one entry per session (ns optional)
//
// Request flow:
//
//	rc   := cassession.NewRequestContext(sidFromCookie, errWriter)
//	sess := cassession.NewSession(store, rc, cassession.SessionOptions{})
//	_ = sess.Set(ctx, "user_id", 42) // reload, mutate, flush
//	setCookie(rc.SessionID())
//
// A write that loses the race (token mismatch) is dropped, not merged or
// retried: the token resets to 0, a warning is reported, and the next request
// re-reads the winner's data.
package cassession
