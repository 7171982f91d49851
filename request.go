package cassession

import (
	"fmt"
	"io"
)

// RequestContext carries the per-request session state: the current session
// id, the CAS token and snapshot of the last load or write, and the flush
// guard. One request owns it; it is not safe for concurrent use.
type RequestContext struct {
	sessionID string
	token     Token
	snapshot  []byte
	flushing  bool
	errs      io.Writer
}

// NewRequestContext starts a request for sessionID ("" when the client sent
// none). errs receives operator-visible warnings; nil discards them.
func NewRequestContext(sessionID string, errs io.Writer) *RequestContext {
	return &RequestContext{sessionID: sessionID, errs: errs}
}

// SessionID is the id the response should carry.
func (rc *RequestContext) SessionID() string { return rc.sessionID }

// Token is the CAS token of the last successful load or write, or Unconditional.
func (rc *RequestContext) Token() Token { return rc.token }

func (rc *RequestContext) warn(msg string) {
	if rc.errs == nil {
		return
	}
	_, _ = fmt.Fprintln(rc.errs, msg)
}
