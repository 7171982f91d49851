package cassession

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	c "github.com/unkn0wn-root/cassession/codec"
	"github.com/unkn0wn-root/cassession/internal/util"
	"github.com/unkn0wn-root/cassession/sid"
)

// Store keeps sessions in a Cache[Data] under "<prefix><sid>" and manages the
// CAS token of each request. A write that loses the race is dropped and
// reported; it is never retried or merged.
type Store struct {
	cache    Cache[Data]
	codec    c.Codec[Data]
	ids      IDGenerator
	prefix   string
	ttl      time.Duration
	log      Logger
	notifier Notifier
	hooks    Hooks
}

var _ SessionStore = (*Store)(nil)

func NewStore(opts StoreOptions) (*Store, error) {
	if opts.Cache == nil {
		return nil, errors.New("cassession: cache is required")
	}
	s := &Store{
		cache:    opts.Cache,
		codec:    opts.Codec,
		ids:      opts.IDGenerator,
		prefix:   coalesce(opts.KeyPrefix, defaultKeyPrefix),
		ttl:      coalesce(opts.TTL, opts.Cache.DefaultTTL()),
		log:      opts.Logger,
		notifier: opts.Notifier,
		hooks:    opts.Hooks,
	}
	if s.codec == nil {
		s.codec = c.JSON[Data]{}
	}
	if s.ids == nil {
		s.ids = sid.UUID{}
	}
	if s.log == nil {
		s.log = NopLogger{}
	}
	if s.notifier == nil {
		s.notifier = NopNotifier{}
	}
	if s.hooks == nil {
		s.hooks = NopHooks{}
	}
	return s, nil
}

func (s *Store) TTL() time.Duration { return s.ttl }

func (s *Store) key(sessionID string) string { return util.SessionKey(s.prefix, sessionID) }

// Get loads sessionID and records its token and snapshot in rc. An empty or
// unknown id yields a freshly allocated id with empty data. Read failures are
// only returned when the cache is strict.
func (s *Store) Get(ctx context.Context, rc *RequestContext, sessionID string) (string, Data, error) {
	if rc == nil {
		return "", nil, &PreconditionError{Op: "get", Reason: "nil request context"}
	}

	var (
		data  Data
		found bool
	)
	if sessionID != "" {
		key := s.key(sessionID)
		v, tok, ok, err := s.cache.ReadWithToken(ctx, key)
		if err != nil {
			return "", nil, err
		}
		if ok {
			data, found = v, true
			rc.token = tok
			if tok == Unconditional {
				s.whine(ctx, key, ReasonMissingToken, tok,
					fmt.Sprintf("didn't get cas for session %s", key), ErrMissingToken)
			}
		}
	}
	if !found {
		id, err := s.ids.Generate()
		if err != nil {
			return "", nil, fmt.Errorf("cassession: generate session id: %w", err)
		}
		sessionID, data = id, Data{}
		rc.token = Unconditional
	}
	if data == nil {
		data = Data{}
	}

	snap, err := s.codec.Encode(data)
	if err != nil {
		return "", nil, fmt.Errorf("cassession: snapshot %s: %w", sessionID, err)
	}
	rc.snapshot = snap
	return sessionID, data, nil
}

// Set persists data for sessionID with the token held in rc. Data equal to
// the last snapshot is not written. Empty data deletes the entry. A failed
// write resets the token and returns a *DroppedWriteError.
func (s *Store) Set(ctx context.Context, rc *RequestContext, sessionID string, data Data, ttl time.Duration) (string, error) {
	if rc == nil {
		return sessionID, &PreconditionError{Op: "set", Reason: "nil request context"}
	}
	if sessionID == "" {
		return sessionID, &PreconditionError{Op: "set", Reason: "session id is not set"}
	}
	if data == nil {
		data = Data{}
	}
	key := s.key(sessionID)

	enc, err := s.codec.Encode(data)
	if err != nil {
		s.log.Warn("session not encodable", Fields{"key": key, "err": err})
		return sessionID, &DroppedWriteError{SessionID: sessionID, Err: err}
	}
	if rc.snapshot != nil && bytes.Equal(enc, rc.snapshot) {
		s.log.Debug("session unchanged, not writing", Fields{"session_id": sessionID})
		return sessionID, nil
	}

	tok := rc.token
	if len(data) == 0 {
		err := s.cache.DeleteWithToken(ctx, key, tok)
		// deleted or stale: either way the token is spent
		rc.token = Unconditional
		if err != nil {
			if tok != Unconditional {
				s.whine(ctx, key, ReasonDeleteFailed, tok,
					fmt.Sprintf("couldn't delete session %s with cas=%d", key, tok), err)
			}
			return sessionID, nil
		}
		rc.snapshot = enc
		return sessionID, nil
	}

	if ttl == 0 {
		ttl = s.ttl
	}
	next, err := s.cache.WriteWithToken(ctx, key, data, tok, ttl)
	if err != nil {
		// reset before reporting: a notifier that touches the session sees a clean token
		rc.token = Unconditional
		s.whine(ctx, key, ReasonWriteFailed, tok,
			fmt.Sprintf("couldn't write session %s with cas=%d", key, tok), err)
		return sessionID, &DroppedWriteError{SessionID: sessionID, Err: err}
	}
	rc.token = next
	rc.snapshot = enc
	return sessionID, nil
}

// Destroy deletes sessionID and returns a fresh id. The token is reset
// whether or not the delete landed.
func (s *Store) Destroy(ctx context.Context, rc *RequestContext, sessionID string) (string, error) {
	if rc == nil {
		return "", &PreconditionError{Op: "destroy", Reason: "nil request context"}
	}
	if sessionID == "" {
		return "", &PreconditionError{Op: "destroy", Reason: "session id is not set"}
	}
	key := s.key(sessionID)
	tok := rc.token

	if err := s.cache.DeleteWithToken(ctx, key, tok); err != nil && tok != Unconditional {
		s.whine(ctx, key, ReasonDestroyFailed, tok,
			fmt.Sprintf("couldn't delete session %s with cas=%d", key, tok), err)
	}
	rc.token = Unconditional
	// the fresh id has nothing stored yet; an empty flush must not touch the cache
	if empty, err := s.codec.Encode(Data{}); err == nil {
		rc.snapshot = empty
	}

	id, err := s.ids.Generate()
	if err != nil {
		return "", fmt.Errorf("cassession: generate session id: %w", err)
	}
	return id, nil
}

func (s *Store) whine(ctx context.Context, key, reason string, tok Token, msg string, err error) {
	f := Fields{"key": key, "token": tok, "reason": reason}
	if err != nil {
		f["err"] = err
	}
	s.log.Warn(msg, f)
	s.hooks.SessionAnomaly(key, reason, tok)
	s.notifier.Notify(ctx, msg)
}
