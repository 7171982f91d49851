package cassession

import (
	"context"
	"maps"
	"slices"
	"time"
)

const droppedWarning = "Warning! cassession.Session failed to save session. Content dropped."

// Session is the request-scoped view of a session. Every mutating call
// reloads the session from the store first, so the write that follows
// presents the freshest token, and flushes after the mutation even when
// nothing changed. Reads load once.
//
// A Session belongs to one request; it is not safe for concurrent use.
type Session struct {
	store    SessionStore
	rc       *RequestContext
	ttl      time.Duration
	log      Logger
	notifier Notifier

	data   Data
	loaded bool
}

func NewSession(store SessionStore, rc *RequestContext, opts SessionOptions) *Session {
	s := &Session{
		store:    store,
		rc:       rc,
		ttl:      opts.TTL,
		log:      opts.Logger,
		notifier: opts.Notifier,
	}
	if s.log == nil {
		s.log = NopLogger{}
	}
	if s.notifier == nil {
		s.notifier = NopNotifier{}
	}
	return s
}

// ID is the current session id; it changes when the store allocates one
// and after Destroy.
func (s *Session) ID() string   { return s.rc.SessionID() }
func (s *Session) Loaded() bool { return s.loaded }

func (s *Session) load(ctx context.Context) error {
	id, data, err := s.store.Get(ctx, s.rc, s.rc.sessionID)
	if err != nil {
		return err
	}
	if data == nil {
		data = Data{}
	}
	s.rc.sessionID = id
	s.data = data
	s.loaded = true
	return nil
}

func (s *Session) loadForRead(ctx context.Context) error {
	if s.loaded {
		return nil
	}
	return s.load(ctx)
}

func (s *Session) mutate(ctx context.Context, f func(Data)) error {
	if err := s.load(ctx); err != nil {
		return err
	}
	f(s.data)
	s.Flush(ctx)
	return nil
}

func (s *Session) Set(ctx context.Context, key string, value any) error {
	return s.mutate(ctx, func(d Data) { d[key] = value })
}

func (s *Session) Clear(ctx context.Context) error {
	return s.mutate(ctx, func(d Data) { clear(d) })
}

// Update copies every entry of m into the session.
func (s *Session) Update(ctx context.Context, m Data) error {
	return s.mutate(ctx, func(d Data) { maps.Copy(d, m) })
}

// Merge is Update under its other name.
func (s *Session) Merge(ctx context.Context, m Data) error {
	return s.Update(ctx, m)
}

// Delete removes key and returns the value it held.
func (s *Session) Delete(ctx context.Context, key string) (any, error) {
	var old any
	err := s.mutate(ctx, func(d Data) {
		old = d[key]
		delete(d, key)
	})
	return old, err
}

// Destroy deletes the stored session, moves to a fresh id with empty data
// and flushes.
func (s *Session) Destroy(ctx context.Context) error {
	if err := s.load(ctx); err != nil {
		return err
	}
	clear(s.data)
	id, err := s.store.Destroy(ctx, s.rc, s.rc.sessionID)
	if err != nil {
		return err
	}
	s.rc.sessionID = id
	s.data = Data{}
	s.loaded = true
	s.Flush(ctx)
	return nil
}

func (s *Session) Get(ctx context.Context, key string) (any, error) {
	if err := s.loadForRead(ctx); err != nil {
		return nil, err
	}
	return s.data[key], nil
}

// Fetch returns def when key is absent.
func (s *Session) Fetch(ctx context.Context, key string, def any) (any, error) {
	if err := s.loadForRead(ctx); err != nil {
		return nil, err
	}
	if v, ok := s.data[key]; ok {
		return v, nil
	}
	return def, nil
}

func (s *Session) Has(ctx context.Context, key string) (bool, error) {
	if err := s.loadForRead(ctx); err != nil {
		return false, err
	}
	_, ok := s.data[key]
	return ok, nil
}

// Keys are sorted.
func (s *Session) Keys(ctx context.Context) ([]string, error) {
	if err := s.loadForRead(ctx); err != nil {
		return nil, err
	}
	return slices.Sorted(maps.Keys(s.data)), nil
}

func (s *Session) Len(ctx context.Context) (int, error) {
	if err := s.loadForRead(ctx); err != nil {
		return 0, err
	}
	return len(s.data), nil
}

// ToMap returns a shallow copy of the session data.
func (s *Session) ToMap(ctx context.Context) (Data, error) {
	if err := s.loadForRead(ctx); err != nil {
		return nil, err
	}
	return maps.Clone(s.data), nil
}

// Flush persists the session through the store. Nil values are not
// persisted. A nested Flush, e.g. from a notifier that mutates the session,
// returns immediately. A failed save is reported and dropped; Flush never
// fails the request.
func (s *Session) Flush(ctx context.Context) {
	if s.rc.flushing {
		return
	}
	s.rc.flushing = true
	defer func() { s.rc.flushing = false }()

	if err := s.loadForRead(ctx); err != nil {
		s.log.Error("session load before flush failed", Fields{"session_id": s.rc.sessionID, "err": err})
		return
	}

	out := make(Data, len(s.data))
	for k, v := range s.data {
		if v != nil {
			out[k] = v
		}
	}

	if _, err := s.store.Set(ctx, s.rc, s.rc.sessionID, out, s.ttl); err != nil {
		s.log.Error(droppedWarning, Fields{"session_id": s.rc.sessionID, "err": err})
		s.notifier.Notify(ctx, droppedWarning)
		s.rc.warn(droppedWarning)
	}
}
