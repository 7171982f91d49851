package logrus

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/unkn0wn-root/cassession"
)

func TestLogrusLogger(t *testing.T) {
	base, hook := test.NewNullLogger()
	base.SetLevel(logrus.DebugLevel)
	l := New(base)

	l.Debug("session unchanged, not writing", cassession.Fields{"session_id": "abc"})
	l.Warn("couldn't write session", cassession.Fields{"err": errors.New("conflict"), "token": cassession.Token(7)})

	if len(hook.Entries) != 2 {
		t.Fatalf("got %d entries", len(hook.Entries))
	}
	e := hook.Entries[0]
	if e.Level != logrus.DebugLevel || e.Data["session_id"] != "abc" || e.Data["component"] != "cassession" {
		t.Fatalf("entry 0: %v %v", e.Level, e.Data)
	}
	e = *hook.LastEntry()
	if e.Level != logrus.WarnLevel {
		t.Fatalf("level=%v", e.Level)
	}
	if err, ok := e.Data[logrus.ErrorKey].(error); !ok || err.Error() != "conflict" {
		t.Fatalf("error field: %v", e.Data)
	}
}
