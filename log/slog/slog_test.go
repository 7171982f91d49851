package slog

import (
	"bytes"
	"encoding/json"
	stdslog "log/slog"
	"testing"

	"github.com/unkn0wn-root/cassession"
)

func TestLoggerWritesAttrs(t *testing.T) {
	var buf bytes.Buffer
	l := Logger{L: stdslog.New(stdslog.NewJSONHandler(&buf, &stdslog.HandlerOptions{Level: stdslog.LevelWarn}))}

	l.Debug("filtered", cassession.Fields{"key": "k"})
	l.Warn("couldn't write session", cassession.Fields{"key": "_session_id:abc", "token": cassession.Token(7)})

	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec); err != nil {
		t.Fatalf("expected exactly one JSON record, got %q: %v", buf.String(), err)
	}
	if rec["msg"] != "couldn't write session" || rec["level"] != "WARN" {
		t.Fatalf("record=%v", rec)
	}
	if rec["key"] != "_session_id:abc" || rec["token"] != float64(7) {
		t.Fatalf("attrs=%v", rec)
	}
}
