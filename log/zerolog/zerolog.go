package zerolog

import (
	"github.com/rs/zerolog"
	"github.com/unkn0wn-root/cassession"
)

var _ cassession.Logger = Logger{}

// Logger routes cassession logs to a zerolog.Logger.
type Logger struct{ L zerolog.Logger }

func New(l zerolog.Logger) Logger {
	return Logger{L: l.With().Str("component", "cassession").Logger()}
}

func (z Logger) Debug(msg string, f cassession.Fields) { emit(z.L.Debug(), msg, f) }
func (z Logger) Info(msg string, f cassession.Fields)  { emit(z.L.Info(), msg, f) }
func (z Logger) Warn(msg string, f cassession.Fields)  { emit(z.L.Warn(), msg, f) }
func (z Logger) Error(msg string, f cassession.Fields) { emit(z.L.Error(), msg, f) }

// emit tolerates a nil event, which zerolog returns for disabled levels.
func emit(ev *zerolog.Event, msg string, f cassession.Fields) {
	if ev == nil {
		return
	}
	for k, v := range f {
		switch x := v.(type) {
		case error:
			ev = ev.AnErr(k, x)
		case cassession.Token:
			ev = ev.Uint64(k, uint64(x))
		case string:
			ev = ev.Str(k, x)
		default:
			ev = ev.Interface(k, x)
		}
	}
	ev.Msg(msg)
}
