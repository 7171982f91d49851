package zap

import (
	"github.com/unkn0wn-root/cassession"
	"go.uber.org/zap"
)

var _ cassession.Logger = ZapLogger{}

// ZapLogger routes cassession logs to a *zap.Logger. Error values are
// attached with zap.NamedError so encoders render them as errors.
type ZapLogger struct{ L *zap.Logger }

func New(l *zap.Logger) ZapLogger {
	if l == nil {
		l = zap.NewNop()
	}
	return ZapLogger{L: l.With(zap.String("component", "cassession"))}
}

func (z ZapLogger) Debug(msg string, f cassession.Fields) { z.L.Debug(msg, zf(f)...) }
func (z ZapLogger) Info(msg string, f cassession.Fields)  { z.L.Info(msg, zf(f)...) }
func (z ZapLogger) Warn(msg string, f cassession.Fields)  { z.L.Warn(msg, zf(f)...) }
func (z ZapLogger) Error(msg string, f cassession.Fields) { z.L.Error(msg, zf(f)...) }

func zf(f cassession.Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(f))
	for k, v := range f {
		if err, ok := v.(error); ok {
			out = append(out, zap.NamedError(k, err))
			continue
		}
		out = append(out, zap.Any(k, v))
	}
	return out
}
