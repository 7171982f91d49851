package logrus

import (
	"github.com/sirupsen/logrus"
	"github.com/unkn0wn-root/cassession"
)

var _ cassession.Logger = LogrusLogger{}

// LogrusLogger routes cassession logs to a logrus entry. An "err" field
// holding an error is attached with WithError.
type LogrusLogger struct{ E *logrus.Entry }

func New(l *logrus.Logger) LogrusLogger {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return LogrusLogger{E: l.WithField("component", "cassession")}
}

func (l LogrusLogger) Debug(msg string, f cassession.Fields) { l.with(f).Debug(msg) }
func (l LogrusLogger) Info(msg string, f cassession.Fields)  { l.with(f).Info(msg) }
func (l LogrusLogger) Warn(msg string, f cassession.Fields)  { l.with(f).Warn(msg) }
func (l LogrusLogger) Error(msg string, f cassession.Fields) { l.with(f).Error(msg) }

func (l LogrusLogger) with(f cassession.Fields) *logrus.Entry {
	if len(f) == 0 {
		return l.E
	}
	lf := make(logrus.Fields, len(f))
	for k, v := range f {
		if err, ok := v.(error); ok && k == "err" {
			lf[logrus.ErrorKey] = err
			continue
		}
		lf[k] = v
	}
	return l.E.WithFields(lf)
}
