package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/unkn0wn-root/fetchcache"
)

var _ fetchcache.Logger = LogrusLogger{}

type LogrusLogger struct{ E *logrus.Entry }

// New wraps l with the "component" field set.
func New(l *logrus.Logger) LogrusLogger {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return LogrusLogger{E: l.WithField("component", "fetchcache")}
}

func (l LogrusLogger) Debug(msg string, f fetchcache.Fields) { l.with(f).Debug(msg) }
func (l LogrusLogger) Info(msg string, f fetchcache.Fields)  { l.with(f).Info(msg) }
func (l LogrusLogger) Warn(msg string, f fetchcache.Fields)  { l.with(f).Warn(msg) }
func (l LogrusLogger) Error(msg string, f fetchcache.Fields) { l.with(f).Error(msg) }

// with maps an "err" field onto logrus' error key so formatters treat it
// as the entry's error.
func (l LogrusLogger) with(f fetchcache.Fields) *logrus.Entry {
	if len(f) == 0 {
		return l.E
	}
	fields := make(logrus.Fields, len(f))
	for k, v := range f {
		if k == "err" {
			k = logrus.ErrorKey
		}
		fields[k] = v
	}
	return l.E.WithFields(fields)
}
