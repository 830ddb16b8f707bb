// Package logrus adapts a logrus logger to nearcache.Logger.
package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/unkn0wn-root/nearcache"
)

type Logger struct{ e *logrus.Entry }

var _ nearcache.Logger = Logger{}

// New tags every record with component=nearcache.
func New(l *logrus.Logger) Logger {
	return Logger{e: l.WithField("component", "nearcache")}
}

// FromEntry keeps the entry's fields as they are.
func FromEntry(e *logrus.Entry) Logger { return Logger{e: e} }

func (l Logger) Debug(msg string, f nearcache.Fields) { l.with(f).Debug(msg) }
func (l Logger) Info(msg string, f nearcache.Fields)  { l.with(f).Info(msg) }
func (l Logger) Warn(msg string, f nearcache.Fields)  { l.with(f).Warn(msg) }
func (l Logger) Error(msg string, f nearcache.Fields) { l.with(f).Error(msg) }

// with moves an "err" field to logrus.ErrorKey so hooks and formatters treat it as the error.
func (l Logger) with(f nearcache.Fields) *logrus.Entry {
	if len(f) == 0 {
		return l.e
	}
	out := make(logrus.Fields, len(f))
	for k, v := range f {
		if err, ok := v.(error); ok && k == "err" {
			out[logrus.ErrorKey] = err
			continue
		}
		out[k] = v
	}
	return l.e.WithFields(out)
}
