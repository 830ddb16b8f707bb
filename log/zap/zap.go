// Package zap adapts a zap logger to nearcache.Logger.
package zap

import (
	"sort"

	"go.uber.org/zap"

	"github.com/unkn0wn-root/nearcache"
)

type Logger struct{ l *zap.Logger }

var _ nearcache.Logger = Logger{}

// New names the logger "nearcache".
func New(l *zap.Logger) Logger { return Logger{l: l.Named("nearcache")} }

func (z Logger) Debug(msg string, f nearcache.Fields) { z.l.Debug(msg, zf(f)...) }
func (z Logger) Info(msg string, f nearcache.Fields)  { z.l.Info(msg, zf(f)...) }
func (z Logger) Warn(msg string, f nearcache.Fields)  { z.l.Warn(msg, zf(f)...) }
func (z Logger) Error(msg string, f nearcache.Fields) { z.l.Error(msg, zf(f)...) }

// zf orders fields by key; errors become zap.NamedError.
func zf(f nearcache.Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]zap.Field, 0, len(f))
	for _, k := range keys {
		if err, ok := f[k].(error); ok {
			out = append(out, zap.NamedError(k, err))
			continue
		}
		out = append(out, zap.Any(k, f[k]))
	}
	return out
}
