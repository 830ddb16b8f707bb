// Package sloghooks reports nearcache.Hooks events through log/slog, with sampling for
// the high-volume ones and key redaction.
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/nearcache"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	AppliedEvery uint64
	DroppedEvery uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	appliedCtr atomic.Uint64
	droppedCtr atomic.Uint64
}

var _ nearcache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) EventApplied(db, key, event string) {
	if h.l == nil || !sample(h.opts.AppliedEvery, &h.appliedCtr) {
		return
	}
	h.l.Debug("nearcache.event_applied",
		"db", db,
		"key", h.redact(key),
		"event", event)
}

func (h *Hooks) EventDropped(key, event, reason string) {
	if h.l == nil || !sample(h.opts.DroppedEvery, &h.droppedCtr) {
		return
	}
	h.l.Debug("nearcache.event_dropped",
		"key", h.redact(key),
		"event", event,
		"reason", reason)
}

func (h *Hooks) EventMalformed(key, event, arg string) {
	if h.l == nil {
		return
	}
	// arg may be a hash, a score window or a field name; never a value
	h.l.Warn("nearcache.event_malformed",
		"key", h.redact(key),
		"event", event,
		"arg", arg)
}

func (h *Hooks) FetchFailed(op string, keys int, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("nearcache.fetch_failed",
		"op", op,
		"keys", keys,
		"err", err)
}

func (h *Hooks) SelfHeal(key, reason string) {
	if h.l == nil {
		return
	}
	h.l.Info("nearcache.self_heal",
		"key", h.redact(key),
		"reason", reason)
}
