package store

import (
	"fmt"
	"time"
)

// ExpiryKind is the three-way TTL state of a cached key.
type ExpiryKind uint8

const (
	// ExpiryUnknown: no TTL recorded locally; ask the remote store.
	ExpiryUnknown ExpiryKind = iota
	// ExpiryNever: the key is known not to expire.
	ExpiryNever
	// ExpiryIn: the key is known to expire after TTL.
	ExpiryIn
)

// Expiry is used both to describe the TTL a value is added with and the TTL
// GetExpiry reports. Unknown and Never are distinct on purpose.
type Expiry struct {
	kind ExpiryKind
	ttl  time.Duration
}

func Unknown() Expiry { return Expiry{kind: ExpiryUnknown} }
func Never() Expiry   { return Expiry{kind: ExpiryNever} }

// In builds a known, finite TTL.
func In(ttl time.Duration) Expiry { return Expiry{kind: ExpiryIn, ttl: ttl} }

func (e Expiry) Kind() ExpiryKind { return e.kind }
func (e Expiry) Known() bool      { return e.kind != ExpiryUnknown }

// TTL returns the remaining lifetime; ok is false unless Kind is ExpiryIn.
func (e Expiry) TTL() (time.Duration, bool) {
	if e.kind != ExpiryIn {
		return 0, false
	}
	return e.ttl, true
}

func (e Expiry) String() string {
	switch e.kind {
	case ExpiryNever:
		return "never"
	case ExpiryIn:
		return fmt.Sprintf("in %s", e.ttl)
	default:
		return "unknown"
	}
}

// meta is the per-key TTL record. Every present key has one.
// deadline governs the key's real lifetime; known says whether it may be reported.
type meta struct {
	deadline time.Time // zero => no deadline
	known    bool
}

func metaFor(e Expiry, now time.Time) meta {
	switch e.kind {
	case ExpiryIn:
		return meta{deadline: now.Add(e.ttl), known: true}
	case ExpiryNever:
		return meta{known: true}
	default:
		return meta{}
	}
}

func (m meta) expired(now time.Time) bool {
	return !m.deadline.IsZero() && !now.Before(m.deadline)
}

func (m meta) remaining(now time.Time) time.Duration {
	if m.deadline.IsZero() {
		return 0
	}
	return m.deadline.Sub(now)
}

func (m meta) expiry(now time.Time) Expiry {
	switch {
	case !m.known:
		return Unknown()
	case m.deadline.IsZero():
		return Never()
	default:
		return In(m.deadline.Sub(now))
	}
}
