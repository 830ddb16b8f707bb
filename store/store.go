// Package store is the local object store behind every cached view: generic
// key -> value storage over a Provider plus a separate TTL table with three
// states (unknown, never, known deadline).
//
// Missing keys are never an error: lookups report ok=false, mutations report
// false or 0. Every operation runs under the store's single mutex and none of
// them perform I/O.
package store

import (
	"sync"
	"time"

	pr "github.com/unkn0wn-root/nearcache/provider"
)

// Condition guards a write on the current presence of the key.
type Condition uint8

const (
	Always Condition = iota
	OnlyIfExists
	OnlyIfNotExists
)

func (c Condition) String() string {
	switch c {
	case OnlyIfExists:
		return "only_if_exists"
	case OnlyIfNotExists:
		return "only_if_not_exists"
	default:
		return "always"
	}
}

// allows reports whether a write guarded by c may proceed given the key's presence.
func (c Condition) allows(exists bool) bool {
	switch c {
	case OnlyIfExists:
		return exists
	case OnlyIfNotExists:
		return !exists
	default:
		return true
	}
}

// Allows is the exported form of the write guard, shared with views that keep
// their own maps (hash fields) but follow the same condition semantics.
func (c Condition) Allows(exists bool) bool { return c.allows(exists) }

type Store struct {
	mu   sync.Mutex
	p    pr.Provider
	ttls map[string]meta
	now  func() time.Time
}

func New(p pr.Provider) *Store {
	return &Store{
		p:    p,
		ttls: make(map[string]meta),
		now:  time.Now,
	}
}

// lookupLocked returns the value when present and not past its deadline.
// Keys found stale on either side are dropped from both.
func (s *Store) lookupLocked(key string, now time.Time) (any, bool) {
	m, hasMeta := s.ttls[key]
	v, ok := s.p.Get(key)
	switch {
	case !ok:
		if hasMeta {
			delete(s.ttls, key)
		}
		return nil, false
	case !hasMeta:
		// provider kept something the store never wrote (or already forgot)
		s.p.Del(key)
		return nil, false
	case m.expired(now):
		s.p.Del(key)
		delete(s.ttls, key)
		return nil, false
	}
	return v, true
}

func (s *Store) setLocked(key string, v any, m meta, now time.Time) bool {
	if !s.p.Set(key, v, m.remaining(now)) {
		delete(s.ttls, key)
		return false
	}
	s.ttls[key] = m
	return true
}

func (s *Store) removeLocked(key string) {
	s.p.Del(key)
	delete(s.ttls, key)
}

func (s *Store) ContainsKey(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.lookupLocked(key, s.now())
	return ok
}

// Get returns the raw cached value. See the package-level Get for a typed lookup.
func (s *Store) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookupLocked(key, s.now())
}

// Get returns the cached value for key as T. A value of another type reads as absent.
func Get[T any](s *Store, key string) (T, bool) {
	var zero T
	v, ok := s.Get(key)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return t, true
}

// Add stores v under key with the given TTL state, if cond allows it.
// A finite TTL that is not positive removes the key instead.
func (s *Store) Add(key string, v any, exp Expiry, cond Condition) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	_, exists := s.lookupLocked(key, now)
	if !cond.allows(exists) {
		return false
	}
	if ttl, ok := exp.TTL(); ok && ttl <= 0 {
		s.removeLocked(key)
		return false
	}
	return s.setLocked(key, v, metaFor(exp, now), now)
}

// GetOrAdd returns the value under key, creating it with mk when absent.
// created reports whether mk ran. The check and the insert are one atomic step.
func (s *Store) GetOrAdd(key string, mk func() any, exp Expiry) (v any, created bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if cur, ok := s.lookupLocked(key, now); ok {
		return cur, false
	}
	v = mk()
	s.setLocked(key, v, metaFor(exp, now), now)
	return v, true
}

// Update replaces the value of an existing key, keeping its TTL state exactly as it was.
// No-op when the key is absent.
func (s *Store) Update(key string, v any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if _, ok := s.lookupLocked(key, now); !ok {
		return false
	}
	return s.setLocked(key, v, s.ttls[key], now)
}

// Expire gives an existing key a new TTL. ttl <= 0 deletes it.
// Returns false when the key is absent.
func (s *Store) Expire(key string, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	v, ok := s.lookupLocked(key, now)
	if !ok {
		return false
	}
	if ttl <= 0 {
		s.removeLocked(key)
		return true
	}
	s.setLocked(key, v, metaFor(In(ttl), now), now)
	return true
}

// ExpireAt is Expire with an absolute deadline.
func (s *Store) ExpireAt(key string, at time.Time) bool {
	return s.Expire(key, at.Sub(s.now()))
}

// Persist marks an existing key as never expiring.
func (s *Store) Persist(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	v, ok := s.lookupLocked(key, now)
	if !ok {
		return false
	}
	s.setLocked(key, v, metaFor(Never(), now), now)
	return true
}

// RenameKey moves the value and TTL record of from to to, overwriting to.
// Returns false when from is absent or from == to.
func (s *Store) RenameKey(from, to string) bool {
	if from == to {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	v, ok := s.lookupLocked(from, now)
	if !ok {
		return false
	}
	m := s.ttls[from]
	s.removeLocked(from)
	s.setLocked(to, v, m, now)
	return true
}

// Remove deletes keys and returns how many were present.
func (s *Store) Remove(keys ...string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	var n int64
	for _, k := range keys {
		if k == "" {
			continue
		}
		if _, ok := s.lookupLocked(k, now); ok {
			s.removeLocked(k)
			n++
		}
	}
	return n
}

// ClearTimeToLive forgets that the TTL of key is known. The value stays cached and
// keeps its real deadline; GetExpiry reports Unknown until a TTL is recorded again.
func (s *Store) ClearTimeToLive(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.ttls[key]; ok {
		m.known = false
		s.ttls[key] = m
	}
}

// GetExpiry reports the TTL state of key. Absent keys report Unknown.
func (s *Store) GetExpiry(key string) Expiry {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if _, ok := s.lookupLocked(key, now); !ok {
		return Unknown()
	}
	return s.ttls[key].expiry(now)
}

// Len counts keys with a TTL record, including ones past their deadline not yet dropped.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ttls)
}

// Flush drops every key.
func (s *Store) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.p.Clear()
	s.ttls = make(map[string]meta)
}

// Close flushes the store and closes the provider.
func (s *Store) Close() error {
	s.Flush()
	return s.p.Close()
}
