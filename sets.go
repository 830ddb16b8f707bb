package nearcache

import (
	"context"
	"sync"

	"github.com/unkn0wn-root/nearcache/store"
	"github.com/unkn0wn-root/nearcache/value"
)

// memberSet caches members of one remote set. Only positive membership is known:
// a member added remotely arrives with no event this cache acts on, so absence from
// the map never proves absence from the remote set.
type memberSet struct {
	mu sync.Mutex
	m  map[value.Value]struct{}
}

func newMemberSet() *memberSet { return &memberSet{m: make(map[value.Value]struct{})} }

// Sets is the cache-or-fetch view over set keys.
type Sets struct {
	db *Database
	mu sync.Mutex
}

func (s *Sets) lookup(key string) (*memberSet, bool) {
	return store.Get[*memberSet](s.db.store, key)
}

func (s *Sets) members(key string) *memberSet {
	v, _ := s.db.store.GetOrAdd(key, func() any { return newMemberSet() }, store.Unknown())
	if ms, ok := v.(*memberSet); ok {
		return ms
	}
	ms := newMemberSet()
	s.db.store.Add(key, ms, store.Unknown(), store.Always)
	return ms
}

// IsMember answers from cache only when member is cached. Everything else asks the
// remote; positive answers are cached.
func (s *Sets) IsMember(ctx context.Context, key string, member value.Value, fetch SetIsMemberFetch) (bool, error) {
	if ms, ok := s.lookup(key); ok {
		ms.mu.Lock()
		_, in := ms.m[member]
		ms.mu.Unlock()
		if in {
			return true, nil
		}
	}

	in, err := fetch(ctx, key, member)
	if err != nil {
		return false, s.db.fetchFailed("sets.is_member", []string{key}, err)
	}
	if in {
		s.Add(key, member)
	}
	return in, nil
}

// Members always asks the remote and replaces the cached members with the answer.
// An empty answer drops the key.
func (s *Sets) Members(ctx context.Context, key string, fetch SetMembersFetch) ([]value.Value, error) {
	got, err := fetch(ctx, key)
	if err != nil {
		return nil, s.db.fetchFailed("sets.members", []string{key}, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(got) == 0 {
		s.db.store.Remove(key)
		return nil, nil
	}
	m := make(map[value.Value]struct{}, len(got))
	for _, v := range got {
		m[v] = struct{}{}
	}
	ms := s.members(key)
	ms.mu.Lock()
	ms.m = m
	ms.mu.Unlock()
	return got, nil
}

// Add mirrors a local SADD and returns how many members were new to the cache.
func (s *Sets) Add(key string, members ...value.Value) int {
	if len(members) == 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ms := s.members(key)
	ms.mu.Lock()
	defer ms.mu.Unlock()
	n := 0
	for _, v := range members {
		if _, ok := ms.m[v]; !ok {
			ms.m[v] = struct{}{}
			n++
		}
	}
	return n
}

// Remove mirrors a local SREM and returns how many members were cached.
func (s *Sets) Remove(key string, members ...value.Value) int {
	ms, ok := s.lookup(key)
	if !ok {
		return 0
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	n := 0
	for _, v := range members {
		if _, ok := ms.m[v]; ok {
			delete(ms.m, v)
			n++
		}
	}
	return n
}

// RemoveByHash drops the member whose value.StableHash is h.
func (s *Sets) RemoveByHash(key string, h uint64) bool {
	ms, ok := s.lookup(key)
	if !ok {
		return false
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	for v := range ms.m {
		if value.StableHash(v) == h {
			delete(ms.m, v)
			return true
		}
	}
	return false
}
