package nearcache

import (
	"context"
	"sync"

	"github.com/unkn0wn-root/nearcache/store"
	"github.com/unkn0wn-root/nearcache/value"
)

// Strings is the cache-or-fetch view over string keys.
//
// Fetched values are cached with an Unknown TTL. Null (missing) results are returned but
// not cached. Concurrent misses on one key are not coalesced: the last splice wins.
type Strings struct {
	db *Database
	mu sync.Mutex // serializes splice-back and read-modify-write (Append)
}

func (s *Strings) cached(key string) (value.Value, bool) {
	return store.Get[value.Value](s.db.store, key)
}

// GetMulti returns one value per key, in order, fetching only the keys not cached.
func (s *Strings) GetMulti(ctx context.Context, keys []string, fetch StringsFetch) ([]value.Value, error) {
	out := make([]value.Value, len(keys))
	var miss []string
	var at []int
	for i, k := range keys {
		if v, ok := s.cached(k); ok {
			out[i] = v
			continue
		}
		miss = append(miss, k)
		at = append(at, i)
	}
	if len(miss) == 0 {
		return out, nil
	}

	got, err := fetch(ctx, miss)
	if err != nil {
		return nil, s.db.fetchFailed("strings.get", miss, err)
	}
	if len(got) != len(miss) {
		return nil, s.db.fetchFailed("strings.get", miss, ErrFetchMismatch)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for j, v := range got {
		out[at[j]] = v
		if !v.IsNull() {
			s.db.store.Add(miss[j], v, store.Unknown(), store.Always)
		}
	}
	return out, nil
}

func (s *Strings) Get(ctx context.Context, key string, fetch StringsFetch) (value.Value, error) {
	vs, err := s.GetMulti(ctx, []string{key}, fetch)
	if err != nil {
		return value.Null(), err
	}
	return vs[0], nil
}

// GetWithExpiry is served locally only when both the value and its TTL are known.
// Otherwise both are fetched and cached together.
func (s *Strings) GetWithExpiry(ctx context.Context, key string, fetch StringExpiryFetch) (value.Value, store.Expiry, error) {
	if v, ok := s.cached(key); ok {
		if exp := s.db.store.GetExpiry(key); exp.Known() {
			return v, exp, nil
		}
	}

	v, exp, err := fetch(ctx, key)
	if err != nil {
		return value.Null(), store.Unknown(), s.db.fetchFailed("strings.get_expiry", []string{key}, err)
	}
	if v.IsNull() {
		return v, store.Unknown(), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.db.store.Add(key, v, exp, store.Always)
	return v, exp, nil
}

// Set mirrors a local write. Reports whether cond allowed it.
func (s *Strings) Set(key string, v value.Value, exp store.Expiry, cond store.Condition) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.store.Add(key, v, exp, cond)
}

// Length is the byte length of the value, 0 when it does not exist.
func (s *Strings) Length(ctx context.Context, key string, fetch StringsFetch) (int, error) {
	v, err := s.Get(ctx, key, fetch)
	if err != nil {
		return 0, err
	}
	return v.Len(), nil
}

// Append mirrors a local APPEND and returns the new length. When the key is not cached
// the text becomes the whole cached value, which diverges from the remote if it already
// held something.
func (s *Strings) Append(key, text string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.cached(key); ok {
		nv := value.String(v.String() + text)
		s.db.store.Update(key, nv)
		return nv.Len()
	}
	s.db.store.Add(key, value.String(text), store.Unknown(), store.Always)
	return len(text)
}
