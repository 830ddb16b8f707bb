package nearcache

import (
	"context"
	"maps"
	"sync"

	"github.com/unkn0wn-root/nearcache/store"
	"github.com/unkn0wn-root/nearcache/value"
)

// fieldMap is the locally verified part of one remote hash. A missing field means
// "not verified yet", never "does not exist".
type fieldMap struct {
	mu sync.Mutex
	m  map[string]value.Value
}

func newFieldMap() *fieldMap { return &fieldMap{m: make(map[string]value.Value)} }

func (f *fieldMap) get(field string) (value.Value, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.m[field]
	return v, ok
}

func (f *fieldMap) remove(fields ...string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range fields {
		if _, ok := f.m[k]; ok {
			delete(f.m, k)
			n++
		}
	}
	return n
}

// Hashes is the cache-or-fetch view over hash keys, caching fields individually.
type Hashes struct {
	db *Database
	mu sync.Mutex // serializes splice-back and GetAll replacement
}

func (h *Hashes) lookup(key string) (*fieldMap, bool) {
	return store.Get[*fieldMap](h.db.store, key)
}

// fields returns the field map of key, creating an empty one when absent. A key holding
// another kind of value is replaced.
func (h *Hashes) fields(key string) *fieldMap {
	v, _ := h.db.store.GetOrAdd(key, func() any { return newFieldMap() }, store.Unknown())
	if fm, ok := v.(*fieldMap); ok {
		return fm
	}
	fm := newFieldMap()
	h.db.store.Add(key, fm, store.Unknown(), store.Always)
	return fm
}

// GetMulti returns one value per field, in order, fetching only fields not yet verified.
// Null results are returned but not cached.
func (h *Hashes) GetMulti(ctx context.Context, key string, fields []string, fetch HashFieldsFetch) ([]value.Value, error) {
	out := make([]value.Value, len(fields))
	var miss []string
	var at []int
	fm, cached := h.lookup(key)
	for i, f := range fields {
		if cached {
			if v, ok := fm.get(f); ok {
				out[i] = v
				continue
			}
		}
		miss = append(miss, f)
		at = append(at, i)
	}
	if len(miss) == 0 {
		return out, nil
	}

	got, err := fetch(ctx, key, miss)
	if err != nil {
		return nil, h.db.fetchFailed("hashes.get", []string{key}, err)
	}
	if len(got) != len(miss) {
		return nil, h.db.fetchFailed("hashes.get", []string{key}, ErrFetchMismatch)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	fm = h.fields(key)
	fm.mu.Lock()
	defer fm.mu.Unlock()
	for j, v := range got {
		out[at[j]] = v
		if !v.IsNull() {
			fm.m[miss[j]] = v
		}
	}
	return out, nil
}

func (h *Hashes) Get(ctx context.Context, key, field string, fetch HashFieldsFetch) (value.Value, error) {
	vs, err := h.GetMulti(ctx, key, []string{field}, fetch)
	if err != nil {
		return value.Null(), err
	}
	return vs[0], nil
}

// GetAll always asks the remote and replaces the cached field map with the answer, so
// later field reads of key are served locally. An empty answer drops the key.
func (h *Hashes) GetAll(ctx context.Context, key string, fetch HashAllFetch) (map[string]value.Value, error) {
	got, err := fetch(ctx, key)
	if err != nil {
		return nil, h.db.fetchFailed("hashes.get_all", []string{key}, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if len(got) == 0 {
		h.db.store.Remove(key)
		return map[string]value.Value{}, nil
	}
	fm := h.fields(key)
	fm.mu.Lock()
	fm.m = maps.Clone(got)
	fm.mu.Unlock()
	return got, nil
}

// Set mirrors a local HSET, applying cond per field. Returns the number of fields written.
func (h *Hashes) Set(key string, entries map[string]value.Value, cond store.Condition) int64 {
	if len(entries) == 0 {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	fm := h.fields(key)
	fm.mu.Lock()
	defer fm.mu.Unlock()
	var n int64
	for f, v := range entries {
		_, exists := fm.m[f]
		if !cond.Allows(exists) {
			continue
		}
		fm.m[f] = v
		n++
	}
	return n
}

// Delete removes fields from the cached map and returns how many were cached.
func (h *Hashes) Delete(key string, fields ...string) int64 {
	fm, ok := h.lookup(key)
	if !ok {
		return 0
	}
	return fm.remove(fields...)
}

// Contains reports whether field is cached for key. It never asks the remote.
func (h *Hashes) Contains(key, field string) bool {
	fm, ok := h.lookup(key)
	if !ok {
		return false
	}
	_, ok = fm.get(field)
	return ok
}

// Cached snapshots the verified fields of key.
func (h *Hashes) Cached(key string) (map[string]value.Value, bool) {
	fm, ok := h.lookup(key)
	if !ok {
		return nil, false
	}
	fm.mu.Lock()
	defer fm.mu.Unlock()
	return maps.Clone(fm.m), true
}
