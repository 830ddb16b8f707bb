package nearcache

import (
	"context"
	"fmt"

	"github.com/unkn0wn-root/nearcache/codec"
	"github.com/unkn0wn-root/nearcache/store"
	"github.com/unkn0wn-root/nearcache/value"
)

// Typed is an object view over Strings: values are encoded with a Codec before they reach
// the cache and decoded on the way out.
type Typed[V any] struct {
	s     *Strings
	codec codec.Codec[V]
}

func NewTyped[V any](db *Database, c codec.Codec[V]) (*Typed[V], error) {
	if db == nil {
		return nil, fmt.Errorf("nearcache: database is required")
	}
	if c == nil {
		return nil, fmt.Errorf("nearcache: codec is required")
	}
	return &Typed[V]{s: db.strings, codec: c}, nil
}

// Get returns the decoded value of key. ok is false when the key does not exist remotely.
// A cached payload that no longer decodes is dropped and fetched again; a fetched payload
// that does not decode is an error.
func (t *Typed[V]) Get(ctx context.Context, key string, fetch StringsFetch) (v V, ok bool, err error) {
	db := t.s.db
	if raw, cached := t.s.cached(key); cached {
		if v, err := t.codec.Decode(raw.Bytes()); err == nil {
			return v, true, nil
		}
		db.store.Remove(key) // self-heal
		db.hooks.SelfHeal(key, "decode_error")
		db.log.Debug("dropped undecodable entry", Fields{"db": db.id, "key": key})
	}

	raw, err := t.s.Get(ctx, key, fetch)
	if err != nil || raw.IsNull() {
		return v, false, err
	}
	v, err = t.codec.Decode(raw.Bytes())
	if err != nil {
		db.store.Remove(key)
		return v, false, fmt.Errorf("nearcache: decode %q: %w", key, err)
	}
	return v, true, nil
}

// Set encodes v and mirrors it as a local string write.
func (t *Typed[V]) Set(key string, v V, exp store.Expiry, cond store.Condition) (bool, error) {
	b, err := t.codec.Encode(v)
	if err != nil {
		return false, err
	}
	return t.s.Set(key, value.Bytes(b), exp, cond), nil
}
