package nearcache

import (
	"context"
	"slices"

	"github.com/unkn0wn-root/nearcache/sortedset"
	"github.com/unkn0wn-root/nearcache/store"
	"github.com/unkn0wn-root/nearcache/value"
)

// SortedSets is the cache-or-fetch view over sorted-set keys. Each key caches proven
// score ranges in a sortedset.Set.
type SortedSets struct {
	db *Database
}

func (z *SortedSets) lookup(key string) (*sortedset.Set, bool) {
	return store.Get[*sortedset.Set](z.db.store, key)
}

func (z *SortedSets) ranges(key string) *sortedset.Set {
	v, _ := z.db.store.GetOrAdd(key, func() any { return sortedset.New() }, store.Unknown())
	if zs, ok := v.(*sortedset.Set); ok {
		return zs
	}
	zs := sortedset.New()
	z.db.store.Add(key, zs, store.Unknown(), store.Always)
	return zs
}

// RangeByScore answers q from cache when a cached range proves the answer complete.
// Otherwise it fetches the whole score window (ignoring skip/take), caches it with the
// bounds the remote proved and answers from the fetched run.
func (z *SortedSets) RangeByScore(ctx context.Context, key string, q sortedset.Query, fetch RangeFetch) ([]sortedset.Entry, error) {
	if zs, ok := z.lookup(key); ok {
		if res, complete := zs.RetrieveByScore(q); complete {
			return res, nil
		}
	}

	got, err := fetch(ctx, key, q.Start, q.Stop, q.Exclude)
	if err != nil {
		return nil, z.db.fetchFailed("zsets.range_by_score", []string{key}, err)
	}
	entries := slices.Clone(got.Entries)
	slices.SortStableFunc(entries, func(a, b sortedset.Entry) int {
		switch {
		case a.Score < b.Score:
			return -1
		case a.Score > b.Score:
			return 1
		}
		return 0
	})
	if len(entries) > 0 {
		z.ranges(key).Add(entries, got.KnownMin, got.KnownMax)
	}
	return sortedset.Select(entries, q), nil
}

// Score returns the score of member, asking the remote when it is not cached. A fetched
// score that falls inside a cached range is placed there.
func (z *SortedSets) Score(ctx context.Context, key string, member value.Value, fetch ScoreFetch) (float64, bool, error) {
	if zs, ok := z.lookup(key); ok {
		if sc, ok := zs.RetrieveScoreByValue(member); ok {
			return sc, true, nil
		}
	}
	sc, ok, err := fetch(ctx, key, member)
	if err != nil {
		return 0, false, z.db.fetchFailed("zsets.score", []string{key}, err)
	}
	if ok {
		if zs, cached := z.lookup(key); cached {
			zs.Insert([]sortedset.Entry{{Member: member, Score: sc}})
		}
	}
	return sc, ok, nil
}

// Add mirrors a local ZADD: members are kept only where a cached range already covers
// their new score. Returns how many were placed.
func (z *SortedSets) Add(key string, entries ...sortedset.Entry) int {
	zs, ok := z.lookup(key)
	if !ok {
		return 0
	}
	return zs.Insert(entries)
}

// Remove mirrors a local ZREM.
func (z *SortedSets) Remove(key string, members ...value.Value) int {
	zs, ok := z.lookup(key)
	if !ok {
		return 0
	}
	return zs.Remove(members...)
}

// RemoveByScore mirrors a local ZREMRANGEBYSCORE.
func (z *SortedSets) RemoveByScore(key string, start, stop float64, ex sortedset.Exclude) int {
	zs, ok := z.lookup(key)
	if !ok {
		return 0
	}
	return zs.RemoveByScore(start, stop, ex)
}

// RemoveByHash drops the member whose value.StableHash is h.
func (z *SortedSets) RemoveByHash(key string, h uint64) bool {
	zs, ok := z.lookup(key)
	if !ok {
		return false
	}
	return zs.RemoveByHash(h)
}

// JoinRanges merges cached ranges around a run the caller knows to be contiguous remotely.
func (z *SortedSets) JoinRanges(key string, members []value.Value) {
	if zs, ok := z.lookup(key); ok {
		zs.JoinRanges(members)
	}
}

// Count is the number of cached entries of key, markers included.
func (z *SortedSets) Count(key string) int {
	zs, ok := z.lookup(key)
	if !ok {
		return 0
	}
	return zs.Count()
}

// Delete drops every cached range of key.
func (z *SortedSets) Delete(key string) bool {
	if _, ok := z.lookup(key); !ok {
		return false
	}
	return z.db.store.Remove(key) == 1
}
