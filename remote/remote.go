// Package remote provides go-redis backed fetch funcs for every nearcache view.
//
//	f, _ := remote.NewFetcher(rdb)
//	v, err := db.Strings().Get(ctx, "user:1", f.Strings)
//	zs, err := db.SortedSets().RangeByScore(ctx, "board", q, f.RangeByScore)
package remote

import (
	"context"
	"errors"
	"math"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/nearcache"
	"github.com/unkn0wn-root/nearcache/sortedset"
	"github.com/unkn0wn-root/nearcache/store"
	"github.com/unkn0wn-root/nearcache/value"
)

var ErrNilClient = errors.New("remote: nil client")

// Fetcher reads from the remote store. Its methods satisfy the nearcache fetch func types.
type Fetcher struct {
	rdb redis.UniversalClient
}

var (
	_ nearcache.StringsFetch      = (*Fetcher)(nil).Strings
	_ nearcache.StringExpiryFetch = (*Fetcher)(nil).StringWithExpiry
	_ nearcache.HashAllFetch      = (*Fetcher)(nil).HashAll
	_ nearcache.HashFieldsFetch   = (*Fetcher)(nil).HashFields
	_ nearcache.SetMembersFetch   = (*Fetcher)(nil).SetMembers
	_ nearcache.SetIsMemberFetch  = (*Fetcher)(nil).SetIsMember
	_ nearcache.RangeFetch        = (*Fetcher)(nil).RangeByScore
	_ nearcache.ScoreFetch        = (*Fetcher)(nil).Score
)

func NewFetcher(client redis.UniversalClient) (*Fetcher, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	return &Fetcher{rdb: client}, nil
}

// Strings is MGET. Missing keys come back as value.Null.
func (f *Fetcher) Strings(ctx context.Context, keys []string) ([]value.Value, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	vals, err := f.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	return values(vals), nil
}

// StringWithExpiry pipelines GET and PTTL.
func (f *Fetcher) StringWithExpiry(ctx context.Context, key string) (value.Value, store.Expiry, error) {
	pipe := f.rdb.Pipeline()
	get := pipe.Get(ctx, key)
	pttl := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return value.Null(), store.Unknown(), err
	}

	s, err := get.Result()
	if err == redis.Nil {
		return value.Null(), store.Unknown(), nil
	}
	if err != nil {
		return value.Null(), store.Unknown(), err
	}
	return value.String(s), expiryOf(pttl.Val()), nil
}

// expiryOf maps a PTTL reply. go-redis keeps the -1 (no expiry) and -2 (no key) replies raw.
func expiryOf(d time.Duration) store.Expiry {
	switch {
	case d == -1:
		return store.Never()
	case d > 0:
		return store.In(d)
	default:
		return store.Unknown()
	}
}

func (f *Fetcher) HashAll(ctx context.Context, key string) (map[string]value.Value, error) {
	m, err := f.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]value.Value, len(m))
	for k, v := range m {
		out[k] = value.String(v)
	}
	return out, nil
}

// HashFields is HMGET. Missing fields come back as value.Null.
func (f *Fetcher) HashFields(ctx context.Context, key string, fields []string) ([]value.Value, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	vals, err := f.rdb.HMGet(ctx, key, fields...).Result()
	if err != nil {
		return nil, err
	}
	return values(vals), nil
}

func (f *Fetcher) SetMembers(ctx context.Context, key string) ([]value.Value, error) {
	ms, err := f.rdb.SMembers(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	out := make([]value.Value, len(ms))
	for i, m := range ms {
		out[i] = value.String(m)
	}
	return out, nil
}

func (f *Fetcher) SetIsMember(ctx context.Context, key string, member value.Value) (bool, error) {
	return f.rdb.SIsMember(ctx, key, member.String()).Result()
}

// RangeByScore is ZRANGEBYSCORE ... WITHSCORES over the whole window. Inclusive bounds,
// infinities included, are reported as proven, so the cache can pin them with markers.
func (f *Fetcher) RangeByScore(ctx context.Context, key string, start, stop float64, ex sortedset.Exclude) (nearcache.RangeResult, error) {
	zs, err := f.rdb.ZRangeByScoreWithScores(ctx, key, &redis.ZRangeBy{
		Min: bound(start, ex&sortedset.ExcludeStart != 0),
		Max: bound(stop, ex&sortedset.ExcludeStop != 0),
	}).Result()
	if err != nil {
		return nearcache.RangeResult{}, err
	}

	res := nearcache.RangeResult{Entries: make([]sortedset.Entry, 0, len(zs))}
	for _, z := range zs {
		res.Entries = append(res.Entries, sortedset.Entry{Member: value.FromAny(z.Member), Score: z.Score})
	}
	res.KnownMin, res.KnownMax = knownBounds(start, stop, ex)
	return res, nil
}

func knownBounds(start, stop float64, ex sortedset.Exclude) (lo, hi *float64) {
	if ex&sortedset.ExcludeStart == 0 {
		lo = &start
	}
	if ex&sortedset.ExcludeStop == 0 {
		hi = &stop
	}
	return lo, hi
}

// bound renders a score bound: "(" marks an exclusive one, infinities are "-inf"/"+inf".
func bound(x float64, exclusive bool) string {
	var s string
	switch {
	case math.IsInf(x, -1):
		s = "-inf"
	case math.IsInf(x, 1):
		s = "+inf"
	default:
		s = strconv.FormatFloat(x, 'g', -1, 64)
	}
	if exclusive {
		return "(" + s
	}
	return s
}

// Score is ZSCORE. ok is false when member is not in the set.
func (f *Fetcher) Score(ctx context.Context, key string, member value.Value) (float64, bool, error) {
	sc, err := f.rdb.ZScore(ctx, key, member.String()).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return sc, true, nil
}

func values(vals []any) []value.Value {
	out := make([]value.Value, len(vals))
	for i, v := range vals {
		out[i] = value.FromAny(v)
	}
	return out
}
