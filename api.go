package nearcache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/nearcache/notify"
	pr "github.com/unkn0wn-root/nearcache/provider"
	"github.com/unkn0wn-root/nearcache/sortedset"
	"github.com/unkn0wn-root/nearcache/store"
	"github.com/unkn0wn-root/nearcache/value"
)

// Options tune a Registry. Every field is optional.
type Options struct {
	// ProcessID tags this process's own detailed events so the listener can skip them.
	// Must not contain ':'. "" => a random UUID.
	ProcessID string
	// Keyspace is the remote database index in channel names (__keyspace@<n>__:). 0 by default.
	Keyspace int

	Logger Logger // if nil, NopLogger is used
	Hooks  Hooks  // if nil, NopHooks is used

	// NewProvider builds the raw backend of each database's store.
	// nil => provider/memory swept every SweepInterval.
	NewProvider   func() pr.Provider
	SweepInterval time.Duration // 0 => 1m

	// NewSubscriber opens the notification transport for a client. nil => notify.NewRedisSubscriber.
	NewSubscriber func(redis.UniversalClient) (notify.Subscriber, error)
}

// Remote-fetch callbacks. They run with no cache lock held; their errors reach the
// caller wrapped in *FetchError.

// StringsFetch returns one value per key, in order. value.Null marks a missing key.
type StringsFetch func(ctx context.Context, keys []string) ([]value.Value, error)

// StringExpiryFetch returns a value together with its remote TTL.
type StringExpiryFetch func(ctx context.Context, key string) (value.Value, store.Expiry, error)

// HashAllFetch returns every field of a hash. An empty map means the hash does not exist.
type HashAllFetch func(ctx context.Context, key string) (map[string]value.Value, error)

// HashFieldsFetch returns one value per field, in order. value.Null marks a missing field.
type HashFieldsFetch func(ctx context.Context, key string, fields []string) ([]value.Value, error)

// SetMembersFetch returns every member of a set.
type SetMembersFetch func(ctx context.Context, key string) ([]value.Value, error)

// SetIsMemberFetch checks one member remotely.
type SetIsMemberFetch func(ctx context.Context, key string, member value.Value) (bool, error)

// RangeFetch returns every member of a sorted set inside the score window, ascending.
type RangeFetch func(ctx context.Context, key string, start, stop float64, ex sortedset.Exclude) (RangeResult, error)

// ScoreFetch returns a member's score; ok is false when it is not a member.
type ScoreFetch func(ctx context.Context, key string, member value.Value) (score float64, ok bool, err error)

// RangeResult is one contiguous run of a sorted set. KnownMin/KnownMax, when set, are
// bounds the remote proved (typically the query's inclusive bounds) even where no member
// sits exactly on them.
type RangeResult struct {
	Entries  []sortedset.Entry
	KnownMin *float64
	KnownMax *float64
}
