package notify

import (
	"context"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/nearcache/internal/util"
	"github.com/unkn0wn-root/nearcache/internal/wire"
	"github.com/unkn0wn-root/nearcache/sortedset"
	"github.com/unkn0wn-root/nearcache/value"
)

var ErrInvalidOrigin = errors.New("notify: origin must be non-empty and contain no ':'")

// Publisher announces local writes on the detailed keyspace channel, tagged with this
// process's origin id so the local listener skips them.
type Publisher struct {
	rdb    redis.UniversalClient
	origin string
	prefix string
}

func NewPublisher(client redis.UniversalClient, origin string, db int) (*Publisher, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	if origin == "" || strings.Contains(origin, ":") {
		return nil, ErrInvalidOrigin
	}
	return &Publisher{rdb: client, origin: origin, prefix: util.DetailedPrefix(db)}, nil
}

// Publish sends origin:event[:arg] on the detailed channel of key.
func (p *Publisher) Publish(ctx context.Context, key, event, arg string) error {
	payload := wire.EncodeDetailed(wire.Detailed{Origin: p.origin, Event: event, Arg: arg})
	return p.rdb.Publish(ctx, p.prefix+key, payload).Err()
}

// PublishMember sends a set/sorted-set member event (srem, zadd, zrem, zincr, zdecr)
// carrying the member's stable hash.
func (p *Publisher) PublishMember(ctx context.Context, key, event string, member value.Value) error {
	return p.Publish(ctx, key, event, memberHash(member))
}

// memberHash hashes member in the form readers cache it. Members come back from the
// remote as strings, so an integer is hashed as its decimal text.
func memberHash(member value.Value) string {
	if member.IsInteger() {
		member = value.String(member.String())
	}
	return wire.EncodeHash(value.StableHash(member))
}

// PublishScoreWindow sends a zremrangebyscore event.
func (p *Publisher) PublishScoreWindow(ctx context.Context, key string, start, stop float64, ex sortedset.Exclude) error {
	arg := wire.EncodeScoreWindow(wire.ScoreWindow{Start: start, Stop: stop, Exclude: uint8(ex)})
	return p.Publish(ctx, key, "zremrangebyscore", arg)
}

// PublishRename sends rename_key for from -> to.
func (p *Publisher) PublishRename(ctx context.Context, from, to string) error {
	return p.Publish(ctx, from, "rename_key", to)
}
