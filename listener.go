package nearcache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/nearcache/internal/util"
	"github.com/unkn0wn-root/nearcache/internal/wire"
	"github.com/unkn0wn-root/nearcache/notify"
	"github.com/unkn0wn-root/nearcache/sortedset"
)

// Listener applies the keyspace notifications of one connection to the databases
// attached to it. It holds database ids only; databases are resolved through the
// registry on every event, so a removed database is simply skipped.
//
// Both channel families are handled on their subscription's delivery goroutine.
// No ordering is assumed between the two families or across keys.
type Listener struct {
	client   redis.UniversalClient
	origin   string
	basic    string // channel prefixes
	detailed string
	lookup   func(id string) (*Database, bool)
	log      Logger
	hooks    Hooks

	paused atomic.Bool

	mu      sync.RWMutex
	targets map[string]struct{}
	subs    []notify.Subscription
	closed  bool
}

func newListener(client redis.UniversalClient, origin string, keyspace int, lookup func(string) (*Database, bool), log Logger, hooks Hooks) *Listener {
	return &Listener{
		client:   client,
		origin:   origin,
		basic:    util.KeyspacePrefix(keyspace),
		detailed: util.DetailedPrefix(keyspace),
		lookup:   lookup,
		log:      log,
		hooks:    hooks,
		targets:  make(map[string]struct{}),
	}
}

// start subscribes to both channel families. On failure nothing stays subscribed.
func (l *Listener) start(ctx context.Context, sub notify.Subscriber) error {
	bs, err := sub.Subscribe(ctx, util.Pattern(l.basic), l.handleBasic)
	if err != nil {
		return err
	}
	ds, err := sub.Subscribe(ctx, util.Pattern(l.detailed), l.handleDetailed)
	if err != nil {
		_ = bs.Close()
		return err
	}
	l.mu.Lock()
	l.subs = append(l.subs, bs, ds)
	l.mu.Unlock()
	l.log.Info("listener subscribed", Fields{"basic": l.basic, "detailed": l.detailed})
	return nil
}

// Pause drops every event until Resume. Dropped events are not replayed: keys changed
// remotely while paused may be stale afterwards.
func (l *Listener) Pause()       { l.paused.Store(true) }
func (l *Listener) Resume()      { l.paused.Store(false) }
func (l *Listener) Paused() bool { return l.paused.Load() }

// Targets lists the ids of the attached databases.
func (l *Listener) Targets() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(l.targets))
	for id := range l.targets {
		out = append(out, id)
	}
	return out
}

func (l *Listener) attach(id string) {
	l.mu.Lock()
	l.targets[id] = struct{}{}
	l.mu.Unlock()
}

// detach reports whether no database is left attached.
func (l *Listener) detach(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.targets, id)
	return len(l.targets) == 0
}

// Close unsubscribes both channel families and waits for in-flight events.
func (l *Listener) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	subs := l.subs
	l.subs = nil
	l.mu.Unlock()

	var errs []error
	for _, s := range subs {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// each runs fn on every attached database that still exists.
func (l *Listener) each(fn func(db *Database)) {
	l.mu.RLock()
	ids := make([]string, 0, len(l.targets))
	for id := range l.targets {
		ids = append(ids, id)
	}
	l.mu.RUnlock()
	for _, id := range ids {
		if db, ok := l.lookup(id); ok {
			fn(db)
		}
	}
}

func (l *Listener) handleBasic(channel, payload string) {
	key, ok := util.KeyFromChannel(l.basic, channel)
	if !ok {
		return
	}
	if payload != "expired" {
		// everything else is mirrored from the detailed channel
		return
	}
	if l.paused.Load() {
		l.hooks.EventDropped(key, payload, "paused")
		return
	}
	l.each(func(db *Database) {
		db.store.Remove(key)
		l.hooks.EventApplied(db.id, key, payload)
	})
}

func (l *Listener) handleDetailed(channel, payload string) {
	key, ok := util.KeyFromChannel(l.detailed, channel)
	if !ok {
		return
	}
	d, err := wire.DecodeDetailed(payload)
	if err != nil {
		l.hooks.EventMalformed(key, "", payload)
		l.log.Warn("malformed keyspace payload", Fields{"key": key, "payload": payload})
		return
	}
	if l.paused.Load() {
		l.hooks.EventDropped(key, d.Event, "paused")
		return
	}
	if d.Origin == l.origin {
		l.hooks.EventDropped(key, d.Event, "self_origin")
		return
	}

	apply, err := invalidation(key, d)
	switch {
	case err != nil:
		l.hooks.EventMalformed(key, d.Event, d.Arg)
		l.log.Debug("ignored event with malformed argument", Fields{"key": key, "event": d.Event, "arg": d.Arg})
		return
	case apply == nil:
		l.hooks.EventDropped(key, d.Event, "unknown_event")
		return
	}
	l.each(func(db *Database) {
		apply(db)
		l.hooks.EventApplied(db.id, key, d.Event)
	})
}

// invalidation maps a detailed event on key to the local change it implies. The argument
// is parsed once, before any database is touched. A nil func means the event is not acted on.
func invalidation(key string, d wire.Detailed) (func(db *Database), error) {
	switch d.Event {
	case "hset", "hdel", "hincr", "hincrbyfloat", "hdecr", "hdecrbyfloat":
		if d.Arg == "" {
			return nil, wire.ErrMalformed
		}
		return func(db *Database) { db.hashes.Delete(key, d.Arg) }, nil

	case "srem":
		h, err := wire.DecodeHash(d.Arg)
		if err != nil {
			return nil, err
		}
		return func(db *Database) { db.sets.RemoveByHash(key, h) }, nil

	case "zadd", "zrem", "zincr", "zdecr":
		h, err := wire.DecodeHash(d.Arg)
		if err != nil {
			return nil, err
		}
		return func(db *Database) { db.zsets.RemoveByHash(key, h) }, nil

	case "zremrangebyscore":
		w, err := wire.DecodeScoreWindow(d.Arg)
		if err != nil {
			return nil, err
		}
		return func(db *Database) {
			db.zsets.RemoveByScore(key, w.Start, w.Stop, sortedset.Exclude(w.Exclude))
		}, nil

	case "zremrangebyrank", "zremrangebylex":
		// rank and lex windows do not translate to scores
		return func(db *Database) { db.zsets.Delete(key) }, nil

	case "del",
		"set", "setbit", "setrange", "append",
		"incrby", "incrbyfloat", "decrby", "decrbyfloat":
		return func(db *Database) { db.store.Remove(key) }, nil

	case "expire":
		return func(db *Database) { db.store.ClearTimeToLive(key) }, nil

	case "rename_key":
		if d.Arg == "" {
			return nil, wire.ErrMalformed
		}
		return func(db *Database) { db.store.RenameKey(key, d.Arg) }, nil
	}
	return nil, nil
}
