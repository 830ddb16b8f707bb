package nearcache

import (
	"reflect"
	"testing"
	"time"

	"github.com/unkn0wn-root/nearcache/internal/wire"
	"github.com/unkn0wn-root/nearcache/sortedset"
	"github.com/unkn0wn-root/nearcache/store"
	"github.com/unkn0wn-root/nearcache/value"
)

const (
	basicCh    = "__keyspace@0__:"
	detailedCh = "__keyspace_detailed@0__:"
)

func TestSelfOriginIsIgnored(t *testing.T) {
	hooks := &recHooks{}
	db, sub := newTestDB(t, func(o *Options) { o.Hooks = hooks })
	db.Strings().Set("k", value.String("v"), store.Unknown(), store.Always)

	sub.emit(detailedCh+"k", "self:set")
	if !db.Store().ContainsKey("k") {
		t.Fatalf("self event removed the key")
	}
	sub.emit(detailedCh+"k", "other:set")
	if db.Store().ContainsKey("k") {
		t.Fatalf("foreign set did not remove the key")
	}
	if !reflect.DeepEqual(hooks.dropped, []string{"k:self_origin"}) || !reflect.DeepEqual(hooks.applied, []string{"k:set"}) {
		t.Fatalf("dropped = %v applied = %v", hooks.dropped, hooks.applied)
	}
}

func TestRenameKeepsValueAndTTL(t *testing.T) {
	db, sub := newTestDB(t, nil)
	st := db.Store()
	st.Add("foo", value.String("v"), store.In(30*time.Second), store.Always)

	sub.emit(detailedCh+"foo", "other:rename_key:bar")

	if st.ContainsKey("foo") {
		t.Fatalf("foo still cached")
	}
	v, ok := store.Get[value.Value](st, "bar")
	if !ok || v != value.String("v") {
		t.Fatalf("bar = %v,%v", v, ok)
	}
	d, ok := st.GetExpiry("bar").TTL()
	if !ok || d <= 29*time.Second || d > 30*time.Second {
		t.Fatalf("bar ttl = %v,%v", d, ok)
	}

	// renaming something not cached changes nothing
	sub.emit(detailedCh+"missing", "other:rename_key:x")
	if st.ContainsKey("x") {
		t.Fatalf("rename of a missing key created x")
	}
}

func TestPauseDropsEvents(t *testing.T) {
	db, sub := newTestDB(t, nil)
	db.Strings().Set("k", value.String("v"), store.Unknown(), store.Always)

	db.Listener().Pause()
	sub.emit(detailedCh+"k", "other:del")
	sub.emit(basicCh+"k", "expired")
	if !db.Store().ContainsKey("k") {
		t.Fatalf("event applied while paused")
	}

	db.Listener().Resume()
	sub.emit(basicCh+"k", "expired")
	if db.Store().ContainsKey("k") {
		t.Fatalf("expired not applied after Resume")
	}
}

func TestBasicChannelOnlyActsOnExpired(t *testing.T) {
	db, sub := newTestDB(t, nil)
	db.Strings().Set("k", value.String("v"), store.Unknown(), store.Always)

	for _, ev := range []string{"set", "del", "hset"} {
		sub.emit(basicCh+"k", ev)
	}
	if !db.Store().ContainsKey("k") {
		t.Fatalf("basic channel acted on a non-expired event")
	}
}

func zMember(db *Database, m value.Value) (sortedset.Entry, bool) {
	zs, ok := db.SortedSets().lookup("z")
	if !ok {
		return sortedset.Entry{}, false
	}
	return zs.RetrieveEntry(m)
}

func TestDetailedDispatch(t *testing.T) {
	member := value.String("m")
	hash := wire.EncodeHash(value.StableHash(member))

	cases := []struct {
		name    string
		key     string
		payload string
		check   func(t *testing.T, db *Database)
	}{
		{"hset drops field", "h", "o:hset:f", func(t *testing.T, db *Database) {
			if db.Hashes().Contains("h", "f") || !db.Hashes().Contains("h", "g") {
				t.Fatalf("fields = %v", func() map[string]value.Value { m, _ := db.Hashes().Cached("h"); return m }())
			}
		}},
		{"hincrbyfloat drops field", "h", "o:hincrbyfloat:f", func(t *testing.T, db *Database) {
			if db.Hashes().Contains("h", "f") {
				t.Fatalf("field kept")
			}
		}},
		{"srem by hash", "s", "o:srem:" + hash, func(t *testing.T, db *Database) {
			if db.Sets().Remove("s", member) != 0 {
				t.Fatalf("member kept")
			}
		}},
		{"zadd by hash", "z", "o:zadd:" + hash, func(t *testing.T, db *Database) {
			if _, ok := zMember(db, member); ok {
				t.Fatalf("member kept")
			}
		}},
		{"zremrangebyscore", "z", "o:zremrangebyscore:1-2-0", func(t *testing.T, db *Database) {
			if _, ok := zMember(db, member); ok {
				t.Fatalf("member at 1.5 kept")
			}
			if _, ok := zMember(db, value.String("n")); !ok {
				t.Fatalf("member at 3 removed")
			}
		}},
		{"zremrangebyrank drops key", "z", "o:zremrangebyrank:0-1", func(t *testing.T, db *Database) {
			if db.SortedSets().Count("z") != 0 {
				t.Fatalf("sorted set kept")
			}
		}},
		{"expire clears ttl only", "str", "o:expire", func(t *testing.T, db *Database) {
			if !db.Store().ContainsKey("str") || db.Store().GetExpiry("str").Known() {
				t.Fatalf("expiry = %v", db.Store().GetExpiry("str"))
			}
		}},
		{"incrby drops key", "str", "o:incrby:5", func(t *testing.T, db *Database) {
			if db.Store().ContainsKey("str") {
				t.Fatalf("key kept")
			}
		}},
		{"unknown event is a no-op", "str", "o:lpush:x", func(t *testing.T, db *Database) {
			if !db.Store().ContainsKey("str") || db.Store().GetExpiry("str").Kind() != store.ExpiryNever {
				t.Fatalf("unknown event changed state")
			}
		}},
		{"malformed hash is a no-op", "z", "o:zrem:not-a-number", func(t *testing.T, db *Database) {
			if _, ok := zMember(db, member); !ok {
				t.Fatalf("malformed event removed a member")
			}
		}},
		{"malformed window is a no-op", "z", "o:zremrangebyscore:1-2", func(t *testing.T, db *Database) {
			if db.SortedSets().Count("z") == 0 {
				t.Fatalf("malformed event removed members")
			}
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db, sub := newTestDB(t, nil)
			db.Hashes().Set("h", map[string]value.Value{"f": value.String("1"), "g": value.String("2")}, store.Always)
			db.Sets().Add("s", member)
			zs := db.SortedSets().ranges("z")
			zs.Add([]sortedset.Entry{{Member: member, Score: 1.5}, {Member: value.String("n"), Score: 3}}, nil, nil)
			db.Strings().Set("str", value.String("v"), store.Never(), store.Always)

			sub.emit(detailedCh+tc.key, tc.payload)
			tc.check(t, db)
		})
	}
}

func TestMalformedPayloadReported(t *testing.T) {
	hooks := &recHooks{}
	_, sub := newTestDB(t, func(o *Options) { o.Hooks = hooks })

	sub.emit(detailedCh+"k", "no-colon")
	sub.emit(detailedCh+"k", "o:srem:xyz")
	if !reflect.DeepEqual(hooks.malformed, []string{"k:", "k:srem"}) {
		t.Fatalf("malformed = %v", hooks.malformed)
	}
	if len(hooks.applied) != 0 {
		t.Fatalf("applied = %v", hooks.applied)
	}
}
