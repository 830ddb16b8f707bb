// Package nearcache keeps a local mirror of recently read remote strings, hashes, sets
// and sorted sets, and keeps it coherent with the remote store's keyspace notifications.
//
// Components:
//   - Registry: owns one Database per logical database id and the listeners feeding them.
//   - Database: one store.Store shared by the Strings, Hashes, Sets and SortedSets views.
//   - Views: cache-or-fetch. Misses call a caller-supplied fetch func with no lock held
//     and the result is spliced back into the cache (see remote.Fetcher for go-redis ones).
//   - Listener: applies __keyspace@<db>__ and __keyspace_detailed@<db>__ events.
//
// Detailed events:
//
//	<origin>:<event>[:<arg>]   - origin == Registry.ProcessID() is this process: skipped
//
// Usage:
//
//	reg, _ := nearcache.NewRegistry(nearcache.Options{Logger: nclogrus.New(logrus.StandardLogger())})
//	db, _  := reg.Database(ctx, "main", rdb)
//	f, _   := remote.NewFetcher(rdb)
//	v, err := db.Strings().Get(ctx, "user:1", f.Strings)
//
// Sorted-set ranges are answered locally only when a cached range proves the answer
// complete; see package sortedset.
package nearcache
