package nearcache

import (
	"github.com/unkn0wn-root/nearcache/store"
)

// Database is the local mirror of one remote logical database: one object store shared
// by every view. It is owned by the Registry that created it.
type Database struct {
	id    string
	store *store.Store
	log   Logger
	hooks Hooks

	strings *Strings
	hashes  *Hashes
	sets    *Sets
	zsets   *SortedSets

	lis *Listener // nil without a live connection
}

func newDatabase(id string, st *store.Store, log Logger, hooks Hooks) *Database {
	db := &Database{id: id, store: st, log: log, hooks: hooks}
	db.strings = &Strings{db: db}
	db.hashes = &Hashes{db: db}
	db.sets = &Sets{db: db}
	db.zsets = &SortedSets{db: db}
	return db
}

func (db *Database) ID() string              { return db.id }
func (db *Database) Store() *store.Store     { return db.store }
func (db *Database) Strings() *Strings       { return db.strings }
func (db *Database) Hashes() *Hashes         { return db.hashes }
func (db *Database) Sets() *Sets             { return db.sets }
func (db *Database) SortedSets() *SortedSets { return db.zsets }
func (db *Database) Listener() *Listener     { return db.lis }

// fetchFailed wraps a fetch error and reports it.
func (db *Database) fetchFailed(op string, keys []string, err error) error {
	db.hooks.FetchFailed(op, len(keys), err)
	db.log.Warn("fetch failed", Fields{"db": db.id, "op": op, "keys": len(keys), "err": err})
	return &FetchError{Op: op, Keys: keys, Err: err}
}

func (db *Database) close() error { return db.store.Close() }
