package nearcache

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/unkn0wn-root/nearcache/notify"
	pr "github.com/unkn0wn-root/nearcache/provider"
	"github.com/unkn0wn-root/nearcache/provider/memory"
	"github.com/unkn0wn-root/nearcache/store"
)

// Registry owns every Database of a process and the listeners feeding them.
// Databases sharing one client share one Listener.
type Registry struct {
	origin        string
	keyspace      int
	log           Logger
	hooks         Hooks
	newProvider   func() pr.Provider
	newSubscriber func(redis.UniversalClient) (notify.Subscriber, error)

	mu        sync.Mutex
	dbs       map[string]*Database
	listeners map[redis.UniversalClient]*Listener
	closed    bool
}

func NewRegistry(opts Options) (*Registry, error) {
	if strings.Contains(opts.ProcessID, ":") {
		return nil, ErrInvalidProcessID
	}
	r := &Registry{
		keyspace:  coalesce(opts.Keyspace, defaultKeyspace),
		dbs:       make(map[string]*Database),
		listeners: make(map[redis.UniversalClient]*Listener),
	}

	// defaults
	r.origin = coalesce(opts.ProcessID, uuid.NewString())
	r.log = coalesce[Logger](opts.Logger, NopLogger{})
	r.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})

	if opts.NewProvider != nil {
		r.newProvider = opts.NewProvider
	} else {
		sweep := coalesce(opts.SweepInterval, defaultSweepInterval)
		r.newProvider = func() pr.Provider { return memory.New(memory.Config{SweepInterval: sweep}) }
	}
	if opts.NewSubscriber != nil {
		r.newSubscriber = opts.NewSubscriber
	} else {
		r.newSubscriber = func(c redis.UniversalClient) (notify.Subscriber, error) {
			return notify.NewRedisSubscriber(c)
		}
	}
	return r, nil
}

// ProcessID is the origin this process's detailed events must carry.
func (r *Registry) ProcessID() string { return r.origin }

// Database returns the database for id, creating it on first use. With a non-nil client
// the database is attached to that client's listener, subscribing it when it is the first
// database on the client. A database that already has a listener keeps it.
//
// Subscribing happens without the registry lock held: handlers of running listeners keep
// resolving their databases meanwhile.
func (r *Registry) Database(ctx context.Context, id string, client redis.UniversalClient) (*Database, error) {
	if id == "" {
		return nil, ErrEmptyDatabaseID
	}
	for {
		needs, err := r.needsListener(id, client)
		if err != nil {
			return nil, err
		}
		var fresh *Listener
		if needs {
			if fresh, err = r.subscribe(ctx, client); err != nil {
				return nil, err
			}
		}

		r.mu.Lock()
		db, unused, retry, err := r.installLocked(id, client, fresh)
		r.mu.Unlock()

		// lost a race: another call subscribed the client first, or the registry closed
		if unused != nil {
			_ = unused.Close()
		}
		if !retry {
			return db, err
		}
	}
}

// needsListener reports whether a Database call must subscribe client before installing.
func (r *Registry) needsListener(id string, client redis.UniversalClient) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false, ErrRegistryClosed
	}
	if client == nil {
		return false, nil
	}
	if db, ok := r.dbs[id]; ok && db.lis != nil {
		return false, nil
	}
	_, shared := r.listeners[client]
	return !shared, nil
}

func (r *Registry) subscribe(ctx context.Context, client redis.UniversalClient) (*Listener, error) {
	sub, err := r.newSubscriber(client)
	if err != nil {
		return nil, err
	}
	lis := newListener(client, r.origin, r.keyspace, r.Lookup, r.log, r.hooks)
	if err := lis.start(ctx, sub); err != nil {
		return nil, err
	}
	return lis, nil
}

// installLocked registers id and attaches it to client's listener, installing fresh when
// the client has none. unused is a listener the caller must close after unlocking.
// retry is set when a listener is needed but fresh is nil (the shared one went away).
func (r *Registry) installLocked(id string, client redis.UniversalClient, fresh *Listener) (db *Database, unused *Listener, retry bool, err error) {
	if r.closed {
		return nil, fresh, false, ErrRegistryClosed
	}
	db, ok := r.dbs[id]
	if client != nil && (!ok || db.lis == nil) {
		lis, shared := r.listeners[client]
		switch {
		case shared:
			unused = fresh
		case fresh != nil:
			lis = fresh
			r.listeners[client] = lis
		default:
			return nil, nil, true, nil
		}
		if !ok {
			db = r.createLocked(id)
		}
		lis.attach(id)
		db.lis = lis
		return db, unused, false, nil
	}
	if !ok {
		db = r.createLocked(id)
	}
	return db, fresh, false, nil
}

func (r *Registry) createLocked(id string) *Database {
	db := newDatabase(id, store.New(r.newProvider()), r.log, r.hooks)
	r.dbs[id] = db
	r.log.Debug("database created", Fields{"db": id})
	return db
}

// Lookup returns an existing database.
func (r *Registry) Lookup(id string) (*Database, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	db, ok := r.dbs[id]
	return db, ok
}

// Remove tears one database down: it is detached from its listener (closing the listener
// when no database is left on it) and its store is cleared. Unknown ids are a no-op.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	db, ok := r.dbs[id]
	if !ok {
		r.mu.Unlock()
		return nil
	}
	delete(r.dbs, id)
	var idle *Listener
	if db.lis != nil && db.lis.detach(id) {
		idle = db.lis
		delete(r.listeners, idle.client)
	}
	r.mu.Unlock()

	// listeners resolve ids through Lookup: close them without holding r.mu
	var errs []error
	if idle != nil {
		errs = append(errs, idle.Close())
	}
	errs = append(errs, db.close())
	return errors.Join(errs...)
}

// Close unsubscribes every listener, then clears every database, each group in parallel.
// Further calls to Database fail with ErrRegistryClosed.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	dbs, listeners := r.dbs, r.listeners
	r.dbs = make(map[string]*Database)
	r.listeners = make(map[redis.UniversalClient]*Listener)
	r.mu.Unlock()

	var g errgroup.Group
	for _, lis := range listeners {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return lis.Close()
		})
	}
	lisErr := g.Wait()

	var dg errgroup.Group
	for _, db := range dbs {
		dg.Go(db.close)
	}
	err := errors.Join(lisErr, dg.Wait())
	r.log.Info("registry closed", Fields{"databases": len(dbs), "listeners": len(listeners), "err": err})
	return err
}

// Publisher returns a detailed-event publisher carrying this registry's ProcessID.
func (r *Registry) Publisher(client redis.UniversalClient) (*notify.Publisher, error) {
	return notify.NewPublisher(client, r.origin, r.keyspace)
}
