// Package asynchook moves nearcache.Hooks calls off the notification delivery goroutine.
//
// usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{AppliedEvery: 100})
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	reg, _ := nearcache.NewRegistry(nearcache.Options{Hooks: hooks})
package asynchook

import (
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/nearcache"
)

type Hooks struct {
	inner   nearcache.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	mu      sync.RWMutex // guards q against send after close
	closed  bool
	dropped atomic.Uint64
}

var _ nearcache.Hooks = (*Hooks)(nil)

func New(inner nearcache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers. Events after Close are dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		close(h.q)
		h.mu.Unlock()
		h.wg.Wait()
	})
}

// Dropped counts events lost to a full queue or a closed hook.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default: // drop
		h.dropped.Add(1)
	}
}

func (h *Hooks) EventApplied(db, key, event string) {
	h.try(func() { h.inner.EventApplied(db, key, event) })
}
func (h *Hooks) EventDropped(key, event, reason string) {
	h.try(func() { h.inner.EventDropped(key, event, reason) })
}
func (h *Hooks) EventMalformed(key, event, arg string) {
	h.try(func() { h.inner.EventMalformed(key, event, arg) })
}
func (h *Hooks) FetchFailed(op string, keys int, err error) {
	h.try(func() { h.inner.FetchFailed(op, keys, err) })
}
func (h *Hooks) SelfHeal(key, reason string) { h.try(func() { h.inner.SelfHeal(key, reason) }) }
