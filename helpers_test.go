package nearcache

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/nearcache/notify"
)

type fakeSub struct {
	mu       sync.Mutex
	handlers map[string]notify.Handler // pattern -> handler
	closed   []string
	fail     error

	// when gate is set, Subscribe closes entered once and blocks until gate closes
	gate      chan struct{}
	entered   chan struct{}
	enterOnce sync.Once
}

var _ notify.Subscriber = (*fakeSub)(nil)

func newFakeSub() *fakeSub { return &fakeSub{handlers: make(map[string]notify.Handler)} }

func (f *fakeSub) Subscribe(_ context.Context, pattern string, h notify.Handler) (notify.Subscription, error) {
	if f.gate != nil {
		f.enterOnce.Do(func() { close(f.entered) })
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	f.handlers[pattern] = h
	return &fakeSubscription{f: f, pattern: pattern}, nil
}

// emit delivers payload on channel to the matching pattern subscription, synchronously.
func (f *fakeSub) emit(channel, payload string) {
	f.mu.Lock()
	var h notify.Handler
	for p, hh := range f.handlers {
		if strings.HasPrefix(channel, strings.TrimSuffix(p, "*")) {
			h = hh
		}
	}
	f.mu.Unlock()
	if h != nil {
		h(channel, payload)
	}
}

func (f *fakeSub) subscribed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handlers)
}

type fakeSubscription struct {
	f       *fakeSub
	pattern string
}

func (s *fakeSubscription) Close() error {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	if _, ok := s.f.handlers[s.pattern]; ok {
		delete(s.f.handlers, s.pattern)
		s.f.closed = append(s.f.closed, s.pattern)
	}
	return nil
}

// offlineClient is never dialled: the fake subscriber only uses it as an identity.
func offlineClient(t *testing.T) redis.UniversalClient {
	t.Helper()
	c := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func newTestRegistry(t *testing.T, sub *fakeSub, optsOpt func(*Options)) *Registry {
	t.Helper()
	opts := Options{
		ProcessID:     "self",
		NewSubscriber: func(redis.UniversalClient) (notify.Subscriber, error) { return sub, nil },
	}
	if optsOpt != nil {
		optsOpt(&opts)
	}
	r, err := NewRegistry(opts)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	t.Cleanup(func() { _ = r.Close(context.Background()) })
	return r
}

// newTestDB returns a listening database on a fake transport.
func newTestDB(t *testing.T, optsOpt func(*Options)) (*Database, *fakeSub) {
	t.Helper()
	sub := newFakeSub()
	r := newTestRegistry(t, sub, optsOpt)
	db, err := r.Database(context.Background(), "main", offlineClient(t))
	if err != nil {
		t.Fatalf("Database: %v", err)
	}
	return db, sub
}

type recHooks struct {
	NopHooks
	mu        sync.Mutex
	applied   []string
	dropped   []string
	malformed []string
	fetch     int
	heals     int
}

func (h *recHooks) EventApplied(_, key, event string) {
	h.mu.Lock()
	h.applied = append(h.applied, key+":"+event)
	h.mu.Unlock()
}

func (h *recHooks) EventDropped(key, _, reason string) {
	h.mu.Lock()
	h.dropped = append(h.dropped, key+":"+reason)
	h.mu.Unlock()
}

func (h *recHooks) EventMalformed(key, event, _ string) {
	h.mu.Lock()
	h.malformed = append(h.malformed, key+":"+event)
	h.mu.Unlock()
}

func (h *recHooks) FetchFailed(string, int, error) {
	h.mu.Lock()
	h.fetch++
	h.mu.Unlock()
}

func (h *recHooks) SelfHeal(string, string) {
	h.mu.Lock()
	h.heals++
	h.mu.Unlock()
}
