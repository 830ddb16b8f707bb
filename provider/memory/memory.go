package memory

import (
	"sync"
	"time"

	pr "github.com/unkn0wn-root/nearcache/provider"
)

type entry struct {
	v   any
	exp time.Time // zero => no TTL
}

// Provider keeps values in a map. Expired entries are dropped lazily on read and
// by an optional sweep loop.
type Provider struct {
	mu sync.RWMutex
	m  map[string]entry

	ticker *time.Ticker
	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

var _ pr.Provider = (*Provider)(nil)

type Config struct {
	SweepInterval time.Duration // 0 = no background sweep
}

func New(cfg Config) *Provider {
	p := &Provider{m: make(map[string]entry)}
	if cfg.SweepInterval > 0 {
		p.ticker = time.NewTicker(cfg.SweepInterval)
		p.stopCh = make(chan struct{})
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-p.ticker.C:
					p.Sweep()
				case <-p.stopCh:
					return
				}
			}
		}()
	}
	return p
}

func (p *Provider) Get(key string) (any, bool) {
	p.mu.RLock()
	e, ok := p.m[key]
	p.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !e.exp.IsZero() && time.Now().After(e.exp) {
		p.mu.Lock()
		// re-check; a concurrent Set may have replaced it
		if cur, ok := p.m[key]; ok && cur.exp.Equal(e.exp) {
			delete(p.m, key)
		}
		p.mu.Unlock()
		return nil, false
	}
	return e.v, true
}

func (p *Provider) Set(key string, value any, ttl time.Duration) bool {
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	p.mu.Lock()
	p.m[key] = entry{v: value, exp: exp}
	p.mu.Unlock()
	return true
}

func (p *Provider) Del(key string) {
	p.mu.Lock()
	delete(p.m, key)
	p.mu.Unlock()
}

func (p *Provider) Clear() {
	p.mu.Lock()
	p.m = make(map[string]entry)
	p.mu.Unlock()
}

// Len counts entries, including expired ones not yet swept.
func (p *Provider) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.m)
}

// Sweep drops every expired entry.
func (p *Provider) Sweep() {
	now := time.Now()
	p.mu.Lock()
	for k, e := range p.m {
		if !e.exp.IsZero() && now.After(e.exp) {
			delete(p.m, k)
		}
	}
	p.mu.Unlock()
}

func (p *Provider) Close() error {
	p.once.Do(func() {
		if p.stopCh != nil {
			close(p.stopCh)
			p.ticker.Stop()
			p.wg.Wait()
		}
	})
	return nil
}
