package ristretto

import (
	"errors"
	"time"

	rc "github.com/dgraph-io/ristretto"

	pr "github.com/unkn0wn-root/nearcache/provider"
)

// Provider bounds the local mirror with Ristretto's admission and eviction.
// A write Ristretto refuses or later evicts reads back as a miss, which the
// object store treats as "not cached": the next read goes to the remote store.
type Provider struct {
	c    *rc.Cache
	cost CostFunc
}

var _ pr.Provider = (*Provider)(nil)

// CostFunc weighs a cached value against MaxCost. Nil means every entry costs 1.
type CostFunc func(key string, value any) int64

type Config struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
	Metrics     bool
	Cost        CostFunc
}

func New(cfg Config) (*Provider, error) {
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 || cfg.BufferItems <= 0 {
		return nil, errors.New("ristretto: invalid config")
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}
	cost := cfg.Cost
	if cost == nil {
		cost = func(string, any) int64 { return 1 }
	}
	return &Provider{c: c, cost: cost}, nil
}

func (p *Provider) Get(key string) (any, bool) {
	return p.c.Get(key)
}

// Set waits for Ristretto's write buffer so the value is visible to the next Get.
func (p *Provider) Set(key string, value any, ttl time.Duration) bool {
	if ttl < 0 {
		ttl = 0
	}
	ok := p.c.SetWithTTL(key, value, p.cost(key, value), ttl)
	p.c.Wait()
	return ok
}

func (p *Provider) Del(key string) {
	p.c.Del(key)
}

func (p *Provider) Clear() {
	p.c.Clear()
}

func (p *Provider) Close() error {
	p.c.Wait()
	p.c.Close()
	return nil
}

// Metrics exposes Ristretto's counters when Config.Metrics is set.
func (p *Provider) Metrics() *rc.Metrics { return p.c.Metrics }
