// Package notify carries keyspace notifications between the remote store and the local
// mirror: a Subscriber delivers pattern-subscribed messages to a handler, and a Publisher
// emits the detailed events other processes use to invalidate their own mirrors.
package notify

import (
	"context"
	"errors"
	"sync"

	"github.com/redis/go-redis/v9"
)

var ErrNilClient = errors.New("notify: nil client")

// Handler receives one message. It runs on the subscription's delivery goroutine, so
// messages of one subscription are handled in the order the transport delivers them.
type Handler func(channel, payload string)

// Subscriber opens pattern subscriptions.
type Subscriber interface {
	// Subscribe returns once the subscription is confirmed.
	Subscribe(ctx context.Context, pattern string, h Handler) (Subscription, error)
}

// Subscription is one live pattern subscription.
type Subscription interface {
	// Close unsubscribes and waits for in-flight deliveries to finish. Safe to call twice.
	Close() error
}

// RedisSubscriber subscribes with PSUBSCRIBE over a go-redis client.
type RedisSubscriber struct {
	rdb redis.UniversalClient
}

var _ Subscriber = (*RedisSubscriber)(nil)

func NewRedisSubscriber(client redis.UniversalClient) (*RedisSubscriber, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	return &RedisSubscriber{rdb: client}, nil
}

func (s *RedisSubscriber) Subscribe(ctx context.Context, pattern string, h Handler) (Subscription, error) {
	ps := s.rdb.PSubscribe(ctx, pattern)
	// wait for the subscribe confirmation so no event published after return is missed
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}
	sub := &redisSubscription{ps: ps, done: make(chan struct{})}
	ch := ps.Channel()
	go func() {
		defer close(sub.done)
		for msg := range ch {
			h(msg.Channel, msg.Payload)
		}
	}()
	return sub, nil
}

type redisSubscription struct {
	ps   *redis.PubSub
	done chan struct{}
	once sync.Once
	err  error
}

func (s *redisSubscription) Close() error {
	s.once.Do(func() {
		// closing the PubSub unsubscribes and closes the message channel
		if err := s.ps.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
			s.err = err
		}
		<-s.done
	})
	return s.err
}
