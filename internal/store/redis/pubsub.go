// Package redis provides the cross-instance event relay. Every instance
// publishes its board and tenant events on one shared channel; each instance
// subscribes and redelivers peers' events to its own live connections.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// EventChannel is the single pub/sub channel all instances share.
const EventChannel = "tavolo:events"

type Relay struct {
	client *redis.Client
}

func New(ctx context.Context, addr, password string, db int) (*Relay, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis.New: ping: %w", err)
	}

	return &Relay{client: client}, nil
}

func (r *Relay) Close() error {
	if err := r.client.Close(); err != nil {
		return fmt.Errorf("redis.Relay.Close: %w", err)
	}
	return nil
}

func (r *Relay) Publish(ctx context.Context, payload []byte) error {
	if err := r.client.Publish(ctx, EventChannel, payload).Err(); err != nil {
		return fmt.Errorf("redis.Relay.Publish: %w", err)
	}
	return nil
}

func (r *Relay) Subscribe(ctx context.Context) (<-chan []byte, func(), error) {
	sub := r.client.Subscribe(ctx, EventChannel)

	// Wait for subscription confirmation.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("redis.Relay.Subscribe: receive confirmation: %w", err)
	}

	out := make(chan []byte, 64)
	redisCh := sub.Channel()

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-redisCh:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	cleanup := func() {
		_ = sub.Close()
	}

	return out, cleanup, nil
}
