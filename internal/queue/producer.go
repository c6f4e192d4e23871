package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

type Producer interface {
	Publish(ctx context.Context, ev LifecycleEvent) error
	Close() error
}

type redisProducer struct {
	client *redis.Client
	stream string
	logger *slog.Logger
}

func NewRedisProducer(client *redis.Client, stream string, logger *slog.Logger) Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisProducer{
		client: client,
		stream: stream,
		logger: logger,
	}
}

func (p *redisProducer) Publish(ctx context.Context, ev LifecycleEvent) error {
	attempt := ev.Attempt
	if attempt <= 0 {
		attempt = 1
	}

	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: eventValues(ev, attempt),
	}).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	p.logger.InfoContext(ctx, "published lifecycle event",
		"event_type", ev.Type,
		"item_kind", ev.ItemKind,
		"item_id", ev.ItemID,
		"status", ev.Status,
		"next_gate", ev.NextGate)
	return nil
}

func (p *redisProducer) Close() error {
	return p.client.Close()
}

// NopProducer drops events. Used when no stream is configured.
type NopProducer struct{}

func (NopProducer) Publish(context.Context, LifecycleEvent) error { return nil }
func (NopProducer) Close() error { return nil }
