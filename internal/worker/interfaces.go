package worker

import (
	"context"

	"dealroom.app/broker/internal/queue"
)

// Consumer abstracts the message queue for testability.
type Consumer interface {
	Read(ctx context.Context) ([]queue.Message, error)
	Ack(ctx context.Context, msg queue.Message) error
	Requeue(ctx context.Context, msg queue.Message, errMsg string) error
	SendDLQ(ctx context.Context, msg queue.Message, errMsg string) error
}

// Dispatcher turns a lifecycle event into notifications. A failed dispatch
// must record nothing so the message can be retried.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev queue.LifecycleEvent) (int, error)
}
