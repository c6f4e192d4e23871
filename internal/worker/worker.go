package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"dealroom.app/broker/common/logger"
	"dealroom.app/broker/internal/queue"
)

type Config struct {
	MaxAttempts int
}

type Worker struct {
	consumer   Consumer
	dispatcher Dispatcher
	cfg        Config

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func New(consumer Consumer, dispatcher Dispatcher, cfg Config) *Worker {
	return &Worker{
		consumer:   consumer,
		dispatcher: dispatcher,
		cfg:        cfg,
		stopCh:     make(chan struct{}),
		stoppedCh:  make(chan struct{}),
	}
}

func (w *Worker) Run(ctx context.Context) error {
	defer close(w.stoppedCh)

	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "broker.worker"})
	slog.InfoContext(ctx, "worker started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stopCh:
			slog.InfoContext(ctx, "worker stopping")
			return nil
		default:
			if err := w.processOneBatch(ctx); err != nil {
				slog.ErrorContext(ctx, "batch processing error", "error", err)
				// Brief backoff on error
				time.Sleep(time.Second)
			}
		}
	}
}

func (w *Worker) Stop() {
	close(w.stopCh)
	<-w.stoppedCh
}

func (w *Worker) processOneBatch(ctx context.Context) error {
	messages, err := w.consumer.Read(ctx)
	if err != nil {
		return fmt.Errorf("reading from stream: %w", err)
	}

	for _, msg := range messages {
		if err := w.processMessageSafe(ctx, msg); err != nil {
			slog.ErrorContext(ctx, "message processing failed",
				"error", err,
				"message_id", msg.ID,
				"item_id", msg.Event.ItemID)
			w.handleFailedMessage(ctx, msg, err)
		}
	}

	return nil
}

func (w *Worker) processMessageSafe(ctx context.Context, msg queue.Message) (err error) {
	sc := logger.StartSpanFromTraceID(ctx, msg.TraceID, "worker.process_message",
		attribute.String("message_id", msg.ID),
		attribute.String("item_kind", string(msg.Event.ItemKind)),
		attribute.Int64("item_id", msg.Event.ItemID),
		attribute.Int("attempt", msg.Attempt))
	ctx = sc.Context()
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic recovered in message processing",
				"panic", r,
				"message_id", msg.ID,
				"item_id", msg.Event.ItemID)
			err = fmt.Errorf("panic: %v", r)
		}
		sc.Fail(err)
		sc.End()
	}()
	return w.ProcessMessage(ctx, msg)
}

// ProcessMessage dispatches one event and acknowledges it. Exported so the
// reclaimer can reuse it.
func (w *Worker) ProcessMessage(ctx context.Context, msg queue.Message) error {
	kind := string(msg.Event.ItemKind)
	itemID := msg.Event.ItemID
	msgID := msg.ID
	fields := logger.LogFields{
		ItemKind:  &kind,
		ItemID:    &itemID,
		MessageID: &msgID,
		EventType: logger.Ptr(string(msg.Event.Type)),
	}
	if msg.TraceID != "" {
		traceID := msg.TraceID
		fields.RequestID = &traceID
	}
	ctx = logger.WithLogFields(ctx, fields)

	slog.InfoContext(ctx, "processing message", "attempt", msg.Attempt)

	sent, err := w.dispatcher.Dispatch(ctx, msg.Event)
	if err != nil {
		// Not acknowledged: the caller requeues or dead-letters it.
		return fmt.Errorf("dispatching event: %w", err)
	}

	if err := w.consumer.Ack(ctx, msg); err != nil {
		// Log but don't fail - message will be reclaimed but that's safe
		slog.WarnContext(ctx, "failed to ACK message",
			"error", err,
			"message_id", msg.ID)
	}

	slog.InfoContext(ctx, "event dispatched", "notifications", sent)
	return nil
}

func (w *Worker) handleFailedMessage(ctx context.Context, msg queue.Message, err error) {
	if msg.Attempt >= w.cfg.MaxAttempts {
		slog.ErrorContext(ctx, "max attempts reached, sending to DLQ",
			"message_id", msg.ID,
			"item_id", msg.Event.ItemID,
			"attempts", msg.Attempt)
		if dlqErr := w.consumer.SendDLQ(ctx, msg, err.Error()); dlqErr != nil {
			slog.ErrorContext(ctx, "failed to send to DLQ", "error", dlqErr)
		}
		return
	}

	slog.WarnContext(ctx, "requeuing failed message",
		"message_id", msg.ID,
		"item_id", msg.Event.ItemID,
		"attempt", msg.Attempt)
	if requeueErr := w.consumer.Requeue(ctx, msg, err.Error()); requeueErr != nil {
		slog.ErrorContext(ctx, "failed to requeue message", "error", requeueErr)
	}
}
