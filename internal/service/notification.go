package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"dealroom.app/broker/common/id"
	"dealroom.app/broker/internal/lifecycle"
	"dealroom.app/broker/internal/model"
	"dealroom.app/broker/internal/queue"
	"dealroom.app/broker/internal/store"
)

type NotificationService interface {
	// Dispatch records one notification per recipient of a lifecycle event.
	Dispatch(ctx context.Context, ev queue.LifecycleEvent) (int, error)
	List(ctx context.Context, recipientID int64, unreadOnly bool) ([]model.Notification, error)
	MarkRead(ctx context.Context, notificationID, recipientID int64) error
}

type notificationService struct {
	txRunner      TxRunner
	notifications store.NotificationStore
	limit         int32
}

func NewNotificationService(txRunner TxRunner, notifications store.NotificationStore, limit int) NotificationService {
	if limit <= 0 {
		limit = 50
	}
	return &notificationService{
		txRunner:      txRunner,
		notifications: notifications,
		limit:         int32(limit),
	}
}

func (s *notificationService) Dispatch(ctx context.Context, ev queue.LifecycleEvent) (int, error) {
	sent := 0
	err := s.txRunner.WithTx(ctx, func(sp StoreProvider) error {
		recipients, err := recipientsFor(ctx, sp.Parties(), ev)
		if err != nil {
			return err
		}
		if len(recipients) == 0 {
			slog.WarnContext(ctx, "lifecycle event has no recipients",
				"item_kind", ev.ItemKind,
				"item_id", ev.ItemID,
				"next_gate", ev.NextGate)
			return nil
		}

		title, body := describe(ev)
		for _, recipientID := range recipients {
			n := &model.Notification{
				ID:          id.New(),
				RecipientID: recipientID,
				ItemKind:    ev.ItemKind,
				ItemID:      ev.ItemID,
				Title:       title,
				Body:        body,
			}
			if err := sp.Notifications().Create(ctx, n); err != nil {
				return fmt.Errorf("creating notification for %d: %w", recipientID, err)
			}
		}
		sent = len(recipients)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return sent, nil
}

// recipientsFor names who hears about ev: the next actor while the chain is
// running, the submitter once it is terminal.
func recipientsFor(ctx context.Context, parties store.PartyStore, ev queue.LifecycleEvent) ([]int64, error) {
	switch {
	case ev.Terminal():
		if ev.SubmitterID == 0 {
			return nil, nil
		}
		return []int64{ev.SubmitterID}, nil
	case ev.NextPartyID != 0:
		return []int64{ev.NextPartyID}, nil
	case ev.NextAdvisorCode != "":
		advisors, err := parties.ListByAdvisorCode(ctx, model.PartyTypeAdvisor, model.NormalizeAdvisorCode(ev.NextAdvisorCode))
		if err != nil {
			return nil, fmt.Errorf("listing advisors for %s: %w", ev.NextAdvisorCode, err)
		}
		ids := make([]int64, 0, len(advisors))
		for _, a := range advisors {
			ids = append(ids, a.ID)
		}
		return ids, nil
	}
	return nil, nil
}

func describe(ev queue.LifecycleEvent) (string, string) {
	kind := strings.ReplaceAll(string(ev.ItemKind), "_", " ")
	switch {
	case ev.Type == queue.EventTypeCompleted:
		return fmt.Sprintf("Your %s is fully funded", kind),
			fmt.Sprintf("Accepted tickets now cover the total ask of %s %d.", kind, ev.ItemID)
	case ev.Terminal():
		return fmt.Sprintf("Your %s was %s", kind, outcomeWord(ev.Status)),
			fmt.Sprintf("%s %d finished with status %s.", kind, ev.ItemID, ev.Status)
	default:
		return fmt.Sprintf("Review requested on %s %d", kind, ev.ItemID),
			fmt.Sprintf("%s %d is waiting at %s.", kind, ev.ItemID, strings.ReplaceAll(string(ev.NextGate), "_", " "))
	}
}

func outcomeWord(status string) string {
	if strings.Contains(status, "rejected") || status == string(model.OpportunityStatusCancelled) {
		return "declined"
	}
	return "accepted"
}

func (s *notificationService) List(ctx context.Context, recipientID int64, unreadOnly bool) ([]model.Notification, error) {
	ns, err := s.notifications.ListByRecipient(ctx, recipientID, unreadOnly, s.limit)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	return ns, nil
}

func (s *notificationService) MarkRead(ctx context.Context, notificationID, recipientID int64) error {
	if err := s.notifications.MarkRead(ctx, notificationID, recipientID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return lifecycle.NotFoundf("notification %d not found", notificationID)
		}
		return fmt.Errorf("marking notification read: %w", err)
	}
	return nil
}
