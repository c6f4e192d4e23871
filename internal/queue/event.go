package queue

import (
	"dealroom.app/broker/internal/model"
)

type EventType string

const (
	EventTypeSubmitted EventType = "submitted"
	EventTypeDecided   EventType = "decided"
	EventTypeCompleted EventType = "completed"
)

// LifecycleEvent is published after a workflow transition commits. The next
// actor is either a party id or an advisor code, never both.
type LifecycleEvent struct {
	Type            EventType
	ItemKind        model.ItemKind
	ItemID          int64
	SubmitterID     int64
	Status          string
	Stage           int
	Gate            model.Gate
	Decision        model.Decision
	NextGate        model.Gate
	NextPartyID     int64
	NextAdvisorCode string
	TraceID         *string
	Attempt         int
}

// Terminal reports whether nobody has to act on the item any more.
func (e LifecycleEvent) Terminal() bool {
	return e.NextGate == ""
}

func eventValues(ev LifecycleEvent, attempt int) map[string]any {
	values := map[string]any{
		"event_type":   string(ev.Type),
		"item_kind":    string(ev.ItemKind),
		"item_id":      ev.ItemID,
		"submitter_id": ev.SubmitterID,
		"status":       ev.Status,
		"stage":        ev.Stage,
		"attempt":      attempt,
	}
	if ev.Gate != "" {
		values["gate"] = string(ev.Gate)
	}
	if ev.Decision != "" {
		values["decision"] = string(ev.Decision)
	}
	if ev.NextGate != "" {
		values["next_gate"] = string(ev.NextGate)
	}
	if ev.NextPartyID != 0 {
		values["next_party_id"] = ev.NextPartyID
	}
	if ev.NextAdvisorCode != "" {
		values["next_advisor_code"] = ev.NextAdvisorCode
	}
	if ev.TraceID != nil && *ev.TraceID != "" {
		values["trace_id"] = *ev.TraceID
	}
	return values
}
