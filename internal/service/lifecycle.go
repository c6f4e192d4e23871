package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"dealroom.app/broker/common/logger"
	"dealroom.app/broker/internal/lifecycle"
	"dealroom.app/broker/internal/model"
	"dealroom.app/broker/internal/queue"
	"dealroom.app/broker/internal/store"
)

// DecisionInput is one gate decision from an authenticated party.
type DecisionInput struct {
	ItemID   int64
	Gate     model.Gate
	Decision model.Decision
	ActorID  int64
}

func (in DecisionInput) command() lifecycle.Command {
	return lifecycle.Command{ItemID: in.ItemID, Gate: in.Gate, Decision: in.Decision, ActorID: in.ActorID}
}

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

var hundred = decimal.NewFromInt(100)

// normalizeTerms applies the default currency and validates the money fields.
func normalizeTerms(t model.Terms, defaultCurrency string) (model.Terms, error) {
	t.Currency = strings.ToUpper(strings.TrimSpace(t.Currency))
	if t.Currency == "" {
		t.Currency = defaultCurrency
	}
	if !currencyPattern.MatchString(t.Currency) {
		return t, lifecycle.Invalidf("currency %q is not a three-letter code", t.Currency)
	}
	if !t.Amount.IsPositive() {
		return t, lifecycle.Invalidf("amount must be positive")
	}
	if !t.EquityPercentage.IsPositive() || t.EquityPercentage.GreaterThan(hundred) {
		return t, lifecycle.Invalidf("equity percentage must be in (0, 100]")
	}
	return t, nil
}

// partyDirectory adapts the party store to the engine's directory port.
type partyDirectory struct {
	parties store.PartyStore
}

func (d partyDirectory) GetParty(ctx context.Context, id int64) (*model.Party, error) {
	p, err := d.parties.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, lifecycle.NotFoundf("party %d not found", id)
		}
		return nil, fmt.Errorf("getting party %d: %w", id, err)
	}
	return p, nil
}

// cachedDirectory memoizes lookups for the span of one list request.
type cachedDirectory struct {
	next  lifecycle.Directory
	cache map[int64]*model.Party
}

func newCachedDirectory(next lifecycle.Directory) *cachedDirectory {
	return &cachedDirectory{next: next, cache: map[int64]*model.Party{}}
}

func (d *cachedDirectory) GetParty(ctx context.Context, id int64) (*model.Party, error) {
	if p, ok := d.cache[id]; ok {
		return p, nil
	}
	p, err := d.next.GetParty(ctx, id)
	if err != nil {
		return nil, err
	}
	d.cache[id] = p
	return p, nil
}

// requireParty loads a party and checks its type.
func requireParty(ctx context.Context, parties store.PartyStore, id int64, typ model.PartyType) (*model.Party, error) {
	p, err := partyDirectory{parties: parties}.GetParty(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Type != typ {
		return nil, lifecycle.Invalidf("party %d is a %s, not a %s", id, p.Type, typ)
	}
	return p, nil
}

// viewerFor builds the engine viewer for role. Advisors are identified by
// their own advisor code.
func viewerFor(ctx context.Context, parties store.PartyStore, role model.Role, partyID int64) (lifecycle.Viewer, error) {
	viewer := lifecycle.Viewer{Role: role, PartyID: partyID}
	if role != model.RoleAdvisor {
		return viewer, nil
	}
	p, err := partyDirectory{parties: parties}.GetParty(ctx, partyID)
	if err != nil {
		return viewer, err
	}
	if p.Type != model.PartyTypeAdvisor || !model.HasAdvisorAffiliation(p.Advisor()) {
		return viewer, lifecycle.Unauthorizedf("party %d is not an advisor", partyID)
	}
	viewer.AdvisorCode = p.Advisor()
	return viewer, nil
}

// filterVisible keeps the items viewer may see. Items in an inconsistent
// state are hidden and logged.
func filterVisible[T any](ctx context.Context, chain lifecycle.ChainDescriptor, dir lifecycle.Directory, viewer lifecycle.Viewer, items []T, toItem func(*T) lifecycle.Item) ([]T, error) {
	visible := make([]T, 0, len(items))
	for i := range items {
		item := toItem(&items[i])
		facts, err := lifecycle.LoadFacts(ctx, dir, item.Parties)
		if err != nil {
			return nil, err
		}
		ok, err := lifecycle.Visible(chain, item, facts, viewer)
		if err != nil {
			if errors.Is(err, lifecycle.ErrInconsistentState) {
				slog.WarnContext(ctx, "hiding item in inconsistent state",
					"item_kind", chain.ItemKind,
					"item_id", item.ID,
					"error", err)
				continue
			}
			return nil, err
		}
		if ok {
			visible = append(visible, items[i])
		}
	}
	return visible, nil
}

// checkVisible is the single-item form of filterVisible. Hidden items read
// as not found.
func checkVisible(ctx context.Context, chain lifecycle.ChainDescriptor, dir lifecycle.Directory, viewer lifecycle.Viewer, item lifecycle.Item) error {
	facts, err := lifecycle.LoadFacts(ctx, dir, item.Parties)
	if err != nil {
		return err
	}
	ok, err := lifecycle.Visible(chain, item, facts, viewer)
	if err != nil {
		return err
	}
	if !ok {
		return lifecycle.NotFoundf("%s %d not found", chain.ItemKind, item.ID)
	}
	return nil
}

func workflowOf(chain lifecycle.ChainDescriptor, stage int, gate func(model.Gate) model.ApprovalStatus) lifecycle.Workflow {
	wf := lifecycle.Workflow{Stage: stage, Gates: make(map[model.Gate]model.ApprovalStatus, len(chain.Gates))}
	for _, g := range chain.Gates {
		wf.Gates[g.Gate] = gate(g.Gate)
	}
	return wf
}

// newEvent describes item after a transition, naming whoever acts next.
// dir is read here, so call it while dir's transaction is still open.
func newEvent(ctx context.Context, chain lifecycle.ChainDescriptor, dir lifecycle.Directory, typ queue.EventType, item lifecycle.Item, submitterID int64) queue.LifecycleEvent {
	ev := queue.LifecycleEvent{
		Type:        typ,
		ItemKind:    chain.ItemKind,
		ItemID:      item.ID,
		SubmitterID: submitterID,
		Status:      chain.Status(item.Workflow),
		Stage:       item.Workflow.Stage,
	}
	if traceID := logger.TraceIDFromContext(ctx); traceID != "" {
		ev.TraceID = &traceID
	}
	facts, err := lifecycle.LoadFacts(ctx, dir, item.Parties)
	if err != nil {
		slog.WarnContext(ctx, "could not resolve next actor for event", "item_id", item.ID, "error", err)
		return ev
	}
	if gate, who, ok := lifecycle.NextAssignee(chain, item, facts); ok {
		ev.NextGate = gate.Gate
		ev.NextPartyID = who.PartyID
		ev.NextAdvisorCode = who.AdvisorCode
	}
	return ev
}

// decidedEvent is newEvent for an accepted gate decision.
func decidedEvent(ctx context.Context, chain lifecycle.ChainDescriptor, dir lifecycle.Directory, item lifecycle.Item, submitterID int64, in DecisionInput) *queue.LifecycleEvent {
	ev := newEvent(ctx, chain, dir, queue.EventTypeDecided, item, submitterID)
	ev.Gate = in.Gate
	ev.Decision = in.Decision
	return &ev
}

// startSpan opens the span for one engine operation on an item kind.
func startSpan(ctx context.Context, kind model.ItemKind, op string, itemID int64) *logger.SpanContext {
	attrs := []attribute.KeyValue{attribute.String("item_kind", string(kind))}
	if itemID != 0 {
		attrs = append(attrs, attribute.Int64("item_id", itemID))
	}
	return logger.StartSpan(ctx, string(kind)+"."+op, attrs...)
}

// publish is best effort: the transition already committed.
func publish(ctx context.Context, producer queue.Producer, ev queue.LifecycleEvent) {
	if err := producer.Publish(ctx, ev); err != nil {
		slog.ErrorContext(ctx, "failed to publish lifecycle event",
			"error", err,
			"item_kind", ev.ItemKind,
			"item_id", ev.ItemID,
			"event_type", ev.Type)
	}
}

// conflictOnUnique converts a unique index collision into a conflict naming
// the item that holds the slot.
func conflictOnUnique(err error, find func() (int64, error), what string) error {
	if !errors.Is(err, store.ErrUniqueViolation) {
		return err
	}
	existingID, findErr := find()
	if findErr != nil {
		return lifecycle.Conflictf(0, "%s already exists", what)
	}
	return lifecycle.Conflictf(existingID, "%s already exists", what)
}
