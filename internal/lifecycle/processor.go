package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"dealroom.app/broker/internal/model"
)

// ErrItemMissing is returned by a Store when the item id is unknown.
var ErrItemMissing = errors.New("item missing")

// Store is the persistence port the processor drives. Implementations bind it
// to one item kind and one transaction.
type Store interface {
	Load(ctx context.Context, id int64) (Item, error)

	// CompareAndSetGate writes next only if the gate still holds expected and
	// returns the value it held before the call. A returned value different
	// from expected means nothing was written.
	CompareAndSetGate(ctx context.Context, id int64, gate model.Gate, expected, next model.ApprovalStatus) (model.ApprovalStatus, error)

	// SaveWorkflow persists the placement computed after a decision. prev is
	// the snapshot the decision was taken against.
	SaveWorkflow(ctx context.Context, id int64, prev, next Workflow) error
}

type Command struct {
	ItemID   int64
	Gate     model.Gate
	Decision model.Decision
	ActorID  int64
}

type Result struct {
	Item     Item
	Previous Workflow
	// Changed is false for idempotent repeats of an already recorded decision.
	Changed bool
}

// Processor applies gate decisions for one chain.
type Processor struct {
	chain ChainDescriptor
	dir   Directory
}

func NewProcessor(chain ChainDescriptor, dir Directory) *Processor {
	return &Processor{chain: chain, dir: dir}
}

func (p *Processor) Chain() ChainDescriptor {
	return p.chain
}

// Place resolves the initial workflow of a new item.
func (p *Processor) Place(ctx context.Context, parties Parties) (Workflow, Facts, error) {
	facts, err := LoadFacts(ctx, p.dir, parties)
	if err != nil {
		return Workflow{}, Facts{}, err
	}
	wf, _ := Resolve(p.chain, NewWorkflow(), facts)
	return wf, facts, nil
}

// Decide applies one decision at one gate. Exactly the named gate is decided;
// the resolver may then open the next gate as part of placement.
func (p *Processor) Decide(ctx context.Context, st Store, cmd Command) (Result, error) {
	def, ok := p.chain.Lookup(cmd.Gate)
	if !ok {
		return Result{}, NotFoundf("gate %s does not exist for %s", cmd.Gate, p.chain.ItemKind)
	}

	item, err := st.Load(ctx, cmd.ItemID)
	if err != nil {
		if errors.Is(err, ErrItemMissing) {
			return Result{}, NotFoundf("%s %d not found", p.chain.ItemKind, cmd.ItemID)
		}
		return Result{}, fmt.Errorf("loading item: %w", err)
	}

	facts, err := LoadFacts(ctx, p.dir, item.Parties)
	if err != nil {
		return Result{}, err
	}

	if err := p.authorize(ctx, def, item, facts, cmd.ActorID); err != nil {
		return Result{}, err
	}

	target := cmd.Decision.Outcome()
	current := item.Workflow.Gate(cmd.Gate)

	if noop, err := checkTransition(item, cmd, current, target); err != nil || noop {
		return Result{Item: item, Previous: item.Workflow}, err
	}

	prev, err := st.CompareAndSetGate(ctx, item.ID, cmd.Gate, model.ApprovalPending, target)
	if err != nil {
		if errors.Is(err, ErrItemMissing) {
			return Result{}, NotFoundf("%s %d not found", p.chain.ItemKind, cmd.ItemID)
		}
		return Result{}, fmt.Errorf("setting gate %s: %w", cmd.Gate, err)
	}
	if prev != model.ApprovalPending {
		// Lost a race: someone resolved the gate between our read and write.
		slog.InfoContext(ctx, "gate changed concurrently",
			"item_id", item.ID,
			"gate", cmd.Gate,
			"observed", prev)
		if prev == target {
			fresh, err := st.Load(ctx, item.ID)
			if err != nil {
				return Result{}, fmt.Errorf("reloading item: %w", err)
			}
			return Result{Item: fresh, Previous: fresh.Workflow}, nil
		}
		return Result{}, Conflictf(item.ID, "gate %s is already %s", cmd.Gate, prev)
	}

	next := p.advance(item.Workflow, def, target, facts)
	if err := st.SaveWorkflow(ctx, item.ID, item.Workflow, next); err != nil {
		return Result{}, fmt.Errorf("saving workflow: %w", err)
	}

	slog.InfoContext(ctx, "gate decided",
		"item_kind", p.chain.ItemKind,
		"item_id", item.ID,
		"gate", cmd.Gate,
		"decision", cmd.Decision,
		"stage_before", item.Workflow.Stage,
		"stage_after", next.Stage)

	decided := item
	decided.Workflow = next
	return Result{Item: decided, Previous: item.Workflow, Changed: true}, nil
}

// advance computes the workflow after the gate moved to target.
func (p *Processor) advance(wf Workflow, def GateDef, target model.ApprovalStatus, facts Facts) Workflow {
	next := wf.With(def.Gate, target)
	if target == model.ApprovalRejected {
		return next
	}
	if def.Gate == p.chain.Final().Gate {
		next.Stage = StageAccepted
		return next
	}
	resolved, _ := Resolve(p.chain, next, facts)
	return resolved
}

// checkTransition decides between proceeding, an idempotent no-op and a
// conflict. Rejection is terminal: afterwards only a repeated rejection of
// the same gate succeeds.
func checkTransition(item Item, cmd Command, current, target model.ApprovalStatus) (bool, error) {
	if rejectedAt, ok := item.Workflow.Rejected(); ok {
		if rejectedAt == cmd.Gate && target == model.ApprovalRejected {
			return true, nil
		}
		return false, Conflictf(item.ID, "item was rejected at %s", rejectedAt)
	}
	if current == target {
		return true, nil
	}
	switch current {
	case model.ApprovalPending:
		if item.Workflow.Accepted() {
			return false, Conflictf(item.ID, "item is already accepted")
		}
		return false, nil
	case model.ApprovalNotRequired:
		return false, Conflictf(item.ID, "gate %s is not open", cmd.Gate)
	default:
		return false, Conflictf(item.ID, "gate %s is already %s", cmd.Gate, current)
	}
}

func (p *Processor) authorize(ctx context.Context, def GateDef, item Item, facts Facts, actorID int64) error {
	switch def.Actor {
	case ActorParty:
		if expected := item.Parties.Of(def.Side); expected == 0 || expected != actorID {
			return Unauthorizedf("only the %s may decide gate %s", def.Side, def.Gate)
		}
		return nil
	case ActorAdvisor:
		code := facts.AdvisorCode(def.Side)
		if code == "" {
			return Unauthorizedf("the %s has no advisor to decide gate %s", def.Side, def.Gate)
		}
		actor, err := p.dir.GetParty(ctx, actorID)
		if err != nil {
			return Unauthorizedf("unknown acting party %d", actorID)
		}
		if actor.Type != model.PartyTypeAdvisor || actor.Advisor() != code {
			return Unauthorizedf("party %d is not the %s's advisor", actorID, def.Side)
		}
		return nil
	}
	return Unauthorizedf("gate %s has no actor", def.Gate)
}
