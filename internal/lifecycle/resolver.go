package lifecycle

import (
	"dealroom.app/broker/internal/model"
)

// Resolve places wf in chain given the current facts and reports whether the
// placement differs from wf. It is pure and idempotent: resolving its own
// output again yields no change.
//
// Gates are walked in order. A pending gate holds the item at that gate's
// stage. A not_required gate at or after the current stage opens (pending)
// when its side is affiliated; gates behind the current stage were already
// passed and are never reopened, so the stage never regresses. With nothing
// left to wait for, the item is ready for the startup.
func Resolve(chain ChainDescriptor, wf Workflow, facts Facts) (Workflow, bool) {
	if wf.Terminal() {
		return wf, false
	}

	next := wf.Clone()
	for _, g := range chain.Intermediate() {
		switch next.Gate(g.Gate) {
		case model.ApprovalApproved:
			continue
		case model.ApprovalPending:
			next.Stage = g.Stage
			return next, !next.Equal(wf)
		case model.ApprovalNotRequired:
			if g.Stage < wf.Stage {
				continue
			}
			if facts.Affiliated(g.Side) {
				next.Gates[g.Gate] = model.ApprovalPending
				next.Stage = g.Stage
				return next, !next.Equal(wf)
			}
			next.Gates[g.Gate] = model.ApprovalNotRequired
		}
	}

	final := chain.Final()
	if next.Gate(final.Gate) == model.ApprovalNotRequired {
		next.Gates[final.Gate] = model.ApprovalPending
	}
	next.Stage = StageReady
	return next, !next.Equal(wf)
}

// Next returns the gate the item is waiting on, or false for terminal items.
func Next(chain ChainDescriptor, wf Workflow) (GateDef, bool) {
	if wf.Terminal() {
		return GateDef{}, false
	}
	for _, g := range chain.Gates {
		if wf.Gate(g.Gate) == model.ApprovalPending {
			return g, true
		}
	}
	return GateDef{}, false
}

// Assignee identifies who must act on a gate: a party id for party gates,
// an advisor code for advisor gates.
type Assignee struct {
	PartyID     int64
	AdvisorCode string
}

// NextAssignee resolves the participant who must act next.
func NextAssignee(chain ChainDescriptor, item Item, facts Facts) (GateDef, Assignee, bool) {
	g, ok := Next(chain, item.Workflow)
	if !ok {
		return GateDef{}, Assignee{}, false
	}
	if g.Actor == ActorAdvisor {
		return g, Assignee{AdvisorCode: facts.AdvisorCode(g.Side)}, true
	}
	return g, Assignee{PartyID: item.Parties.Of(g.Side)}, true
}
