package lifecycle

import (
	"dealroom.app/broker/internal/model"
)

// Viewer is the party asking to see items. AdvisorCode is only read for the
// advisor role and must be the viewer's own normalized code.
type Viewer struct {
	Role        model.Role
	PartyID     int64
	AdvisorCode string
}

// Visible reports whether viewer may see item now. It never mutates. An
// InconsistentState error means the item must be hidden: a gate is recorded
// as not_required although its party now has an advisor.
func Visible(chain ChainDescriptor, item Item, facts Facts, viewer Viewer) (bool, error) {
	wf := item.Workflow
	switch viewer.Role {
	case model.RoleInvestor:
		return viewer.PartyID != 0 && item.Parties.Investor == viewer.PartyID, nil

	case model.RoleAdvisor:
		code := model.NormalizeAdvisorCode(viewer.AdvisorCode)
		if !model.HasAdvisorAffiliation(code) {
			return false, nil
		}
		for _, g := range chain.Intermediate() {
			if g.Actor != ActorAdvisor || facts.AdvisorCode(g.Side) != code {
				continue
			}
			if wf.Gate(g.Gate) != model.ApprovalNotRequired {
				return true, nil
			}
		}
		return false, nil

	case model.RoleStartup:
		if viewer.PartyID == 0 || item.Parties.Startup != viewer.PartyID {
			return false, nil
		}
		return reached(chain, item, facts, chain.Final())

	case model.RoleLeadInvestor:
		if chain.Kind == ChainOpportunity {
			return viewer.PartyID != 0 && item.Parties.Investor == viewer.PartyID, nil
		}
		lead, ok := chain.Lookup(model.GateLeadInvestor)
		if !ok || viewer.PartyID == 0 || item.Parties.Lead != viewer.PartyID {
			return false, nil
		}
		return reached(chain, item, facts, lead)
	}
	return false, nil
}

// reached reports whether the item has progressed to gate: every earlier gate
// passed and the stage is at or beyond the gate's stage. While any earlier
// gate is pending the answer is false.
func reached(chain ChainDescriptor, item Item, facts Facts, gate GateDef) (bool, error) {
	wf := item.Workflow
	if wf.Accepted() {
		return true, nil
	}
	if wf.Stage < gate.Stage {
		return false, nil
	}
	for _, g := range chain.Gates {
		if g.Stage >= gate.Stage {
			break
		}
		if !wf.Gate(g.Gate).Passed() {
			return false, nil
		}
	}
	if _, rejected := wf.Rejected(); rejected {
		return true, nil
	}
	if err := checkConsistent(chain, item, facts); err != nil {
		return false, err
	}
	return true, nil
}

// checkConsistent fails closed when a skipped gate's party has since gained an
// advisor.
func checkConsistent(chain ChainDescriptor, item Item, facts Facts) error {
	for _, g := range chain.Intermediate() {
		if item.Workflow.Gate(g.Gate) == model.ApprovalNotRequired && facts.Affiliated(g.Side) {
			return Inconsistentf(item.ID, "gate %s is not_required but the %s has an advisor", g.Gate, g.Side)
		}
	}
	return nil
}
