package lifecycle

import (
	"context"
	"fmt"
	"maps"

	"dealroom.app/broker/internal/model"
)

var allGates = []model.Gate{
	model.GateInvestorAdvisor,
	model.GateStartupAdvisor,
	model.GateLeadInvestor,
	model.GateStartupFinal,
}

// Workflow is a snapshot of an item's position in its chain. Gates missing
// from the map read as not_required. Workflows are values: every mutating
// helper returns a copy.
type Workflow struct {
	Stage int
	Gates map[model.Gate]model.ApprovalStatus
}

// NewWorkflow is the placement of a freshly submitted item, before resolution.
func NewWorkflow() Workflow {
	return Workflow{Stage: StageFirstGate, Gates: map[model.Gate]model.ApprovalStatus{}}
}

func (w Workflow) Gate(g model.Gate) model.ApprovalStatus {
	if s, ok := w.Gates[g]; ok {
		return s
	}
	return model.ApprovalNotRequired
}

func (w Workflow) With(g model.Gate, s model.ApprovalStatus) Workflow {
	next := w.Clone()
	next.Gates[g] = s
	return next
}

func (w Workflow) Clone() Workflow {
	gates := make(map[model.Gate]model.ApprovalStatus, len(w.Gates))
	maps.Copy(gates, w.Gates)
	return Workflow{Stage: w.Stage, Gates: gates}
}

// Rejected returns the gate that rejected the item, if any.
func (w Workflow) Rejected() (model.Gate, bool) {
	for _, g := range allGates {
		if w.Gate(g) == model.ApprovalRejected {
			return g, true
		}
	}
	return "", false
}

func (w Workflow) Accepted() bool {
	return w.Gate(model.GateStartupFinal) == model.ApprovalApproved
}

// Terminal reports whether no further decisions may change the item.
func (w Workflow) Terminal() bool {
	_, rejected := w.Rejected()
	return rejected || w.Accepted()
}

func (w Workflow) Equal(o Workflow) bool {
	if w.Stage != o.Stage {
		return false
	}
	for _, g := range allGates {
		if w.Gate(g) != o.Gate(g) {
			return false
		}
	}
	return true
}

func (w Workflow) String() string {
	return fmt.Sprintf("stage=%d investor_advisor=%s startup_advisor=%s lead_investor=%s startup_final=%s",
		w.Stage,
		w.Gate(model.GateInvestorAdvisor),
		w.Gate(model.GateStartupAdvisor),
		w.Gate(model.GateLeadInvestor),
		w.Gate(model.GateStartupFinal),
	)
}

// Parties are the identities attached to an item. Lead is only set for
// co-investment offers, where it is the opportunity's lead investor.
type Parties struct {
	Investor int64
	Startup  int64
	Lead     int64
}

func (p Parties) Of(side Side) int64 {
	switch side {
	case SideInvestor:
		return p.Investor
	case SideStartup:
		return p.Startup
	case SideLead:
		return p.Lead
	}
	return 0
}

// Item is the kind-independent view of an offer, opportunity or
// co-investment offer.
type Item struct {
	ID       int64
	Kind     model.ItemKind
	Parties  Parties
	Workflow Workflow
}

// Directory is the external user directory.
type Directory interface {
	GetParty(ctx context.Context, id int64) (*model.Party, error)
}

// Facts are the advisor affiliations of an item's parties at evaluation time.
type Facts struct {
	codes map[Side]string
}

// NewFacts builds facts from raw advisor codes; blank codes mean no advisor.
func NewFacts(investor, startup, lead string) Facts {
	return Facts{codes: map[Side]string{
		SideInvestor: model.NormalizeAdvisorCode(investor),
		SideStartup:  model.NormalizeAdvisorCode(startup),
		SideLead:     model.NormalizeAdvisorCode(lead),
	}}
}

func (f Facts) AdvisorCode(side Side) string {
	return f.codes[side]
}

func (f Facts) Affiliated(side Side) bool {
	return model.HasAdvisorAffiliation(f.codes[side])
}

// LoadFacts performs a fresh directory lookup for every party of the item.
func LoadFacts(ctx context.Context, dir Directory, parties Parties) (Facts, error) {
	codes := make(map[Side]string, 3)
	for _, side := range []Side{SideInvestor, SideStartup, SideLead} {
		id := parties.Of(side)
		if id == 0 {
			continue
		}
		party, err := dir.GetParty(ctx, id)
		if err != nil {
			return Facts{}, fmt.Errorf("looking up %s party %d: %w", side, id, err)
		}
		codes[side] = party.Advisor()
	}
	return NewFacts(codes[SideInvestor], codes[SideStartup], codes[SideLead]), nil
}
