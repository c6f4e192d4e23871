package lifecycle

import (
	"dealroom.app/broker/internal/model"
)

// Stages every chain moves through. Stages 1 and 2 belong to the chain's
// intermediate gates; 3 is the startup's turn; 4 is only reached by an
// explicit startup accept.
const (
	StageFirstGate  = 1
	StageSecondGate = 2
	StageReady      = 3
	StageAccepted   = 4
)

// Side names the party whose facts govern a gate.
type Side int

const (
	SideInvestor Side = iota + 1
	SideStartup
	SideLead
)

func (s Side) String() string {
	switch s {
	case SideInvestor:
		return "investor"
	case SideStartup:
		return "startup"
	case SideLead:
		return "lead_investor"
	}
	return "unknown"
}

// ActorKind says who may decide a gate.
type ActorKind int

const (
	// ActorAdvisor is the advisor whose code is assigned to the gate's side.
	ActorAdvisor ActorKind = iota + 1
	// ActorParty is the gate's side party itself.
	ActorParty
)

// GateDef describes one link of a chain. An intermediate gate opens only
// when its side has an advisor affiliation.
type GateDef struct {
	Gate          model.Gate
	Stage         int
	Side          Side
	Actor         ActorKind
	PendingLabel  string
	RejectedLabel string
}

// ChainKind tags the ChainDescriptor variant.
type ChainKind int

const (
	ChainOffer ChainKind = iota + 1
	ChainOpportunity
	ChainCoInvestmentOffer
)

// ChainDescriptor is the ordered gate list for one item kind. The last gate
// is always the startup's final decision.
type ChainDescriptor struct {
	Kind          ChainKind
	ItemKind      model.ItemKind
	Gates         []GateDef
	AcceptedLabel string
}

var OfferChain = ChainDescriptor{
	Kind:     ChainOffer,
	ItemKind: model.KindOffer,
	Gates: []GateDef{
		{
			Gate:          model.GateInvestorAdvisor,
			Stage:         StageFirstGate,
			Side:          SideInvestor,
			Actor:         ActorAdvisor,
			PendingLabel:  string(model.OfferStatusPendingInvestorAdvisor),
			RejectedLabel: string(model.OfferStatusInvestorAdvisorRejected),
		},
		{
			Gate:          model.GateStartupAdvisor,
			Stage:         StageSecondGate,
			Side:          SideStartup,
			Actor:         ActorAdvisor,
			PendingLabel:  string(model.OfferStatusPendingStartupAdvisor),
			RejectedLabel: string(model.OfferStatusStartupAdvisorRejected),
		},
		{
			Gate:          model.GateStartupFinal,
			Stage:         StageReady,
			Side:          SideStartup,
			Actor:         ActorParty,
			PendingLabel:  string(model.OfferStatusPending),
			RejectedLabel: string(model.OfferStatusRejected),
		},
	},
	AcceptedLabel: string(model.OfferStatusAccepted),
}

// OpportunityChain routes a lead investor's listing. The lead investor is the
// investor side; a rejection anywhere cancels the listing.
var OpportunityChain = ChainDescriptor{
	Kind:     ChainOpportunity,
	ItemKind: model.KindOpportunity,
	Gates: []GateDef{
		{
			Gate:          model.GateInvestorAdvisor,
			Stage:         StageFirstGate,
			Side:          SideInvestor,
			Actor:         ActorAdvisor,
			PendingLabel:  string(model.OpportunityStatusActive),
			RejectedLabel: string(model.OpportunityStatusCancelled),
		},
		{
			Gate:          model.GateStartupAdvisor,
			Stage:         StageSecondGate,
			Side:          SideStartup,
			Actor:         ActorAdvisor,
			PendingLabel:  string(model.OpportunityStatusActive),
			RejectedLabel: string(model.OpportunityStatusCancelled),
		},
		{
			Gate:          model.GateStartupFinal,
			Stage:         StageReady,
			Side:          SideStartup,
			Actor:         ActorParty,
			PendingLabel:  string(model.OpportunityStatusActive),
			RejectedLabel: string(model.OpportunityStatusCancelled),
		},
	},
	AcceptedLabel: string(model.OpportunityStatusActive),
}

// CoInvestmentOfferChain never has a startup-advisor gate. The lead investor
// gate opens when the lead investor is advisor-managed; otherwise the
// opportunity's ticket band stands in for the lead's review.
var CoInvestmentOfferChain = ChainDescriptor{
	Kind:     ChainCoInvestmentOffer,
	ItemKind: model.KindCoInvestmentOffer,
	Gates: []GateDef{
		{
			Gate:          model.GateInvestorAdvisor,
			Stage:         StageFirstGate,
			Side:          SideInvestor,
			Actor:         ActorAdvisor,
			PendingLabel:  string(model.CoInvestmentStatusPendingInvestorAdvisor),
			RejectedLabel: string(model.CoInvestmentStatusInvestorAdvisorRejected),
		},
		{
			Gate:          model.GateLeadInvestor,
			Stage:         StageSecondGate,
			Side:          SideLead,
			Actor:         ActorParty,
			PendingLabel:  string(model.CoInvestmentStatusPendingLeadInvestor),
			RejectedLabel: string(model.CoInvestmentStatusLeadInvestorRejected),
		},
		{
			Gate:          model.GateStartupFinal,
			Stage:         StageReady,
			Side:          SideStartup,
			Actor:         ActorParty,
			PendingLabel:  string(model.CoInvestmentStatusPendingStartup),
			RejectedLabel: string(model.CoInvestmentStatusRejected),
		},
	},
	AcceptedLabel: string(model.CoInvestmentStatusAccepted),
}

// ChainFor returns the descriptor for kind.
func ChainFor(kind model.ItemKind) (ChainDescriptor, error) {
	switch kind {
	case model.KindOffer:
		return OfferChain, nil
	case model.KindOpportunity:
		return OpportunityChain, nil
	case model.KindCoInvestmentOffer:
		return CoInvestmentOfferChain, nil
	}
	return ChainDescriptor{}, NotFoundf("no chain for item kind %q", kind)
}

// Intermediate returns the gates before the startup's final decision.
func (c ChainDescriptor) Intermediate() []GateDef {
	return c.Gates[:len(c.Gates)-1]
}

// Final returns the startup's decision gate.
func (c ChainDescriptor) Final() GateDef {
	return c.Gates[len(c.Gates)-1]
}

// Lookup finds gate in the chain.
func (c ChainDescriptor) Lookup(gate model.Gate) (GateDef, bool) {
	for _, g := range c.Gates {
		if g.Gate == gate {
			return g, true
		}
	}
	return GateDef{}, false
}

// Status derives the overall status label for wf.
func (c ChainDescriptor) Status(wf Workflow) string {
	if wf.Accepted() {
		return c.AcceptedLabel
	}
	for _, g := range c.Gates {
		if wf.Gate(g.Gate) == model.ApprovalRejected {
			return g.RejectedLabel
		}
	}
	for _, g := range c.Gates {
		if g.Stage == wf.Stage {
			return g.PendingLabel
		}
	}
	return c.Final().PendingLabel
}
