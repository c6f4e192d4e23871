package model

import (
	"errors"
	"fmt"
)

// ErrUnknownValue is returned by the Parse* functions for values outside a
// closed enumeration.
var ErrUnknownValue = errors.New("unknown enum value")

// ApprovalStatus is the state of a single gate in an approval chain.
type ApprovalStatus string

const (
	ApprovalNotRequired ApprovalStatus = "not_required"
	ApprovalPending     ApprovalStatus = "pending"
	ApprovalApproved    ApprovalStatus = "approved"
	ApprovalRejected    ApprovalStatus = "rejected"
)

func ParseApprovalStatus(s string) (ApprovalStatus, error) {
	switch v := ApprovalStatus(s); v {
	case ApprovalNotRequired, ApprovalPending, ApprovalApproved, ApprovalRejected:
		return v, nil
	}
	return "", fmt.Errorf("approval status %q: %w", s, ErrUnknownValue)
}

// Resolved reports whether a decision has been recorded at the gate.
func (a ApprovalStatus) Resolved() bool {
	return a == ApprovalApproved || a == ApprovalRejected
}

// Passed reports whether the gate no longer blocks the chain.
func (a ApprovalStatus) Passed() bool {
	return a == ApprovalNotRequired || a == ApprovalApproved
}

// Gate names an approval checkpoint.
type Gate string

const (
	GateInvestorAdvisor Gate = "investor_advisor"
	GateStartupAdvisor  Gate = "startup_advisor"
	GateLeadInvestor    Gate = "lead_investor"
	GateStartupFinal    Gate = "startup_final"
)

func ParseGate(s string) (Gate, error) {
	switch v := Gate(s); v {
	case GateInvestorAdvisor, GateStartupAdvisor, GateLeadInvestor, GateStartupFinal:
		return v, nil
	}
	return "", fmt.Errorf("gate %q: %w", s, ErrUnknownValue)
}

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

func ParseDecision(s string) (Decision, error) {
	switch v := Decision(s); v {
	case DecisionApprove, DecisionReject:
		return v, nil
	}
	return "", fmt.Errorf("decision %q: %w", s, ErrUnknownValue)
}

// Outcome is the gate status a decision produces.
func (d Decision) Outcome() ApprovalStatus {
	if d == DecisionApprove {
		return ApprovalApproved
	}
	return ApprovalRejected
}

// ItemKind distinguishes the workflow items the engine handles.
type ItemKind string

const (
	KindOffer             ItemKind = "offer"
	KindOpportunity       ItemKind = "co_investment_opportunity"
	KindCoInvestmentOffer ItemKind = "co_investment_offer"
)

func ParseItemKind(s string) (ItemKind, error) {
	switch v := ItemKind(s); v {
	case KindOffer, KindOpportunity, KindCoInvestmentOffer:
		return v, nil
	}
	return "", fmt.Errorf("item kind %q: %w", s, ErrUnknownValue)
}

// Role is the perspective a party views items from.
type Role string

const (
	RoleInvestor     Role = "investor"
	RoleStartup      Role = "startup"
	RoleAdvisor      Role = "advisor"
	RoleLeadInvestor Role = "lead_investor"
)

func ParseRole(s string) (Role, error) {
	switch v := Role(s); v {
	case RoleInvestor, RoleStartup, RoleAdvisor, RoleLeadInvestor:
		return v, nil
	}
	return "", fmt.Errorf("role %q: %w", s, ErrUnknownValue)
}
