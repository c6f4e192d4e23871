package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type OpportunityStatus string

const (
	OpportunityStatusActive    OpportunityStatus = "active"
	OpportunityStatusInactive  OpportunityStatus = "inactive"
	OpportunityStatusCompleted OpportunityStatus = "completed"
	OpportunityStatusCancelled OpportunityStatus = "cancelled"
)

func ParseOpportunityStatus(s string) (OpportunityStatus, error) {
	switch v := OpportunityStatus(s); v {
	case OpportunityStatusActive, OpportunityStatusInactive, OpportunityStatusCompleted, OpportunityStatusCancelled:
		return v, nil
	}
	return "", fmt.Errorf("opportunity status %q: %w", s, ErrUnknownValue)
}

// StartupApprovalStatus is the startup's own verdict on an opportunity.
type StartupApprovalStatus string

const (
	StartupApprovalPending  StartupApprovalStatus = "pending"
	StartupApprovalApproved StartupApprovalStatus = "approved"
	StartupApprovalRejected StartupApprovalStatus = "rejected"
)

func ParseStartupApprovalStatus(s string) (StartupApprovalStatus, error) {
	switch v := StartupApprovalStatus(s); v {
	case StartupApprovalPending, StartupApprovalApproved, StartupApprovalRejected:
		return v, nil
	}
	return "", fmt.Errorf("startup approval status %q: %w", s, ErrUnknownValue)
}

// CoInvestmentOpportunity is a lead investor's listing of remaining round
// capacity open to co-investors.
type CoInvestmentOpportunity struct {
	ID                          int64                 `json:"id"`
	StartupID                   int64                 `json:"startup_id"`
	LeadInvestorID              int64                 `json:"lead_investor_id"`
	ListingID                   int64                 `json:"listing_id"`
	TotalAsk                    decimal.Decimal       `json:"total_ask"`
	EquityPercentage            decimal.Decimal       `json:"equity_percentage"`
	MinTicket                   decimal.Decimal       `json:"min_ticket"`
	MaxTicket                   decimal.Decimal       `json:"max_ticket"`
	Currency                    string                `json:"currency"`
	Description                 string                `json:"description"`
	Stage                       int                   `json:"stage"`
	Status                      OpportunityStatus     `json:"status"`
	LeadInvestorAdvisorApproval ApprovalStatus        `json:"lead_investor_advisor_approval"`
	StartupAdvisorApproval      ApprovalStatus        `json:"startup_advisor_approval"`
	StartupApprovalStatus       StartupApprovalStatus `json:"startup_approval_status"`
	CreatedAt                   time.Time             `json:"created_at"`
	UpdatedAt                   time.Time             `json:"updated_at"`
}

// OpenForCoInvestment reports whether co-investors may submit tickets.
func (o *CoInvestmentOpportunity) OpenForCoInvestment() bool {
	return o.Status == OpportunityStatusActive && o.StartupApprovalStatus == StartupApprovalApproved
}

// TicketInRange reports whether amount lies within [MinTicket, MaxTicket].
// A zero MaxTicket means no upper bound.
func (o *CoInvestmentOpportunity) TicketInRange(amount decimal.Decimal) bool {
	if amount.LessThan(o.MinTicket) {
		return false
	}
	if !o.MaxTicket.IsZero() && amount.GreaterThan(o.MaxTicket) {
		return false
	}
	return true
}

// Gate returns the recorded status of gate g. The startup's own verdict only
// counts as a gate once the opportunity reached the startup.
func (o *CoInvestmentOpportunity) Gate(g Gate) ApprovalStatus {
	switch g {
	case GateInvestorAdvisor:
		return o.LeadInvestorAdvisorApproval
	case GateStartupAdvisor:
		return o.StartupAdvisorApproval
	case GateStartupFinal:
		if o.Stage < 3 {
			return ApprovalNotRequired
		}
		switch o.StartupApprovalStatus {
		case StartupApprovalPending:
			return ApprovalPending
		case StartupApprovalApproved:
			return ApprovalApproved
		case StartupApprovalRejected:
			return ApprovalRejected
		}
	}
	return ApprovalNotRequired
}
