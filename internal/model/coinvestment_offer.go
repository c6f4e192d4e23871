package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type CoInvestmentOfferStatus string

const (
	CoInvestmentStatusPendingInvestorAdvisor  CoInvestmentOfferStatus = "pending_investor_advisor_approval"
	CoInvestmentStatusPendingLeadInvestor     CoInvestmentOfferStatus = "pending_lead_investor_approval"
	CoInvestmentStatusPendingStartup          CoInvestmentOfferStatus = "pending_startup_approval"
	CoInvestmentStatusAccepted                CoInvestmentOfferStatus = "accepted"
	CoInvestmentStatusRejected                CoInvestmentOfferStatus = "rejected"
	CoInvestmentStatusInvestorAdvisorRejected CoInvestmentOfferStatus = "investor_advisor_rejected"
	CoInvestmentStatusLeadInvestorRejected    CoInvestmentOfferStatus = "lead_investor_rejected"
)

func ParseCoInvestmentOfferStatus(s string) (CoInvestmentOfferStatus, error) {
	switch v := CoInvestmentOfferStatus(s); v {
	case CoInvestmentStatusPendingInvestorAdvisor, CoInvestmentStatusPendingLeadInvestor, CoInvestmentStatusPendingStartup,
		CoInvestmentStatusAccepted, CoInvestmentStatusRejected,
		CoInvestmentStatusInvestorAdvisorRejected, CoInvestmentStatusLeadInvestorRejected:
		return v, nil
	}
	return "", fmt.Errorf("co-investment offer status %q: %w", s, ErrUnknownValue)
}

func (s CoInvestmentOfferStatus) IsRejected() bool {
	switch s {
	case CoInvestmentStatusRejected, CoInvestmentStatusInvestorAdvisorRejected, CoInvestmentStatusLeadInvestorRejected:
		return true
	}
	return false
}

// CoInvestmentOffer is a co-investor's ticket against an open opportunity.
// Stage mirrors the status label so the shared resolver can place it.
type CoInvestmentOffer struct {
	ID                            int64                   `json:"id"`
	OpportunityID                 int64                   `json:"opportunity_id"`
	CoInvestorID                  int64                   `json:"co_investor_id"`
	ListingID                     int64                   `json:"listing_id"`
	Amount                        decimal.Decimal         `json:"amount"`
	EquityPercentage              decimal.Decimal         `json:"equity_percentage"`
	Currency                      string                  `json:"currency"`
	Stage                         int                     `json:"stage"`
	Status                        CoInvestmentOfferStatus `json:"status"`
	InvestorAdvisorApprovalStatus ApprovalStatus          `json:"investor_advisor_approval_status"`
	LeadInvestorApprovalStatus    ApprovalStatus          `json:"lead_investor_approval_status"`
	CreatedAt                     time.Time               `json:"created_at"`
	UpdatedAt                     time.Time               `json:"updated_at"`
}

func (c *CoInvestmentOffer) Gate(g Gate) ApprovalStatus {
	switch g {
	case GateInvestorAdvisor:
		return c.InvestorAdvisorApprovalStatus
	case GateLeadInvestor:
		return c.LeadInvestorApprovalStatus
	case GateStartupFinal:
		switch c.Status {
		case CoInvestmentStatusPendingStartup:
			return ApprovalPending
		case CoInvestmentStatusAccepted:
			return ApprovalApproved
		case CoInvestmentStatusRejected:
			return ApprovalRejected
		}
	}
	return ApprovalNotRequired
}
