package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type OfferStatus string

const (
	OfferStatusPendingInvestorAdvisor  OfferStatus = "pending_investor_advisor_approval"
	OfferStatusPendingStartupAdvisor   OfferStatus = "pending_startup_advisor_approval"
	OfferStatusPending                 OfferStatus = "pending"
	OfferStatusAccepted                OfferStatus = "accepted"
	OfferStatusRejected                OfferStatus = "rejected"
	OfferStatusInvestorAdvisorRejected OfferStatus = "investor_advisor_rejected"
	OfferStatusStartupAdvisorRejected  OfferStatus = "startup_advisor_rejected"
)

func ParseOfferStatus(s string) (OfferStatus, error) {
	switch v := OfferStatus(s); v {
	case OfferStatusPendingInvestorAdvisor, OfferStatusPendingStartupAdvisor, OfferStatusPending,
		OfferStatusAccepted, OfferStatusRejected,
		OfferStatusInvestorAdvisorRejected, OfferStatusStartupAdvisorRejected:
		return v, nil
	}
	return "", fmt.Errorf("offer status %q: %w", s, ErrUnknownValue)
}

// IsRejected covers every rejection label, whichever gate produced it.
func (s OfferStatus) IsRejected() bool {
	switch s {
	case OfferStatusRejected, OfferStatusInvestorAdvisorRejected, OfferStatusStartupAdvisorRejected:
		return true
	}
	return false
}

// Offer is one investor's proposed terms for one startup.
type Offer struct {
	ID                      int64           `json:"id"`
	InvestorID              int64           `json:"investor_id"`
	StartupID               int64           `json:"startup_id"`
	ListingID               int64           `json:"listing_id"`
	SourceOpportunityID     *int64          `json:"source_opportunity_id,omitempty"`
	Amount                  decimal.Decimal `json:"amount"`
	EquityPercentage        decimal.Decimal `json:"equity_percentage"`
	Currency                string          `json:"currency"`
	Stage                   int             `json:"stage"`
	Status                  OfferStatus     `json:"status"`
	InvestorAdvisorApproval ApprovalStatus  `json:"investor_advisor_approval"`
	StartupAdvisorApproval  ApprovalStatus  `json:"startup_advisor_approval"`
	ContactDetailsRevealed  bool            `json:"contact_details_revealed"`
	CreatedAt               time.Time       `json:"created_at"`
	UpdatedAt               time.Time       `json:"updated_at"`
}

// Terms are the money fields shared by every submitted item.
type Terms struct {
	Amount           decimal.Decimal
	EquityPercentage decimal.Decimal
	Currency         string
}

// Gate returns the recorded status of gate g. The startup's final gate is
// carried by the overall status.
func (o *Offer) Gate(g Gate) ApprovalStatus {
	switch g {
	case GateInvestorAdvisor:
		return o.InvestorAdvisorApproval
	case GateStartupAdvisor:
		return o.StartupAdvisorApproval
	case GateStartupFinal:
		switch o.Status {
		case OfferStatusPending:
			return ApprovalPending
		case OfferStatusAccepted:
			return ApprovalApproved
		case OfferStatusRejected:
			return ApprovalRejected
		}
	}
	return ApprovalNotRequired
}
