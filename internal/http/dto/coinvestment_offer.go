package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"dealroom.app/broker/internal/model"
)

type CoInvestmentOfferResponse struct {
	ID                            int64           `json:"id,string"`
	OpportunityID                 int64           `json:"opportunity_id,string"`
	CoInvestorID                  int64           `json:"co_investor_id,string"`
	ListingID                     int64           `json:"listing_id,string"`
	Amount                        decimal.Decimal `json:"amount"`
	EquityPercentage              decimal.Decimal `json:"equity_percentage"`
	Currency                      string          `json:"currency"`
	Stage                         int             `json:"stage"`
	Status                        string          `json:"status"`
	InvestorAdvisorApprovalStatus string          `json:"investor_advisor_approval_status"`
	LeadInvestorApprovalStatus    string          `json:"lead_investor_approval_status"`
	CreatedAt                     time.Time       `json:"created_at"`
	UpdatedAt                     time.Time       `json:"updated_at"`
}

func ToCoInvestmentOfferResponse(c *model.CoInvestmentOffer) *CoInvestmentOfferResponse {
	return &CoInvestmentOfferResponse{
		ID:                            c.ID,
		OpportunityID:                 c.OpportunityID,
		CoInvestorID:                  c.CoInvestorID,
		ListingID:                     c.ListingID,
		Amount:                        c.Amount,
		EquityPercentage:              c.EquityPercentage,
		Currency:                      c.Currency,
		Stage:                         c.Stage,
		Status:                        string(c.Status),
		InvestorAdvisorApprovalStatus: string(c.InvestorAdvisorApprovalStatus),
		LeadInvestorApprovalStatus:    string(c.LeadInvestorApprovalStatus),
		CreatedAt:                     c.CreatedAt,
		UpdatedAt:                     c.UpdatedAt,
	}
}

func ToCoInvestmentOfferResponses(offers []model.CoInvestmentOffer) []*CoInvestmentOfferResponse {
	out := make([]*CoInvestmentOfferResponse, 0, len(offers))
	for i := range offers {
		out = append(out, ToCoInvestmentOfferResponse(&offers[i]))
	}
	return out
}
