package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"dealroom.app/broker/internal/model"
)

type TermsRequest struct {
	Amount           decimal.Decimal `json:"amount"`
	EquityPercentage decimal.Decimal `json:"equity_percentage"`
	Currency         string          `json:"currency" binding:"omitempty,len=3"`
}

func (t TermsRequest) ToModel() model.Terms {
	return model.Terms{
		Amount:           t.Amount,
		EquityPercentage: t.EquityPercentage,
		Currency:         t.Currency,
	}
}

type SubmitOfferRequest struct {
	StartupID           int64  `json:"startup_id,string" binding:"required"`
	SourceOpportunityID *int64 `json:"source_opportunity_id,string,omitempty"`
	TermsRequest
}

type OfferResponse struct {
	ID                      int64           `json:"id,string"`
	InvestorID              int64           `json:"investor_id,string"`
	StartupID               int64           `json:"startup_id,string"`
	ListingID               int64           `json:"listing_id,string"`
	SourceOpportunityID     *int64          `json:"source_opportunity_id,string,omitempty"`
	Amount                  decimal.Decimal `json:"amount"`
	EquityPercentage        decimal.Decimal `json:"equity_percentage"`
	Currency                string          `json:"currency"`
	Stage                   int             `json:"stage"`
	Status                  string          `json:"status"`
	InvestorAdvisorApproval string          `json:"investor_advisor_approval"`
	StartupAdvisorApproval  string          `json:"startup_advisor_approval"`
	ContactDetailsRevealed  bool            `json:"contact_details_revealed"`
	CreatedAt               time.Time       `json:"created_at"`
	UpdatedAt               time.Time       `json:"updated_at"`
}

func ToOfferResponse(o *model.Offer) *OfferResponse {
	return &OfferResponse{
		ID:                      o.ID,
		InvestorID:              o.InvestorID,
		StartupID:               o.StartupID,
		ListingID:               o.ListingID,
		SourceOpportunityID:     o.SourceOpportunityID,
		Amount:                  o.Amount,
		EquityPercentage:        o.EquityPercentage,
		Currency:                o.Currency,
		Stage:                   o.Stage,
		Status:                  string(o.Status),
		InvestorAdvisorApproval: string(o.InvestorAdvisorApproval),
		StartupAdvisorApproval:  string(o.StartupAdvisorApproval),
		ContactDetailsRevealed:  o.ContactDetailsRevealed,
		CreatedAt:               o.CreatedAt,
		UpdatedAt:               o.UpdatedAt,
	}
}

func ToOfferResponses(offers []model.Offer) []*OfferResponse {
	out := make([]*OfferResponse, 0, len(offers))
	for i := range offers {
		out = append(out, ToOfferResponse(&offers[i]))
	}
	return out
}
