package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"dealroom.app/broker/internal/model"
)

type SubmitOpportunityRequest struct {
	StartupID        int64           `json:"startup_id,string" binding:"required"`
	TotalAsk         decimal.Decimal `json:"total_ask"`
	EquityPercentage decimal.Decimal `json:"equity_percentage"`
	MinTicket        decimal.Decimal `json:"min_ticket"`
	MaxTicket        decimal.Decimal `json:"max_ticket"`
	Currency         string          `json:"currency" binding:"omitempty,len=3"`
	Description      string          `json:"description" binding:"max=4000"`
}

type OpportunityResponse struct {
	ID                          int64           `json:"id,string"`
	StartupID                   int64           `json:"startup_id,string"`
	LeadInvestorID              int64           `json:"lead_investor_id,string"`
	ListingID                   int64           `json:"listing_id,string"`
	TotalAsk                    decimal.Decimal `json:"total_ask"`
	EquityPercentage            decimal.Decimal `json:"equity_percentage"`
	MinTicket                   decimal.Decimal `json:"min_ticket"`
	MaxTicket                   decimal.Decimal `json:"max_ticket"`
	Currency                    string          `json:"currency"`
	Description                 string          `json:"description"`
	Stage                       int             `json:"stage"`
	Status                      string          `json:"status"`
	LeadInvestorAdvisorApproval string          `json:"lead_investor_advisor_approval"`
	StartupAdvisorApproval      string          `json:"startup_advisor_approval"`
	StartupApprovalStatus       string          `json:"startup_approval_status"`
	CreatedAt                   time.Time       `json:"created_at"`
	UpdatedAt                   time.Time       `json:"updated_at"`
}

func ToOpportunityResponse(o *model.CoInvestmentOpportunity) *OpportunityResponse {
	return &OpportunityResponse{
		ID:                          o.ID,
		StartupID:                   o.StartupID,
		LeadInvestorID:              o.LeadInvestorID,
		ListingID:                   o.ListingID,
		TotalAsk:                    o.TotalAsk,
		EquityPercentage:            o.EquityPercentage,
		MinTicket:                   o.MinTicket,
		MaxTicket:                   o.MaxTicket,
		Currency:                    o.Currency,
		Description:                 o.Description,
		Stage:                       o.Stage,
		Status:                      string(o.Status),
		LeadInvestorAdvisorApproval: string(o.LeadInvestorAdvisorApproval),
		StartupAdvisorApproval:      string(o.StartupAdvisorApproval),
		StartupApprovalStatus:       string(o.StartupApprovalStatus),
		CreatedAt:                   o.CreatedAt,
		UpdatedAt:                   o.UpdatedAt,
	}
}

func ToOpportunityResponses(opps []model.CoInvestmentOpportunity) []*OpportunityResponse {
	out := make([]*OpportunityResponse, 0, len(opps))
	for i := range opps {
		out = append(out, ToOpportunityResponse(&opps[i]))
	}
	return out
}
