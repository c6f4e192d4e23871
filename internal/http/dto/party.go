package dto

import (
	"time"

	"dealroom.app/broker/internal/model"
)

type RegisterPartyRequest struct {
	Type        string  `json:"type" binding:"required,oneof=investor startup advisor"`
	DisplayName string  `json:"display_name" binding:"required,min=1,max=255"`
	Email       string  `json:"email" binding:"required,email,max=255"`
	AdvisorCode *string `json:"advisor_code,omitempty" binding:"omitempty,max=64"`
}

type PartyResponse struct {
	ID          int64     `json:"id,string"`
	Type        string    `json:"type"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
	AdvisorCode *string   `json:"advisor_code,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func ToPartyResponse(p *model.Party) *PartyResponse {
	return &PartyResponse{
		ID:          p.ID,
		Type:        string(p.Type),
		DisplayName: p.DisplayName,
		Email:       p.Email,
		AdvisorCode: p.AdvisorCode,
		CreatedAt:   p.CreatedAt,
	}
}

type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type RegisterPartyResponse struct {
	Party *PartyResponse `json:"party"`
	TokenResponse
}
