package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"dealroom.app/broker/common/id"
	"dealroom.app/broker/internal/lifecycle"
	"dealroom.app/broker/internal/model"
	"dealroom.app/broker/internal/store"
)

type RegisterPartyInput struct {
	Type        model.PartyType
	DisplayName string
	Email       string
	AdvisorCode *string
}

// PartyService maintains the party directory the approval chains read
// affiliations from.
type PartyService interface {
	Register(ctx context.Context, in RegisterPartyInput) (*model.Party, error)
	Get(ctx context.Context, partyID int64) (*model.Party, error)
}

type partyService struct {
	parties store.PartyStore
}

func NewPartyService(parties store.PartyStore) PartyService {
	return &partyService{parties: parties}
}

func (s *partyService) Register(ctx context.Context, in RegisterPartyInput) (*model.Party, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, lifecycle.Invalidf("a valid email is required")
	}
	name := strings.TrimSpace(in.DisplayName)
	if name == "" {
		return nil, lifecycle.Invalidf("display name is required")
	}

	var code *string
	if in.AdvisorCode != nil && model.HasAdvisorAffiliation(*in.AdvisorCode) {
		c := model.NormalizeAdvisorCode(*in.AdvisorCode)
		code = &c
	}
	if in.Type == model.PartyTypeAdvisor && code == nil {
		return nil, lifecycle.Invalidf("advisors must carry their advisor code")
	}

	party := &model.Party{
		ID:          id.New(),
		Type:        in.Type,
		DisplayName: name,
		Email:       email,
		AdvisorCode: code,
	}
	if err := s.parties.Create(ctx, party); err != nil {
		if errors.Is(err, store.ErrUniqueViolation) {
			existing, findErr := s.parties.GetByEmail(ctx, email)
			if findErr == nil {
				return nil, lifecycle.Conflictf(existing.ID, "email %s is already registered", email)
			}
			return nil, lifecycle.Conflictf(0, "email %s is already registered", email)
		}
		slog.ErrorContext(ctx, "failed to create party", "error", err, "type", in.Type)
		return nil, fmt.Errorf("creating party: %w", err)
	}

	slog.InfoContext(ctx, "party registered", "party_id", party.ID, "type", party.Type)
	return party, nil
}

func (s *partyService) Get(ctx context.Context, partyID int64) (*model.Party, error) {
	party, err := s.parties.GetByID(ctx, partyID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, lifecycle.NotFoundf("party %d not found", partyID)
		}
		return nil, fmt.Errorf("getting party: %w", err)
	}
	return party, nil
}
