package model

import (
	"fmt"
	"strings"
	"time"
)

type PartyType string

const (
	PartyTypeInvestor PartyType = "investor"
	PartyTypeStartup  PartyType = "startup"
	PartyTypeAdvisor  PartyType = "advisor"
)

func ParsePartyType(s string) (PartyType, error) {
	switch v := PartyType(s); v {
	case PartyTypeInvestor, PartyTypeStartup, PartyTypeAdvisor:
		return v, nil
	}
	return "", fmt.Errorf("party type %q: %w", s, ErrUnknownValue)
}

// Party is a directory entry. For investors and startups AdvisorCode is the
// code of the assigned advisor; for advisors it is their own code.
type Party struct {
	ID          int64     `json:"id"`
	Type        PartyType `json:"type"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
	AdvisorCode *string   `json:"advisor_code,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Advisor returns the normalized advisor code, or "" when the party has none.
// Empty and whitespace-only codes count as no affiliation.
func (p *Party) Advisor() string {
	if p == nil || p.AdvisorCode == nil {
		return ""
	}
	return NormalizeAdvisorCode(*p.AdvisorCode)
}

func NormalizeAdvisorCode(code string) string {
	return strings.TrimSpace(code)
}

// HasAdvisorAffiliation reports whether code names a real advisor.
func HasAdvisorAffiliation(code string) bool {
	return NormalizeAdvisorCode(code) != ""
}
