package model

import (
	"fmt"
	"time"
)

type ListingKind string

const (
	ListingKindStartup     ListingKind = "startup"
	ListingKindOpportunity ListingKind = "opportunity"
)

func ParseListingKind(s string) (ListingKind, error) {
	switch v := ListingKind(s); v {
	case ListingKindStartup, ListingKindOpportunity:
		return v, nil
	}
	return "", fmt.Errorf("listing kind %q: %w", s, ErrUnknownValue)
}

// Listing is the catalog record an offer targets.
type Listing struct {
	ID        int64       `json:"id"`
	TargetID  int64       `json:"target_id"`
	Kind      ListingKind `json:"kind"`
	Title     string      `json:"title"`
	CreatedAt time.Time   `json:"created_at"`
}

// ListingDefaults seed a listing created on first use.
type ListingDefaults struct {
	Title string
}
