package store

import (
	"dealroom.app/broker/core/db"
)

type Stores struct {
	conn db.DBTX
}

func NewStores(conn db.DBTX) *Stores {
	return &Stores{conn: conn}
}

func (s *Stores) Parties() PartyStore {
	return newPartyStore(s.conn)
}

func (s *Stores) Listings() ListingStore {
	return newListingStore(s.conn)
}

func (s *Stores) Offers() OfferStore {
	return newOfferStore(s.conn)
}

func (s *Stores) Opportunities() OpportunityStore {
	return newOpportunityStore(s.conn)
}

func (s *Stores) CoInvestmentOffers() CoInvestmentOfferStore {
	return newCoInvestmentOfferStore(s.conn)
}

func (s *Stores) Notifications() NotificationStore {
	return newNotificationStore(s.conn)
}
