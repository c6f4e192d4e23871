package service

import (
	"dealroom.app/broker/core/config"
	"dealroom.app/broker/internal/queue"
	"dealroom.app/broker/internal/store"
)

type Services struct {
	stores    *store.Stores
	txRunner  TxRunner
	producer  queue.Producer
	authCfg   config.AuthConfig
	engineCfg config.EngineConfig
}

func NewServices(stores *store.Stores, txRunner TxRunner, producer queue.Producer, authCfg config.AuthConfig, engineCfg config.EngineConfig) *Services {
	if producer == nil {
		producer = queue.NopProducer{}
	}
	return &Services{
		stores:    stores,
		txRunner:  txRunner,
		producer:  producer,
		authCfg:   authCfg,
		engineCfg: engineCfg,
	}
}

func (s *Services) Parties() PartyService {
	return NewPartyService(s.stores.Parties())
}

func (s *Services) Auth() AuthService {
	return NewAuthService(s.stores.Parties(), s.authCfg)
}

func (s *Services) Offers() OfferService {
	return NewOfferService(s.stores, s.txRunner, s.producer, s.engineCfg.DefaultCurrency)
}

func (s *Services) Opportunities() OpportunityService {
	return NewOpportunityService(s.stores, s.txRunner, s.producer, s.engineCfg.DefaultCurrency)
}

func (s *Services) CoInvestmentOffers() CoInvestmentOfferService {
	return NewCoInvestmentOfferService(s.stores, s.txRunner, s.producer)
}

func (s *Services) Notifications() NotificationService {
	return NewNotificationService(s.txRunner, s.stores.Notifications(), int(s.engineCfg.NotificationLimit))
}
