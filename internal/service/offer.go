package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"dealroom.app/broker/common/id"
	"dealroom.app/broker/internal/lifecycle"
	"dealroom.app/broker/internal/model"
	"dealroom.app/broker/internal/queue"
	"dealroom.app/broker/internal/store"
)

type SubmitOfferInput struct {
	InvestorID          int64
	StartupID           int64
	SourceOpportunityID *int64
	Terms               model.Terms
}

// OfferService runs plain investor-to-startup offers through their approval
// chain.
type OfferService interface {
	Submit(ctx context.Context, in SubmitOfferInput) (*model.Offer, error)
	Decide(ctx context.Context, in DecisionInput) (*model.Offer, error)
	Get(ctx context.Context, offerID int64, role model.Role, partyID int64) (*model.Offer, error)
	ListVisible(ctx context.Context, role model.Role, partyID int64) ([]model.Offer, error)
}

type offerService struct {
	stores          StoreProvider
	txRunner        TxRunner
	producer        queue.Producer
	defaultCurrency string
}

func NewOfferService(stores StoreProvider, txRunner TxRunner, producer queue.Producer, defaultCurrency string) OfferService {
	return &offerService{
		stores:          stores,
		txRunner:        txRunner,
		producer:        producer,
		defaultCurrency: defaultCurrency,
	}
}

func offerItem(o *model.Offer) lifecycle.Item {
	return lifecycle.Item{
		ID:       o.ID,
		Kind:     model.KindOffer,
		Parties:  lifecycle.Parties{Investor: o.InvestorID, Startup: o.StartupID},
		Workflow: workflowOf(lifecycle.OfferChain, o.Stage, o.Gate),
	}
}

func (s *offerService) Submit(ctx context.Context, in SubmitOfferInput) (_ *model.Offer, err error) {
	sc := startSpan(ctx, model.KindOffer, "submit", 0)
	defer func() { sc.Fail(err); sc.End() }()
	ctx = sc.Context()

	terms, err := normalizeTerms(in.Terms, s.defaultCurrency)
	if err != nil {
		return nil, err
	}
	if in.InvestorID == in.StartupID {
		return nil, lifecycle.Invalidf("investor and startup must be different parties")
	}

	var offer *model.Offer
	var ev queue.LifecycleEvent
	err = s.txRunner.WithTx(ctx, func(sp StoreProvider) error {
		parties := sp.Parties()
		if _, err := requireParty(ctx, parties, in.InvestorID, model.PartyTypeInvestor); err != nil {
			return err
		}
		startup, err := requireParty(ctx, parties, in.StartupID, model.PartyTypeStartup)
		if err != nil {
			return err
		}

		if in.SourceOpportunityID != nil {
			opp, err := sp.Opportunities().GetByID(ctx, *in.SourceOpportunityID)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return lifecycle.NotFoundf("opportunity %d not found", *in.SourceOpportunityID)
				}
				return fmt.Errorf("getting source opportunity: %w", err)
			}
			if opp.StartupID != in.StartupID {
				return lifecycle.Invalidf("opportunity %d belongs to another startup", opp.ID)
			}
		}

		offers := sp.Offers()
		existing, err := offers.FindOpenByPair(ctx, in.InvestorID, in.StartupID)
		switch {
		case err == nil:
			return lifecycle.Conflictf(existing.ID, "an offer from investor %d to startup %d is already open", in.InvestorID, in.StartupID)
		case !errors.Is(err, store.ErrNotFound):
			return fmt.Errorf("checking open offers: %w", err)
		}

		deleted, err := offers.DeleteRejectedByPair(ctx, in.InvestorID, in.StartupID)
		if err != nil {
			return fmt.Errorf("clearing rejected offers: %w", err)
		}
		if deleted > 0 {
			slog.InfoContext(ctx, "replaced rejected offers", "investor_id", in.InvestorID, "startup_id", in.StartupID, "count", deleted)
		}

		listing, err := sp.Listings().FindOrCreate(ctx, id.New(), in.StartupID, model.ListingKindStartup,
			model.ListingDefaults{Title: startup.DisplayName})
		if err != nil {
			return fmt.Errorf("resolving listing: %w", err)
		}

		dir := partyDirectory{parties: parties}
		processor := lifecycle.NewProcessor(lifecycle.OfferChain, dir)
		lp := lifecycle.Parties{Investor: in.InvestorID, Startup: in.StartupID}
		wf, _, err := processor.Place(ctx, lp)
		if err != nil {
			return err
		}

		offer = &model.Offer{
			ID:                      id.New(),
			InvestorID:              in.InvestorID,
			StartupID:               in.StartupID,
			ListingID:               listing.ID,
			SourceOpportunityID:     in.SourceOpportunityID,
			Amount:                  terms.Amount,
			EquityPercentage:        terms.EquityPercentage,
			Currency:                terms.Currency,
			Stage:                   wf.Stage,
			Status:                  model.OfferStatus(lifecycle.OfferChain.Status(wf)),
			InvestorAdvisorApproval: wf.Gate(model.GateInvestorAdvisor),
			StartupAdvisorApproval:  wf.Gate(model.GateStartupAdvisor),
		}
		if err := offers.Create(ctx, offer); err != nil {
			return conflictOnUnique(err, func() (int64, error) {
				o, err := offers.FindOpenByPair(ctx, in.InvestorID, in.StartupID)
				if err != nil {
					return 0, err
				}
				return o.ID, nil
			}, "open offer for this investor and startup")
		}
		item := lifecycle.Item{ID: offer.ID, Kind: model.KindOffer, Parties: lp, Workflow: wf}
		ev = newEvent(ctx, lifecycle.OfferChain, dir, queue.EventTypeSubmitted, item, in.InvestorID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "offer submitted",
		"offer_id", offer.ID,
		"status", offer.Status,
		"stage", offer.Stage)
	publish(ctx, s.producer, ev)
	return offer, nil
}

func (s *offerService) Decide(ctx context.Context, in DecisionInput) (_ *model.Offer, err error) {
	sc := startSpan(ctx, model.KindOffer, "decide", in.ItemID)
	defer func() { sc.Fail(err); sc.End() }()
	ctx = sc.Context()

	var offer *model.Offer
	var ev *queue.LifecycleEvent
	err = s.txRunner.WithTx(ctx, func(sp StoreProvider) error {
		dir := partyDirectory{parties: sp.Parties()}
		processor := lifecycle.NewProcessor(lifecycle.OfferChain, dir)

		res, err := processor.Decide(ctx, offerPort{offers: sp.Offers()}, in.command())
		if err != nil {
			return err
		}

		offer, err = sp.Offers().GetByID(ctx, in.ItemID)
		if err != nil {
			return fmt.Errorf("reloading offer: %w", err)
		}
		if res.Changed {
			ev = decidedEvent(ctx, lifecycle.OfferChain, dir, res.Item, offer.InvestorID, in)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if ev != nil {
		publish(ctx, s.producer, *ev)
	}
	return offer, nil
}

func (s *offerService) Get(ctx context.Context, offerID int64, role model.Role, partyID int64) (*model.Offer, error) {
	offer, err := s.stores.Offers().GetByID(ctx, offerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, lifecycle.NotFoundf("offer %d not found", offerID)
		}
		return nil, fmt.Errorf("getting offer: %w", err)
	}

	parties := s.stores.Parties()
	viewer, err := viewerFor(ctx, parties, role, partyID)
	if err != nil {
		return nil, err
	}
	if err := checkVisible(ctx, lifecycle.OfferChain, partyDirectory{parties: parties}, viewer, offerItem(offer)); err != nil {
		return nil, err
	}
	return offer, nil
}

func (s *offerService) ListVisible(ctx context.Context, role model.Role, partyID int64) ([]model.Offer, error) {
	parties := s.stores.Parties()
	viewer, err := viewerFor(ctx, parties, role, partyID)
	if err != nil {
		return nil, err
	}

	var candidates []model.Offer
	switch role {
	case model.RoleInvestor:
		candidates, err = s.stores.Offers().ListByInvestor(ctx, partyID)
	case model.RoleStartup:
		candidates, err = s.stores.Offers().ListByStartup(ctx, partyID)
	case model.RoleAdvisor:
		candidates, err = s.stores.Offers().ListByAdvisorCode(ctx, viewer.AdvisorCode)
	default:
		return nil, lifecycle.Invalidf("role %s does not apply to offers", role)
	}
	if err != nil {
		return nil, fmt.Errorf("listing offers: %w", err)
	}

	dir := newCachedDirectory(partyDirectory{parties: parties})
	return filterVisible(ctx, lifecycle.OfferChain, dir, viewer, candidates, offerItem)
}

// offerPort binds the engine's store port to the offers table of one
// transaction.
type offerPort struct {
	offers store.OfferStore
}

func (p offerPort) Load(ctx context.Context, id int64) (lifecycle.Item, error) {
	o, err := p.offers.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return lifecycle.Item{}, lifecycle.ErrItemMissing
		}
		return lifecycle.Item{}, err
	}
	return offerItem(o), nil
}

func (p offerPort) CompareAndSetGate(ctx context.Context, id int64, gate model.Gate, expected, next model.ApprovalStatus) (model.ApprovalStatus, error) {
	prev, err := p.offers.CompareAndSetGate(ctx, id, gate, expected, next)
	if errors.Is(err, store.ErrNotFound) {
		return "", lifecycle.ErrItemMissing
	}
	return prev, err
}

func (p offerPort) SaveWorkflow(ctx context.Context, id int64, prev, next lifecycle.Workflow) error {
	err := p.offers.UpdateWorkflow(ctx, store.UpdateOfferWorkflowParams{
		ID:                      id,
		ExpectedStage:           prev.Stage,
		Stage:                   next.Stage,
		Status:                  model.OfferStatus(lifecycle.OfferChain.Status(next)),
		InvestorAdvisorApproval: next.Gate(model.GateInvestorAdvisor),
		StartupAdvisorApproval:  next.Gate(model.GateStartupAdvisor),
		ContactDetailsRevealed:  next.Accepted(),
	})
	if errors.Is(err, store.ErrConditionFailed) {
		return lifecycle.Conflictf(id, "offer changed concurrently")
	}
	return err
}
