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

type SubmitCoInvestmentOfferInput struct {
	OpportunityID int64
	CoInvestorID  int64
	Terms         model.Terms
}

type CoInvestmentOfferService interface {
	Submit(ctx context.Context, in SubmitCoInvestmentOfferInput) (*model.CoInvestmentOffer, error)
	Decide(ctx context.Context, in DecisionInput) (*model.CoInvestmentOffer, error)
	Get(ctx context.Context, offerID int64, role model.Role, partyID int64) (*model.CoInvestmentOffer, error)
	ListVisible(ctx context.Context, role model.Role, partyID int64) ([]model.CoInvestmentOffer, error)
}

type coInvestmentOfferService struct {
	stores   StoreProvider
	txRunner TxRunner
	producer queue.Producer
}

func NewCoInvestmentOfferService(stores StoreProvider, txRunner TxRunner, producer queue.Producer) CoInvestmentOfferService {
	return &coInvestmentOfferService{
		stores:   stores,
		txRunner: txRunner,
		producer: producer,
	}
}

func coInvestmentItem(c *model.CoInvestmentOffer, opp *model.CoInvestmentOpportunity) lifecycle.Item {
	return lifecycle.Item{
		ID:   c.ID,
		Kind: model.KindCoInvestmentOffer,
		Parties: lifecycle.Parties{
			Investor: c.CoInvestorID,
			Startup:  opp.StartupID,
			Lead:     opp.LeadInvestorID,
		},
		Workflow: workflowOf(lifecycle.CoInvestmentOfferChain, c.Stage, c.Gate),
	}
}

func (s *coInvestmentOfferService) Submit(ctx context.Context, in SubmitCoInvestmentOfferInput) (_ *model.CoInvestmentOffer, err error) {
	sc := startSpan(ctx, model.KindCoInvestmentOffer, "submit", 0)
	defer func() { sc.Fail(err); sc.End() }()
	ctx = sc.Context()

	var offer *model.CoInvestmentOffer
	var ev queue.LifecycleEvent
	err = s.txRunner.WithTx(ctx, func(sp StoreProvider) error {
		opp, err := sp.Opportunities().GetForUpdate(ctx, in.OpportunityID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return lifecycle.NotFoundf("opportunity %d not found", in.OpportunityID)
			}
			return fmt.Errorf("locking opportunity: %w", err)
		}
		if !opp.OpenForCoInvestment() {
			return lifecycle.Conflictf(opp.ID, "opportunity is not open for co-investment")
		}
		if in.CoInvestorID == opp.LeadInvestorID || in.CoInvestorID == opp.StartupID {
			return lifecycle.Invalidf("party %d cannot co-invest in its own opportunity", in.CoInvestorID)
		}

		terms, err := normalizeTerms(in.Terms, opp.Currency)
		if err != nil {
			return err
		}
		if terms.Currency != opp.Currency {
			return lifecycle.Invalidf("currency %s does not match the opportunity's %s", terms.Currency, opp.Currency)
		}
		if !opp.TicketInRange(terms.Amount) {
			return lifecycle.Invalidf("amount %s is outside the ticket range", terms.Amount)
		}

		parties := sp.Parties()
		if _, err := requireParty(ctx, parties, in.CoInvestorID, model.PartyTypeInvestor); err != nil {
			return err
		}

		offers := sp.CoInvestmentOffers()
		existing, err := offers.FindOpenByPair(ctx, opp.ID, in.CoInvestorID)
		switch {
		case err == nil:
			return lifecycle.Conflictf(existing.ID, "co-investor %d already has an open offer on opportunity %d", in.CoInvestorID, opp.ID)
		case !errors.Is(err, store.ErrNotFound):
			return fmt.Errorf("checking open co-investment offers: %w", err)
		}

		dir := partyDirectory{parties: parties}
		lp := lifecycle.Parties{Investor: in.CoInvestorID, Startup: opp.StartupID, Lead: opp.LeadInvestorID}
		wf, _, err := lifecycle.NewProcessor(lifecycle.CoInvestmentOfferChain, dir).Place(ctx, lp)
		if err != nil {
			return err
		}

		offer = &model.CoInvestmentOffer{
			ID:                            id.New(),
			OpportunityID:                 opp.ID,
			CoInvestorID:                  in.CoInvestorID,
			ListingID:                     opp.ListingID,
			Amount:                        terms.Amount,
			EquityPercentage:              terms.EquityPercentage,
			Currency:                      terms.Currency,
			Stage:                         wf.Stage,
			Status:                        model.CoInvestmentOfferStatus(lifecycle.CoInvestmentOfferChain.Status(wf)),
			InvestorAdvisorApprovalStatus: wf.Gate(model.GateInvestorAdvisor),
			LeadInvestorApprovalStatus:    wf.Gate(model.GateLeadInvestor),
		}
		if err := offers.Create(ctx, offer); err != nil {
			return conflictOnUnique(err, func() (int64, error) {
				c, err := offers.FindOpenByPair(ctx, opp.ID, in.CoInvestorID)
				if err != nil {
					return 0, err
				}
				return c.ID, nil
			}, "open co-investment offer for this co-investor")
		}
		item := lifecycle.Item{ID: offer.ID, Kind: model.KindCoInvestmentOffer, Parties: lp, Workflow: wf}
		ev = newEvent(ctx, lifecycle.CoInvestmentOfferChain, dir, queue.EventTypeSubmitted, item, in.CoInvestorID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "co-investment offer submitted",
		"co_investment_offer_id", offer.ID,
		"opportunity_id", offer.OpportunityID,
		"status", offer.Status)
	publish(ctx, s.producer, ev)
	return offer, nil
}

func (s *coInvestmentOfferService) Decide(ctx context.Context, in DecisionInput) (_ *model.CoInvestmentOffer, err error) {
	sc := startSpan(ctx, model.KindCoInvestmentOffer, "decide", in.ItemID)
	defer func() { sc.Fail(err); sc.End() }()
	ctx = sc.Context()

	var offer *model.CoInvestmentOffer
	var opp *model.CoInvestmentOpportunity
	var ev *queue.LifecycleEvent
	completed := false
	err = s.txRunner.WithTx(ctx, func(sp StoreProvider) error {
		accepting := in.Gate == model.GateStartupFinal && in.Decision == model.DecisionApprove
		if accepting {
			var err error
			if opp, err = lockOpenRound(ctx, sp, in.ItemID); err != nil {
				return err
			}
		}

		dir := partyDirectory{parties: sp.Parties()}
		processor := lifecycle.NewProcessor(lifecycle.CoInvestmentOfferChain, dir)
		port := coInvestmentPort{offers: sp.CoInvestmentOffers(), opps: sp.Opportunities()}

		res, err := processor.Decide(ctx, port, in.command())
		if err != nil {
			return err
		}

		offer, err = sp.CoInvestmentOffers().GetByID(ctx, in.ItemID)
		if err != nil {
			return fmt.Errorf("reloading co-investment offer: %w", err)
		}
		if !res.Changed {
			return nil
		}
		ev = decidedEvent(ctx, lifecycle.CoInvestmentOfferChain, dir, res.Item, offer.CoInvestorID, in)
		if !accepting || !res.Item.Workflow.Accepted() {
			return nil
		}
		completed, err = completeIfFunded(ctx, sp, opp)
		return err
	})
	if err != nil {
		return nil, err
	}

	if ev != nil {
		publish(ctx, s.producer, *ev)
	}
	if completed {
		publish(ctx, s.producer, queue.LifecycleEvent{
			Type:        queue.EventTypeCompleted,
			ItemKind:    model.KindOpportunity,
			ItemID:      opp.ID,
			SubmitterID: opp.LeadInvestorID,
			Status:      string(model.OpportunityStatusCompleted),
			Stage:       opp.Stage,
		})
	}
	return offer, nil
}

// lockOpenRound takes the row lock on the opportunity behind a ticket the
// startup is about to accept. A round that is no longer active takes no
// more tickets; repeating an accept that already landed stays a no-op.
func lockOpenRound(ctx context.Context, sp StoreProvider, offerID int64) (*model.CoInvestmentOpportunity, error) {
	offer, err := sp.CoInvestmentOffers().GetByID(ctx, offerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, lifecycle.NotFoundf("co-investment offer %d not found", offerID)
		}
		return nil, fmt.Errorf("getting co-investment offer: %w", err)
	}
	opp, err := sp.Opportunities().GetForUpdate(ctx, offer.OpportunityID)
	if err != nil {
		return nil, fmt.Errorf("locking opportunity: %w", err)
	}
	if opp.Status != model.OpportunityStatusActive && offer.Status != model.CoInvestmentStatusAccepted {
		return nil, lifecycle.Conflictf(opp.ID, "opportunity is %s", opp.Status)
	}
	return opp, nil
}

// completeIfFunded closes the opportunity once accepted tickets cover the
// total ask. The caller holds the opportunity's row lock.
func completeIfFunded(ctx context.Context, sp StoreProvider, opp *model.CoInvestmentOpportunity) (bool, error) {
	if opp.Status != model.OpportunityStatusActive {
		return false, nil
	}
	raised, err := sp.CoInvestmentOffers().SumAccepted(ctx, opp.ID)
	if err != nil {
		return false, fmt.Errorf("summing accepted tickets: %w", err)
	}
	if raised.LessThan(opp.TotalAsk) {
		return false, nil
	}
	if err := sp.Opportunities().SetStatus(ctx, opp.ID, model.OpportunityStatusCompleted); err != nil {
		return false, fmt.Errorf("completing opportunity: %w", err)
	}
	opp.Status = model.OpportunityStatusCompleted
	slog.InfoContext(ctx, "opportunity fully funded",
		"opportunity_id", opp.ID,
		"raised", raised.String(),
		"total_ask", opp.TotalAsk.String())
	return true, nil
}

func (s *coInvestmentOfferService) Get(ctx context.Context, offerID int64, role model.Role, partyID int64) (*model.CoInvestmentOffer, error) {
	offer, err := s.stores.CoInvestmentOffers().GetByID(ctx, offerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, lifecycle.NotFoundf("co-investment offer %d not found", offerID)
		}
		return nil, fmt.Errorf("getting co-investment offer: %w", err)
	}
	opp, err := s.stores.Opportunities().GetByID(ctx, offer.OpportunityID)
	if err != nil {
		return nil, fmt.Errorf("getting opportunity: %w", err)
	}

	parties := s.stores.Parties()
	viewer, err := viewerFor(ctx, parties, role, partyID)
	if err != nil {
		return nil, err
	}
	if err := checkVisible(ctx, lifecycle.CoInvestmentOfferChain, partyDirectory{parties: parties}, viewer, coInvestmentItem(offer, opp)); err != nil {
		return nil, err
	}
	return offer, nil
}

func (s *coInvestmentOfferService) ListVisible(ctx context.Context, role model.Role, partyID int64) ([]model.CoInvestmentOffer, error) {
	parties := s.stores.Parties()
	viewer, err := viewerFor(ctx, parties, role, partyID)
	if err != nil {
		return nil, err
	}

	offers := s.stores.CoInvestmentOffers()
	var candidates []model.CoInvestmentOffer
	switch role {
	case model.RoleInvestor:
		candidates, err = offers.ListByCoInvestor(ctx, partyID)
	case model.RoleLeadInvestor:
		candidates, err = offers.ListByOpportunityLead(ctx, partyID)
	case model.RoleStartup:
		candidates, err = offers.ListByStartup(ctx, partyID)
	case model.RoleAdvisor:
		candidates, err = offers.ListByAdvisorCode(ctx, viewer.AdvisorCode)
	default:
		return nil, lifecycle.Invalidf("role %s does not apply to co-investment offers", role)
	}
	if err != nil {
		return nil, fmt.Errorf("listing co-investment offers: %w", err)
	}

	opps := map[int64]*model.CoInvestmentOpportunity{}
	for _, c := range candidates {
		if _, ok := opps[c.OpportunityID]; ok {
			continue
		}
		opp, err := s.stores.Opportunities().GetByID(ctx, c.OpportunityID)
		if err != nil {
			return nil, fmt.Errorf("getting opportunity %d: %w", c.OpportunityID, err)
		}
		opps[c.OpportunityID] = opp
	}

	dir := newCachedDirectory(partyDirectory{parties: parties})
	return filterVisible(ctx, lifecycle.CoInvestmentOfferChain, dir, viewer, candidates, func(c *model.CoInvestmentOffer) lifecycle.Item {
		return coInvestmentItem(c, opps[c.OpportunityID])
	})
}

// coInvestmentPort resolves the lead and startup through the parent
// opportunity on every load.
type coInvestmentPort struct {
	offers store.CoInvestmentOfferStore
	opps   store.OpportunityStore
}

func (p coInvestmentPort) Load(ctx context.Context, id int64) (lifecycle.Item, error) {
	c, err := p.offers.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return lifecycle.Item{}, lifecycle.ErrItemMissing
		}
		return lifecycle.Item{}, err
	}
	opp, err := p.opps.GetByID(ctx, c.OpportunityID)
	if err != nil {
		return lifecycle.Item{}, fmt.Errorf("getting opportunity %d: %w", c.OpportunityID, err)
	}
	return coInvestmentItem(c, opp), nil
}

func (p coInvestmentPort) CompareAndSetGate(ctx context.Context, id int64, gate model.Gate, expected, next model.ApprovalStatus) (model.ApprovalStatus, error) {
	prev, err := p.offers.CompareAndSetGate(ctx, id, gate, expected, next)
	if errors.Is(err, store.ErrNotFound) {
		return "", lifecycle.ErrItemMissing
	}
	return prev, err
}

func (p coInvestmentPort) SaveWorkflow(ctx context.Context, id int64, prev, next lifecycle.Workflow) error {
	err := p.offers.UpdateWorkflow(ctx, store.UpdateCoInvestmentOfferWorkflowParams{
		ID:                            id,
		ExpectedStage:                 prev.Stage,
		Stage:                         next.Stage,
		Status:                        model.CoInvestmentOfferStatus(lifecycle.CoInvestmentOfferChain.Status(next)),
		InvestorAdvisorApprovalStatus: next.Gate(model.GateInvestorAdvisor),
		LeadInvestorApprovalStatus:    next.Gate(model.GateLeadInvestor),
	})
	if errors.Is(err, store.ErrConditionFailed) {
		return lifecycle.Conflictf(id, "co-investment offer changed concurrently")
	}
	return err
}
