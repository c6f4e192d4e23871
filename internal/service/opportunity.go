package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"dealroom.app/broker/common/id"
	"dealroom.app/broker/internal/lifecycle"
	"dealroom.app/broker/internal/model"
	"dealroom.app/broker/internal/queue"
	"dealroom.app/broker/internal/store"
)

type SubmitOpportunityInput struct {
	LeadInvestorID   int64
	StartupID        int64
	TotalAsk         decimal.Decimal
	EquityPercentage decimal.Decimal
	MinTicket        decimal.Decimal
	MaxTicket        decimal.Decimal
	Currency         string
	Description      string
}

type OpportunityService interface {
	Submit(ctx context.Context, in SubmitOpportunityInput) (*model.CoInvestmentOpportunity, error)
	Decide(ctx context.Context, in DecisionInput) (*model.CoInvestmentOpportunity, error)
	Get(ctx context.Context, opportunityID int64, role model.Role, partyID int64) (*model.CoInvestmentOpportunity, error)
	ListVisible(ctx context.Context, role model.Role, partyID int64) ([]model.CoInvestmentOpportunity, error)
	// ListOpen returns opportunities that accept co-investment offers.
	ListOpen(ctx context.Context) ([]model.CoInvestmentOpportunity, error)
}

type opportunityService struct {
	stores          StoreProvider
	txRunner        TxRunner
	producer        queue.Producer
	defaultCurrency string
}

func NewOpportunityService(stores StoreProvider, txRunner TxRunner, producer queue.Producer, defaultCurrency string) OpportunityService {
	return &opportunityService{
		stores:          stores,
		txRunner:        txRunner,
		producer:        producer,
		defaultCurrency: defaultCurrency,
	}
}

func opportunityItem(o *model.CoInvestmentOpportunity) lifecycle.Item {
	return lifecycle.Item{
		ID:       o.ID,
		Kind:     model.KindOpportunity,
		Parties:  lifecycle.Parties{Investor: o.LeadInvestorID, Startup: o.StartupID},
		Workflow: workflowOf(lifecycle.OpportunityChain, o.Stage, o.Gate),
	}
}

func validateOpportunity(in SubmitOpportunityInput, defaultCurrency string) (SubmitOpportunityInput, error) {
	terms, err := normalizeTerms(model.Terms{
		Amount:           in.TotalAsk,
		EquityPercentage: in.EquityPercentage,
		Currency:         in.Currency,
	}, defaultCurrency)
	if err != nil {
		return in, err
	}
	in.Currency = terms.Currency

	if in.MinTicket.IsNegative() || in.MaxTicket.IsNegative() {
		return in, lifecycle.Invalidf("ticket bounds must not be negative")
	}
	if !in.MaxTicket.IsZero() && in.MaxTicket.LessThan(in.MinTicket) {
		return in, lifecycle.Invalidf("max ticket is below min ticket")
	}
	if in.MinTicket.GreaterThan(in.TotalAsk) {
		return in, lifecycle.Invalidf("min ticket exceeds the total ask")
	}
	if in.LeadInvestorID == in.StartupID {
		return in, lifecycle.Invalidf("lead investor and startup must be different parties")
	}
	return in, nil
}

func (s *opportunityService) Submit(ctx context.Context, in SubmitOpportunityInput) (_ *model.CoInvestmentOpportunity, err error) {
	sc := startSpan(ctx, model.KindOpportunity, "submit", 0)
	defer func() { sc.Fail(err); sc.End() }()
	ctx = sc.Context()

	in, err = validateOpportunity(in, s.defaultCurrency)
	if err != nil {
		return nil, err
	}

	var opp *model.CoInvestmentOpportunity
	var ev queue.LifecycleEvent
	err = s.txRunner.WithTx(ctx, func(sp StoreProvider) error {
		parties := sp.Parties()
		if _, err := requireParty(ctx, parties, in.LeadInvestorID, model.PartyTypeInvestor); err != nil {
			return err
		}
		startup, err := requireParty(ctx, parties, in.StartupID, model.PartyTypeStartup)
		if err != nil {
			return err
		}

		opps := sp.Opportunities()
		existing, err := opps.FindActiveByPair(ctx, in.StartupID, in.LeadInvestorID)
		switch {
		case err == nil:
			return lifecycle.Conflictf(existing.ID, "an active opportunity for this startup and lead investor already exists")
		case !errors.Is(err, store.ErrNotFound):
			return fmt.Errorf("checking active opportunities: %w", err)
		}

		dir := partyDirectory{parties: parties}
		lp := lifecycle.Parties{Investor: in.LeadInvestorID, Startup: in.StartupID}
		wf, _, err := lifecycle.NewProcessor(lifecycle.OpportunityChain, dir).Place(ctx, lp)
		if err != nil {
			return err
		}

		oppID := id.New()
		listing, err := sp.Listings().FindOrCreate(ctx, id.New(), oppID, model.ListingKindOpportunity,
			model.ListingDefaults{Title: startup.DisplayName + " co-investment"})
		if err != nil {
			return fmt.Errorf("resolving listing: %w", err)
		}

		opp = &model.CoInvestmentOpportunity{
			ID:                          oppID,
			StartupID:                   in.StartupID,
			LeadInvestorID:              in.LeadInvestorID,
			ListingID:                   listing.ID,
			TotalAsk:                    in.TotalAsk,
			EquityPercentage:            in.EquityPercentage,
			MinTicket:                   in.MinTicket,
			MaxTicket:                   in.MaxTicket,
			Currency:                    in.Currency,
			Description:                 in.Description,
			Stage:                       wf.Stage,
			Status:                      model.OpportunityStatusActive,
			LeadInvestorAdvisorApproval: wf.Gate(model.GateInvestorAdvisor),
			StartupAdvisorApproval:      wf.Gate(model.GateStartupAdvisor),
			StartupApprovalStatus:       model.StartupApprovalPending,
		}
		if err := opps.Create(ctx, opp); err != nil {
			return conflictOnUnique(err, func() (int64, error) {
				o, err := opps.FindActiveByPair(ctx, in.StartupID, in.LeadInvestorID)
				if err != nil {
					return 0, err
				}
				return o.ID, nil
			}, "active opportunity for this startup and lead investor")
		}
		item := lifecycle.Item{ID: opp.ID, Kind: model.KindOpportunity, Parties: lp, Workflow: wf}
		ev = newEvent(ctx, lifecycle.OpportunityChain, dir, queue.EventTypeSubmitted, item, in.LeadInvestorID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "opportunity submitted", "opportunity_id", opp.ID, "stage", opp.Stage)
	publish(ctx, s.producer, ev)
	return opp, nil
}

func (s *opportunityService) Decide(ctx context.Context, in DecisionInput) (_ *model.CoInvestmentOpportunity, err error) {
	sc := startSpan(ctx, model.KindOpportunity, "decide", in.ItemID)
	defer func() { sc.Fail(err); sc.End() }()
	ctx = sc.Context()

	var opp *model.CoInvestmentOpportunity
	var ev *queue.LifecycleEvent
	err = s.txRunner.WithTx(ctx, func(sp StoreProvider) error {
		dir := partyDirectory{parties: sp.Parties()}
		processor := lifecycle.NewProcessor(lifecycle.OpportunityChain, dir)

		res, err := processor.Decide(ctx, opportunityPort{opps: sp.Opportunities()}, in.command())
		if err != nil {
			return err
		}

		opp, err = sp.Opportunities().GetByID(ctx, in.ItemID)
		if err != nil {
			return fmt.Errorf("reloading opportunity: %w", err)
		}
		if res.Changed {
			ev = decidedEvent(ctx, lifecycle.OpportunityChain, dir, res.Item, opp.LeadInvestorID, in)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if ev != nil {
		publish(ctx, s.producer, *ev)
	}
	return opp, nil
}

func (s *opportunityService) Get(ctx context.Context, opportunityID int64, role model.Role, partyID int64) (*model.CoInvestmentOpportunity, error) {
	opp, err := s.stores.Opportunities().GetByID(ctx, opportunityID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, lifecycle.NotFoundf("opportunity %d not found", opportunityID)
		}
		return nil, fmt.Errorf("getting opportunity: %w", err)
	}

	// Open opportunities are public to investors browsing for co-investment.
	if role == model.RoleInvestor && opp.OpenForCoInvestment() {
		return opp, nil
	}

	parties := s.stores.Parties()
	viewer, err := viewerFor(ctx, parties, role, partyID)
	if err != nil {
		return nil, err
	}
	if role == model.RoleInvestor {
		viewer.Role = model.RoleLeadInvestor
	}
	if err := checkVisible(ctx, lifecycle.OpportunityChain, partyDirectory{parties: parties}, viewer, opportunityItem(opp)); err != nil {
		return nil, err
	}
	return opp, nil
}

func (s *opportunityService) ListVisible(ctx context.Context, role model.Role, partyID int64) ([]model.CoInvestmentOpportunity, error) {
	parties := s.stores.Parties()
	viewer, err := viewerFor(ctx, parties, role, partyID)
	if err != nil {
		return nil, err
	}

	var candidates []model.CoInvestmentOpportunity
	switch role {
	case model.RoleInvestor, model.RoleLeadInvestor:
		viewer.Role = model.RoleLeadInvestor
		candidates, err = s.stores.Opportunities().ListByLeadInvestor(ctx, partyID)
	case model.RoleStartup:
		candidates, err = s.stores.Opportunities().ListByStartup(ctx, partyID)
	case model.RoleAdvisor:
		candidates, err = s.stores.Opportunities().ListByAdvisorCode(ctx, viewer.AdvisorCode)
	default:
		return nil, lifecycle.Invalidf("role %s does not apply to opportunities", role)
	}
	if err != nil {
		return nil, fmt.Errorf("listing opportunities: %w", err)
	}

	dir := newCachedDirectory(partyDirectory{parties: parties})
	return filterVisible(ctx, lifecycle.OpportunityChain, dir, viewer, candidates, opportunityItem)
}

func (s *opportunityService) ListOpen(ctx context.Context) ([]model.CoInvestmentOpportunity, error) {
	opps, err := s.stores.Opportunities().ListOpen(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing open opportunities: %w", err)
	}
	return opps, nil
}

type opportunityPort struct {
	opps store.OpportunityStore
}

func (p opportunityPort) Load(ctx context.Context, id int64) (lifecycle.Item, error) {
	o, err := p.opps.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return lifecycle.Item{}, lifecycle.ErrItemMissing
		}
		return lifecycle.Item{}, err
	}
	if o.Status == model.OpportunityStatusCompleted || o.Status == model.OpportunityStatusInactive {
		return lifecycle.Item{}, lifecycle.Conflictf(o.ID, "opportunity is %s", o.Status)
	}
	return opportunityItem(o), nil
}

func (p opportunityPort) CompareAndSetGate(ctx context.Context, id int64, gate model.Gate, expected, next model.ApprovalStatus) (model.ApprovalStatus, error) {
	prev, err := p.opps.CompareAndSetGate(ctx, id, gate, expected, next)
	if errors.Is(err, store.ErrNotFound) {
		return "", lifecycle.ErrItemMissing
	}
	return prev, err
}

// SaveWorkflow maps the chain onto the opportunity columns. A rejection at
// any gate cancels the opportunity; the startup's accept leaves it active
// and open for co-investment.
func (p opportunityPort) SaveWorkflow(ctx context.Context, id int64, prev, next lifecycle.Workflow) error {
	status := model.OpportunityStatusActive
	if _, rejected := next.Rejected(); rejected {
		status = model.OpportunityStatusCancelled
	}
	approval := model.StartupApprovalPending
	switch next.Gate(model.GateStartupFinal) {
	case model.ApprovalApproved:
		approval = model.StartupApprovalApproved
	case model.ApprovalRejected:
		approval = model.StartupApprovalRejected
	}

	err := p.opps.UpdateWorkflow(ctx, store.UpdateOpportunityWorkflowParams{
		ID:                          id,
		ExpectedStage:               prev.Stage,
		Stage:                       next.Stage,
		Status:                      status,
		LeadInvestorAdvisorApproval: next.Gate(model.GateInvestorAdvisor),
		StartupAdvisorApproval:      next.Gate(model.GateStartupAdvisor),
		StartupApprovalStatus:       approval,
	})
	if errors.Is(err, store.ErrConditionFailed) {
		return lifecycle.Conflictf(id, "opportunity changed concurrently")
	}
	return err
}
