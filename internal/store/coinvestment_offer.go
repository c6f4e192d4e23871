package store

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"dealroom.app/broker/core/db"
	"dealroom.app/broker/internal/model"
)

const coInvestmentOfferColumns = `id, opportunity_id, co_investor_id, listing_id,
	amount::text AS amount, equity_percentage::text AS equity_percentage, currency,
	stage, status, investor_advisor_approval_status, lead_investor_approval_status,
	created_at, updated_at`

const openCoInvestmentStatuses = `('rejected', 'investor_advisor_rejected', 'lead_investor_rejected')`

type coInvestmentOfferRow struct {
	ID                            int64     `db:"id"`
	OpportunityID                 int64     `db:"opportunity_id"`
	CoInvestorID                  int64     `db:"co_investor_id"`
	ListingID                     int64     `db:"listing_id"`
	Amount                        string    `db:"amount"`
	EquityPercentage              string    `db:"equity_percentage"`
	Currency                      string    `db:"currency"`
	Stage                         int       `db:"stage"`
	Status                        string    `db:"status"`
	InvestorAdvisorApprovalStatus string    `db:"investor_advisor_approval_status"`
	LeadInvestorApprovalStatus    string    `db:"lead_investor_approval_status"`
	CreatedAt                     time.Time `db:"created_at"`
	UpdatedAt                     time.Time `db:"updated_at"`
}

type coInvestmentOfferStore struct {
	conn db.DBTX
}

func newCoInvestmentOfferStore(conn db.DBTX) CoInvestmentOfferStore {
	return &coInvestmentOfferStore{conn: conn}
}

func (s *coInvestmentOfferStore) GetByID(ctx context.Context, id int64) (*model.CoInvestmentOffer, error) {
	rows, err := s.conn.Query(ctx, `SELECT `+coInvestmentOfferColumns+` FROM co_investment_offers WHERE id = $1`, id)
	return collectOne(rows, err, toCoInvestmentOfferModel)
}

func (s *coInvestmentOfferStore) Create(ctx context.Context, offer *model.CoInvestmentOffer) error {
	rows, err := s.conn.Query(ctx, `
INSERT INTO co_investment_offers (
	id, opportunity_id, co_investor_id, listing_id,
	amount, equity_percentage, currency,
	stage, status, investor_advisor_approval_status, lead_investor_approval_status
) VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7, $8, $9, $10, $11)
RETURNING `+coInvestmentOfferColumns,
		offer.ID, offer.OpportunityID, offer.CoInvestorID, offer.ListingID,
		offer.Amount.String(), offer.EquityPercentage.String(), offer.Currency,
		offer.Stage, string(offer.Status),
		string(offer.InvestorAdvisorApprovalStatus), string(offer.LeadInvestorApprovalStatus))
	created, err := collectOne(rows, err, toCoInvestmentOfferModel)
	if err != nil {
		return mapWriteErr(err)
	}
	*offer = *created
	return nil
}

func (s *coInvestmentOfferStore) FindOpenByPair(ctx context.Context, opportunityID, coInvestorID int64) (*model.CoInvestmentOffer, error) {
	rows, err := s.conn.Query(ctx, `
SELECT `+coInvestmentOfferColumns+` FROM co_investment_offers
WHERE opportunity_id = $1 AND co_investor_id = $2 AND status NOT IN `+openCoInvestmentStatuses+`
LIMIT 1`, opportunityID, coInvestorID)
	return collectOne(rows, err, toCoInvestmentOfferModel)
}

func (s *coInvestmentOfferStore) CompareAndSetGate(ctx context.Context, id int64, gate model.Gate, expected, next model.ApprovalStatus) (model.ApprovalStatus, error) {
	column, from, to, err := coInvestmentGateWrite(gate, expected, next)
	if err != nil {
		return "", err
	}
	tag, err := s.conn.Exec(ctx,
		fmt.Sprintf(`UPDATE co_investment_offers SET %[1]s = $3, updated_at = now() WHERE id = $1 AND %[1]s = $2`, column),
		id, from, to)
	if err != nil {
		return "", err
	}
	if tag.RowsAffected() == 1 {
		return expected, nil
	}
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return current.Gate(gate), nil
}

func (s *coInvestmentOfferStore) UpdateWorkflow(ctx context.Context, params UpdateCoInvestmentOfferWorkflowParams) error {
	tag, err := s.conn.Exec(ctx, `
UPDATE co_investment_offers
SET stage = $3, status = $4, investor_advisor_approval_status = $5, lead_investor_approval_status = $6,
	updated_at = now()
WHERE id = $1 AND stage = $2`,
		params.ID, params.ExpectedStage, params.Stage, string(params.Status),
		string(params.InvestorAdvisorApprovalStatus), string(params.LeadInvestorApprovalStatus))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrConditionFailed
	}
	return nil
}

func (s *coInvestmentOfferStore) SumAccepted(ctx context.Context, opportunityID int64) (decimal.Decimal, error) {
	var total string
	err := s.conn.QueryRow(ctx, `
SELECT COALESCE(SUM(amount), 0)::text FROM co_investment_offers
WHERE opportunity_id = $1 AND status = 'accepted'`, opportunityID).Scan(&total)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return parseDecimal("accepted total", total)
}

func (s *coInvestmentOfferStore) ListByCoInvestor(ctx context.Context, coInvestorID int64) ([]model.CoInvestmentOffer, error) {
	rows, err := s.conn.Query(ctx, `SELECT `+coInvestmentOfferColumns+` FROM co_investment_offers WHERE co_investor_id = $1 ORDER BY created_at DESC`, coInvestorID)
	return collectAll(rows, err, toCoInvestmentOfferModel)
}

func (s *coInvestmentOfferStore) ListByOpportunityLead(ctx context.Context, leadInvestorID int64) ([]model.CoInvestmentOffer, error) {
	rows, err := s.conn.Query(ctx, `
SELECT `+coInvestmentOfferColumns+` FROM co_investment_offers
WHERE opportunity_id IN (SELECT id FROM co_investment_opportunities WHERE lead_investor_id = $1)
ORDER BY created_at DESC`, leadInvestorID)
	return collectAll(rows, err, toCoInvestmentOfferModel)
}

func (s *coInvestmentOfferStore) ListByStartup(ctx context.Context, startupID int64) ([]model.CoInvestmentOffer, error) {
	rows, err := s.conn.Query(ctx, `
SELECT `+coInvestmentOfferColumns+` FROM co_investment_offers
WHERE opportunity_id IN (SELECT id FROM co_investment_opportunities WHERE startup_id = $1)
ORDER BY created_at DESC`, startupID)
	return collectAll(rows, err, toCoInvestmentOfferModel)
}

// ListByAdvisorCode covers the co-investor's advisor, the only advisor gate
// on this chain.
func (s *coInvestmentOfferStore) ListByAdvisorCode(ctx context.Context, code string) ([]model.CoInvestmentOffer, error) {
	rows, err := s.conn.Query(ctx, `
SELECT `+coInvestmentOfferColumns+` FROM co_investment_offers
WHERE co_investor_id IN (SELECT id FROM parties WHERE btrim(advisor_code) = $1)
ORDER BY created_at DESC`, model.NormalizeAdvisorCode(code))
	return collectAll(rows, err, toCoInvestmentOfferModel)
}

func coInvestmentGateWrite(gate model.Gate, expected, next model.ApprovalStatus) (column, from, to string, err error) {
	switch gate {
	case model.GateInvestorAdvisor:
		return "investor_advisor_approval_status", string(expected), string(next), nil
	case model.GateLeadInvestor:
		return "lead_investor_approval_status", string(expected), string(next), nil
	case model.GateStartupFinal:
		fromStatus, ok1 := coInvestmentFinalStatus(expected)
		toStatus, ok2 := coInvestmentFinalStatus(next)
		if !ok1 || !ok2 {
			return "", "", "", fmt.Errorf("final gate transition %s -> %s: %w", expected, next, model.ErrUnknownValue)
		}
		return "status", string(fromStatus), string(toStatus), nil
	}
	return "", "", "", fmt.Errorf("co-investment offer gate %q: %w", gate, model.ErrUnknownValue)
}

func coInvestmentFinalStatus(s model.ApprovalStatus) (model.CoInvestmentOfferStatus, bool) {
	switch s {
	case model.ApprovalPending:
		return model.CoInvestmentStatusPendingStartup, true
	case model.ApprovalApproved:
		return model.CoInvestmentStatusAccepted, true
	case model.ApprovalRejected:
		return model.CoInvestmentStatusRejected, true
	}
	return "", false
}

func toCoInvestmentOfferModel(row coInvestmentOfferRow) (*model.CoInvestmentOffer, error) {
	status, err := model.ParseCoInvestmentOfferStatus(row.Status)
	if err != nil {
		return nil, err
	}
	investorAdvisor, err := model.ParseApprovalStatus(row.InvestorAdvisorApprovalStatus)
	if err != nil {
		return nil, err
	}
	lead, err := model.ParseApprovalStatus(row.LeadInvestorApprovalStatus)
	if err != nil {
		return nil, err
	}
	amount, err := parseDecimal("amount", row.Amount)
	if err != nil {
		return nil, err
	}
	equity, err := parseDecimal("equity_percentage", row.EquityPercentage)
	if err != nil {
		return nil, err
	}
	return &model.CoInvestmentOffer{
		ID:                            row.ID,
		OpportunityID:                 row.OpportunityID,
		CoInvestorID:                  row.CoInvestorID,
		ListingID:                     row.ListingID,
		Amount:                        amount,
		EquityPercentage:              equity,
		Currency:                      row.Currency,
		Stage:                         row.Stage,
		Status:                        status,
		InvestorAdvisorApprovalStatus: investorAdvisor,
		LeadInvestorApprovalStatus:    lead,
		CreatedAt:                     row.CreatedAt,
		UpdatedAt:                     row.UpdatedAt,
	}, nil
}
