package store

import (
	"context"
	"fmt"
	"time"

	"dealroom.app/broker/core/db"
	"dealroom.app/broker/internal/model"
)

const offerColumns = `id, investor_id, startup_id, listing_id, source_opportunity_id,
	amount::text AS amount, equity_percentage::text AS equity_percentage, currency,
	stage, status, investor_advisor_approval, startup_advisor_approval,
	contact_details_revealed, created_at, updated_at`

const rejectedOfferStatuses = `('rejected', 'investor_advisor_rejected', 'startup_advisor_rejected')`

type offerRow struct {
	ID                      int64     `db:"id"`
	InvestorID              int64     `db:"investor_id"`
	StartupID               int64     `db:"startup_id"`
	ListingID               int64     `db:"listing_id"`
	SourceOpportunityID     *int64    `db:"source_opportunity_id"`
	Amount                  string    `db:"amount"`
	EquityPercentage        string    `db:"equity_percentage"`
	Currency                string    `db:"currency"`
	Stage                   int       `db:"stage"`
	Status                  string    `db:"status"`
	InvestorAdvisorApproval string    `db:"investor_advisor_approval"`
	StartupAdvisorApproval  string    `db:"startup_advisor_approval"`
	ContactDetailsRevealed  bool      `db:"contact_details_revealed"`
	CreatedAt               time.Time `db:"created_at"`
	UpdatedAt               time.Time `db:"updated_at"`
}

type offerStore struct {
	conn db.DBTX
}

func newOfferStore(conn db.DBTX) OfferStore {
	return &offerStore{conn: conn}
}

func (s *offerStore) GetByID(ctx context.Context, id int64) (*model.Offer, error) {
	rows, err := s.conn.Query(ctx, `SELECT `+offerColumns+` FROM offers WHERE id = $1`, id)
	return collectOne(rows, err, toOfferModel)
}

func (s *offerStore) Create(ctx context.Context, offer *model.Offer) error {
	rows, err := s.conn.Query(ctx, `
INSERT INTO offers (
	id, investor_id, startup_id, listing_id, source_opportunity_id,
	amount, equity_percentage, currency,
	stage, status, investor_advisor_approval, startup_advisor_approval, contact_details_revealed
) VALUES ($1, $2, $3, $4, $5, $6::numeric, $7::numeric, $8, $9, $10, $11, $12, $13)
RETURNING `+offerColumns,
		offer.ID, offer.InvestorID, offer.StartupID, offer.ListingID, offer.SourceOpportunityID,
		offer.Amount.String(), offer.EquityPercentage.String(), offer.Currency,
		offer.Stage, string(offer.Status),
		string(offer.InvestorAdvisorApproval), string(offer.StartupAdvisorApproval),
		offer.ContactDetailsRevealed)
	created, err := collectOne(rows, err, toOfferModel)
	if err != nil {
		return mapWriteErr(err)
	}
	*offer = *created
	return nil
}

func (s *offerStore) FindOpenByPair(ctx context.Context, investorID, startupID int64) (*model.Offer, error) {
	rows, err := s.conn.Query(ctx, `
SELECT `+offerColumns+` FROM offers
WHERE investor_id = $1 AND startup_id = $2 AND status NOT IN `+rejectedOfferStatuses+`
LIMIT 1`, investorID, startupID)
	return collectOne(rows, err, toOfferModel)
}

func (s *offerStore) DeleteRejectedByPair(ctx context.Context, investorID, startupID int64) (int64, error) {
	tag, err := s.conn.Exec(ctx, `
DELETE FROM offers
WHERE investor_id = $1 AND startup_id = $2 AND status IN `+rejectedOfferStatuses,
		investorID, startupID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *offerStore) CompareAndSetGate(ctx context.Context, id int64, gate model.Gate, expected, next model.ApprovalStatus) (model.ApprovalStatus, error) {
	column, from, to, err := offerGateWrite(gate, expected, next)
	if err != nil {
		return "", err
	}
	tag, err := s.conn.Exec(ctx,
		fmt.Sprintf(`UPDATE offers SET %[1]s = $3, updated_at = now() WHERE id = $1 AND %[1]s = $2`, column),
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

func (s *offerStore) UpdateWorkflow(ctx context.Context, params UpdateOfferWorkflowParams) error {
	tag, err := s.conn.Exec(ctx, `
UPDATE offers
SET stage = $3, status = $4, investor_advisor_approval = $5, startup_advisor_approval = $6,
	contact_details_revealed = $7, updated_at = now()
WHERE id = $1 AND stage = $2`,
		params.ID, params.ExpectedStage, params.Stage, string(params.Status),
		string(params.InvestorAdvisorApproval), string(params.StartupAdvisorApproval),
		params.ContactDetailsRevealed)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrConditionFailed
	}
	return nil
}

func (s *offerStore) ListByInvestor(ctx context.Context, investorID int64) ([]model.Offer, error) {
	rows, err := s.conn.Query(ctx, `SELECT `+offerColumns+` FROM offers WHERE investor_id = $1 ORDER BY created_at DESC`, investorID)
	return collectAll(rows, err, toOfferModel)
}

func (s *offerStore) ListByStartup(ctx context.Context, startupID int64) ([]model.Offer, error) {
	rows, err := s.conn.Query(ctx, `SELECT `+offerColumns+` FROM offers WHERE startup_id = $1 ORDER BY created_at DESC`, startupID)
	return collectAll(rows, err, toOfferModel)
}

func (s *offerStore) ListByAdvisorCode(ctx context.Context, code string) ([]model.Offer, error) {
	rows, err := s.conn.Query(ctx, `
SELECT `+offerColumns+` FROM offers
WHERE investor_id IN (SELECT id FROM parties WHERE btrim(advisor_code) = $1)
   OR startup_id IN (SELECT id FROM parties WHERE btrim(advisor_code) = $1)
ORDER BY created_at DESC`, model.NormalizeAdvisorCode(code))
	return collectAll(rows, err, toOfferModel)
}

// offerGateWrite resolves the column a gate lives in. The startup's final
// gate is stored in the overall status.
func offerGateWrite(gate model.Gate, expected, next model.ApprovalStatus) (column, from, to string, err error) {
	switch gate {
	case model.GateInvestorAdvisor:
		return "investor_advisor_approval", string(expected), string(next), nil
	case model.GateStartupAdvisor:
		return "startup_advisor_approval", string(expected), string(next), nil
	case model.GateStartupFinal:
		fromStatus, ok1 := offerFinalStatus(expected)
		toStatus, ok2 := offerFinalStatus(next)
		if !ok1 || !ok2 {
			return "", "", "", fmt.Errorf("final gate transition %s -> %s: %w", expected, next, model.ErrUnknownValue)
		}
		return "status", string(fromStatus), string(toStatus), nil
	}
	return "", "", "", fmt.Errorf("offer gate %q: %w", gate, model.ErrUnknownValue)
}

func offerFinalStatus(s model.ApprovalStatus) (model.OfferStatus, bool) {
	switch s {
	case model.ApprovalPending:
		return model.OfferStatusPending, true
	case model.ApprovalApproved:
		return model.OfferStatusAccepted, true
	case model.ApprovalRejected:
		return model.OfferStatusRejected, true
	}
	return "", false
}

func toOfferModel(row offerRow) (*model.Offer, error) {
	status, err := model.ParseOfferStatus(row.Status)
	if err != nil {
		return nil, err
	}
	investorAdvisor, err := model.ParseApprovalStatus(row.InvestorAdvisorApproval)
	if err != nil {
		return nil, err
	}
	startupAdvisor, err := model.ParseApprovalStatus(row.StartupAdvisorApproval)
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
	return &model.Offer{
		ID:                      row.ID,
		InvestorID:              row.InvestorID,
		StartupID:               row.StartupID,
		ListingID:               row.ListingID,
		SourceOpportunityID:     row.SourceOpportunityID,
		Amount:                  amount,
		EquityPercentage:        equity,
		Currency:                row.Currency,
		Stage:                   row.Stage,
		Status:                  status,
		InvestorAdvisorApproval: investorAdvisor,
		StartupAdvisorApproval:  startupAdvisor,
		ContactDetailsRevealed:  row.ContactDetailsRevealed,
		CreatedAt:               row.CreatedAt,
		UpdatedAt:               row.UpdatedAt,
	}, nil
}
