package store

import (
	"context"
	"fmt"
	"time"

	"dealroom.app/broker/core/db"
	"dealroom.app/broker/internal/model"
)

const opportunityColumns = `id, startup_id, lead_investor_id, listing_id,
	total_ask::text AS total_ask, equity_percentage::text AS equity_percentage,
	min_ticket::text AS min_ticket, max_ticket::text AS max_ticket,
	currency, description, stage, status,
	lead_investor_advisor_approval, startup_advisor_approval, startup_approval_status,
	created_at, updated_at`

type opportunityRow struct {
	ID                          int64     `db:"id"`
	StartupID                   int64     `db:"startup_id"`
	LeadInvestorID              int64     `db:"lead_investor_id"`
	ListingID                   int64     `db:"listing_id"`
	TotalAsk                    string    `db:"total_ask"`
	EquityPercentage            string    `db:"equity_percentage"`
	MinTicket                   string    `db:"min_ticket"`
	MaxTicket                   string    `db:"max_ticket"`
	Currency                    string    `db:"currency"`
	Description                 string    `db:"description"`
	Stage                       int       `db:"stage"`
	Status                      string    `db:"status"`
	LeadInvestorAdvisorApproval string    `db:"lead_investor_advisor_approval"`
	StartupAdvisorApproval      string    `db:"startup_advisor_approval"`
	StartupApprovalStatus       string    `db:"startup_approval_status"`
	CreatedAt                   time.Time `db:"created_at"`
	UpdatedAt                   time.Time `db:"updated_at"`
}

type opportunityStore struct {
	conn db.DBTX
}

func newOpportunityStore(conn db.DBTX) OpportunityStore {
	return &opportunityStore{conn: conn}
}

func (s *opportunityStore) GetByID(ctx context.Context, id int64) (*model.CoInvestmentOpportunity, error) {
	rows, err := s.conn.Query(ctx, `SELECT `+opportunityColumns+` FROM co_investment_opportunities WHERE id = $1`, id)
	return collectOne(rows, err, toOpportunityModel)
}

func (s *opportunityStore) GetForUpdate(ctx context.Context, id int64) (*model.CoInvestmentOpportunity, error) {
	rows, err := s.conn.Query(ctx, `SELECT `+opportunityColumns+` FROM co_investment_opportunities WHERE id = $1 FOR UPDATE`, id)
	return collectOne(rows, err, toOpportunityModel)
}

func (s *opportunityStore) Create(ctx context.Context, opp *model.CoInvestmentOpportunity) error {
	rows, err := s.conn.Query(ctx, `
INSERT INTO co_investment_opportunities (
	id, startup_id, lead_investor_id, listing_id,
	total_ask, equity_percentage, min_ticket, max_ticket, currency, description,
	stage, status, lead_investor_advisor_approval, startup_advisor_approval, startup_approval_status
) VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7::numeric, $8::numeric, $9, $10, $11, $12, $13, $14, $15)
RETURNING `+opportunityColumns,
		opp.ID, opp.StartupID, opp.LeadInvestorID, opp.ListingID,
		opp.TotalAsk.String(), opp.EquityPercentage.String(), opp.MinTicket.String(), opp.MaxTicket.String(),
		opp.Currency, opp.Description,
		opp.Stage, string(opp.Status),
		string(opp.LeadInvestorAdvisorApproval), string(opp.StartupAdvisorApproval), string(opp.StartupApprovalStatus))
	created, err := collectOne(rows, err, toOpportunityModel)
	if err != nil {
		return mapWriteErr(err)
	}
	*opp = *created
	return nil
}

func (s *opportunityStore) FindActiveByPair(ctx context.Context, startupID, leadInvestorID int64) (*model.CoInvestmentOpportunity, error) {
	rows, err := s.conn.Query(ctx, `
SELECT `+opportunityColumns+` FROM co_investment_opportunities
WHERE startup_id = $1 AND lead_investor_id = $2 AND status = 'active'
LIMIT 1`, startupID, leadInvestorID)
	return collectOne(rows, err, toOpportunityModel)
}

// CompareAndSetGate on the final gate additionally requires the opportunity
// to have reached the startup, since startup_approval_status starts out pending.
func (s *opportunityStore) CompareAndSetGate(ctx context.Context, id int64, gate model.Gate, expected, next model.ApprovalStatus) (model.ApprovalStatus, error) {
	var column, guard string
	switch gate {
	case model.GateInvestorAdvisor:
		column = "lead_investor_advisor_approval"
	case model.GateStartupAdvisor:
		column = "startup_advisor_approval"
	case model.GateStartupFinal:
		if expected == model.ApprovalNotRequired || next == model.ApprovalNotRequired {
			return "", fmt.Errorf("final gate transition %s -> %s: %w", expected, next, model.ErrUnknownValue)
		}
		column = "startup_approval_status"
		guard = " AND stage >= 3"
	default:
		return "", fmt.Errorf("opportunity gate %q: %w", gate, model.ErrUnknownValue)
	}

	tag, err := s.conn.Exec(ctx,
		fmt.Sprintf(`UPDATE co_investment_opportunities SET %[1]s = $3, updated_at = now() WHERE id = $1 AND %[1]s = $2%[2]s`, column, guard),
		id, string(expected), string(next))
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

func (s *opportunityStore) UpdateWorkflow(ctx context.Context, params UpdateOpportunityWorkflowParams) error {
	tag, err := s.conn.Exec(ctx, `
UPDATE co_investment_opportunities
SET stage = $3, status = $4, lead_investor_advisor_approval = $5, startup_advisor_approval = $6,
	startup_approval_status = $7, updated_at = now()
WHERE id = $1 AND stage = $2`,
		params.ID, params.ExpectedStage, params.Stage, string(params.Status),
		string(params.LeadInvestorAdvisorApproval), string(params.StartupAdvisorApproval),
		string(params.StartupApprovalStatus))
	if err != nil {
		return mapWriteErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrConditionFailed
	}
	return nil
}

func (s *opportunityStore) SetStatus(ctx context.Context, id int64, status model.OpportunityStatus) error {
	tag, err := s.conn.Exec(ctx,
		`UPDATE co_investment_opportunities SET status = $2, updated_at = now() WHERE id = $1`,
		id, string(status))
	if err != nil {
		return mapWriteErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *opportunityStore) ListByLeadInvestor(ctx context.Context, leadInvestorID int64) ([]model.CoInvestmentOpportunity, error) {
	rows, err := s.conn.Query(ctx, `SELECT `+opportunityColumns+` FROM co_investment_opportunities WHERE lead_investor_id = $1 ORDER BY created_at DESC`, leadInvestorID)
	return collectAll(rows, err, toOpportunityModel)
}

func (s *opportunityStore) ListByStartup(ctx context.Context, startupID int64) ([]model.CoInvestmentOpportunity, error) {
	rows, err := s.conn.Query(ctx, `SELECT `+opportunityColumns+` FROM co_investment_opportunities WHERE startup_id = $1 ORDER BY created_at DESC`, startupID)
	return collectAll(rows, err, toOpportunityModel)
}

func (s *opportunityStore) ListByAdvisorCode(ctx context.Context, code string) ([]model.CoInvestmentOpportunity, error) {
	rows, err := s.conn.Query(ctx, `
SELECT `+opportunityColumns+` FROM co_investment_opportunities
WHERE lead_investor_id IN (SELECT id FROM parties WHERE btrim(advisor_code) = $1)
   OR startup_id IN (SELECT id FROM parties WHERE btrim(advisor_code) = $1)
ORDER BY created_at DESC`, model.NormalizeAdvisorCode(code))
	return collectAll(rows, err, toOpportunityModel)
}

// ListOpen returns opportunities accepting co-investment tickets.
func (s *opportunityStore) ListOpen(ctx context.Context) ([]model.CoInvestmentOpportunity, error) {
	rows, err := s.conn.Query(ctx, `
SELECT `+opportunityColumns+` FROM co_investment_opportunities
WHERE status = 'active' AND startup_approval_status = 'approved'
ORDER BY created_at DESC`)
	return collectAll(rows, err, toOpportunityModel)
}

func toOpportunityModel(row opportunityRow) (*model.CoInvestmentOpportunity, error) {
	status, err := model.ParseOpportunityStatus(row.Status)
	if err != nil {
		return nil, err
	}
	leadAdvisor, err := model.ParseApprovalStatus(row.LeadInvestorAdvisorApproval)
	if err != nil {
		return nil, err
	}
	startupAdvisor, err := model.ParseApprovalStatus(row.StartupAdvisorApproval)
	if err != nil {
		return nil, err
	}
	startupApproval, err := model.ParseStartupApprovalStatus(row.StartupApprovalStatus)
	if err != nil {
		return nil, err
	}

	opp := &model.CoInvestmentOpportunity{
		ID:                          row.ID,
		StartupID:                   row.StartupID,
		LeadInvestorID:              row.LeadInvestorID,
		ListingID:                   row.ListingID,
		Currency:                    row.Currency,
		Description:                 row.Description,
		Stage:                       row.Stage,
		Status:                      status,
		LeadInvestorAdvisorApproval: leadAdvisor,
		StartupAdvisorApproval:      startupAdvisor,
		StartupApprovalStatus:       startupApproval,
		CreatedAt:                   row.CreatedAt,
		UpdatedAt:                   row.UpdatedAt,
	}
	if opp.TotalAsk, err = parseDecimal("total_ask", row.TotalAsk); err != nil {
		return nil, err
	}
	if opp.EquityPercentage, err = parseDecimal("equity_percentage", row.EquityPercentage); err != nil {
		return nil, err
	}
	if opp.MinTicket, err = parseDecimal("min_ticket", row.MinTicket); err != nil {
		return nil, err
	}
	if opp.MaxTicket, err = parseDecimal("max_ticket", row.MaxTicket); err != nil {
		return nil, err
	}
	return opp, nil
}
