package store

import (
	"context"
	"time"

	"dealroom.app/broker/core/db"
	"dealroom.app/broker/internal/model"
)

const partyColumns = `id, type, display_name, email, advisor_code, created_at`

type partyRow struct {
	ID          int64     `db:"id"`
	Type        string    `db:"type"`
	DisplayName string    `db:"display_name"`
	Email       string    `db:"email"`
	AdvisorCode *string   `db:"advisor_code"`
	CreatedAt   time.Time `db:"created_at"`
}

type partyStore struct {
	conn db.DBTX
}

func newPartyStore(conn db.DBTX) PartyStore {
	return &partyStore{conn: conn}
}

func (s *partyStore) GetByID(ctx context.Context, id int64) (*model.Party, error) {
	rows, err := s.conn.Query(ctx, `SELECT `+partyColumns+` FROM parties WHERE id = $1`, id)
	return collectOne(rows, err, toPartyModel)
}

func (s *partyStore) GetByEmail(ctx context.Context, email string) (*model.Party, error) {
	rows, err := s.conn.Query(ctx, `SELECT `+partyColumns+` FROM parties WHERE email = $1`, email)
	return collectOne(rows, err, toPartyModel)
}

func (s *partyStore) Create(ctx context.Context, party *model.Party) error {
	rows, err := s.conn.Query(ctx, `
INSERT INTO parties (id, type, display_name, email, advisor_code)
VALUES ($1, $2, $3, $4, $5)
RETURNING `+partyColumns,
		party.ID, string(party.Type), party.DisplayName, party.Email, party.AdvisorCode)
	created, err := collectOne(rows, err, toPartyModel)
	if err != nil {
		return mapWriteErr(err)
	}
	*party = *created
	return nil
}

// ListByAdvisorCode compares trimmed codes so padded values still match.
func (s *partyStore) ListByAdvisorCode(ctx context.Context, typ model.PartyType, code string) ([]model.Party, error) {
	rows, err := s.conn.Query(ctx, `
SELECT `+partyColumns+` FROM parties
WHERE type = $1 AND btrim(advisor_code) = $2
ORDER BY id`, string(typ), model.NormalizeAdvisorCode(code))
	return collectAll(rows, err, toPartyModel)
}

func toPartyModel(row partyRow) (*model.Party, error) {
	typ, err := model.ParsePartyType(row.Type)
	if err != nil {
		return nil, err
	}
	return &model.Party{
		ID:          row.ID,
		Type:        typ,
		DisplayName: row.DisplayName,
		Email:       row.Email,
		AdvisorCode: row.AdvisorCode,
		CreatedAt:   row.CreatedAt,
	}, nil
}
