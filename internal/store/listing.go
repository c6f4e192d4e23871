package store

import (
	"context"
	"time"

	"dealroom.app/broker/core/db"
	"dealroom.app/broker/internal/model"
)

const listingColumns = `id, target_id, kind, title, created_at`

type listingRow struct {
	ID        int64     `db:"id"`
	TargetID  int64     `db:"target_id"`
	Kind      string    `db:"kind"`
	Title     string    `db:"title"`
	CreatedAt time.Time `db:"created_at"`
}

type listingStore struct {
	conn db.DBTX
}

func newListingStore(conn db.DBTX) ListingStore {
	return &listingStore{conn: conn}
}

func (s *listingStore) GetByID(ctx context.Context, id int64) (*model.Listing, error) {
	rows, err := s.conn.Query(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = $1`, id)
	return collectOne(rows, err, toListingModel)
}

// FindOrCreate keeps the existing row on conflict; the no-op update makes
// RETURNING yield it.
func (s *listingStore) FindOrCreate(ctx context.Context, id, targetID int64, kind model.ListingKind, defaults model.ListingDefaults) (*model.Listing, error) {
	rows, err := s.conn.Query(ctx, `
INSERT INTO listings (id, target_id, kind, title)
VALUES ($1, $2, $3, $4)
ON CONFLICT (target_id, kind) DO UPDATE SET target_id = EXCLUDED.target_id
RETURNING `+listingColumns,
		id, targetID, string(kind), defaults.Title)
	return collectOne(rows, err, toListingModel)
}

func toListingModel(row listingRow) (*model.Listing, error) {
	kind, err := model.ParseListingKind(row.Kind)
	if err != nil {
		return nil, err
	}
	return &model.Listing{
		ID:        row.ID,
		TargetID:  row.TargetID,
		Kind:      kind,
		Title:     row.Title,
		CreatedAt: row.CreatedAt,
	}, nil
}
