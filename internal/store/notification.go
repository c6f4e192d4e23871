package store

import (
	"context"
	"time"

	"dealroom.app/broker/core/db"
	"dealroom.app/broker/internal/model"
)

const notificationColumns = `id, recipient_id, item_kind, item_id, title, body, read_at, created_at`

type notificationRow struct {
	ID          int64      `db:"id"`
	RecipientID int64      `db:"recipient_id"`
	ItemKind    string     `db:"item_kind"`
	ItemID      int64      `db:"item_id"`
	Title       string     `db:"title"`
	Body        string     `db:"body"`
	ReadAt      *time.Time `db:"read_at"`
	CreatedAt   time.Time  `db:"created_at"`
}

type notificationStore struct {
	conn db.DBTX
}

func newNotificationStore(conn db.DBTX) NotificationStore {
	return &notificationStore{conn: conn}
}

func (s *notificationStore) Create(ctx context.Context, n *model.Notification) error {
	rows, err := s.conn.Query(ctx, `
INSERT INTO notifications (id, recipient_id, item_kind, item_id, title, body)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING `+notificationColumns,
		n.ID, n.RecipientID, string(n.ItemKind), n.ItemID, n.Title, n.Body)
	created, err := collectOne(rows, err, toNotificationModel)
	if err != nil {
		return mapWriteErr(err)
	}
	*n = *created
	return nil
}

func (s *notificationStore) ListByRecipient(ctx context.Context, recipientID int64, unreadOnly bool, limit int32) ([]model.Notification, error) {
	rows, err := s.conn.Query(ctx, `
SELECT `+notificationColumns+` FROM notifications
WHERE recipient_id = $1 AND (NOT $2 OR read_at IS NULL)
ORDER BY created_at DESC
LIMIT $3`, recipientID, unreadOnly, limit)
	return collectAll(rows, err, toNotificationModel)
}

func (s *notificationStore) MarkRead(ctx context.Context, id, recipientID int64) error {
	tag, err := s.conn.Exec(ctx, `
UPDATE notifications SET read_at = COALESCE(read_at, now())
WHERE id = $1 AND recipient_id = $2`, id, recipientID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func toNotificationModel(row notificationRow) (*model.Notification, error) {
	kind, err := model.ParseItemKind(row.ItemKind)
	if err != nil {
		return nil, err
	}
	return &model.Notification{
		ID:          row.ID,
		RecipientID: row.RecipientID,
		ItemKind:    kind,
		ItemID:      row.ItemID,
		Title:       row.Title,
		Body:        row.Body,
		ReadAt:      row.ReadAt,
		CreatedAt:   row.CreatedAt,
	}, nil
}
