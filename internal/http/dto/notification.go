package dto

import (
	"time"

	"dealroom.app/broker/internal/model"
)

type NotificationResponse struct {
	ID        int64      `json:"id,string"`
	ItemKind  string     `json:"item_kind"`
	ItemID    int64      `json:"item_id,string"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func ToNotificationResponses(ns []model.Notification) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(ns))
	for _, n := range ns {
		out = append(out, NotificationResponse{
			ID:        n.ID,
			ItemKind:  string(n.ItemKind),
			ItemID:    n.ItemID,
			Title:     n.Title,
			Body:      n.Body,
			ReadAt:    n.ReadAt,
			CreatedAt: n.CreatedAt,
		})
	}
	return out
}
