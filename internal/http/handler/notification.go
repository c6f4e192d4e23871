package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dealroom.app/broker/internal/http/dto"
	"dealroom.app/broker/internal/service"
)

type NotificationHandler struct {
	notificationService service.NotificationService
}

func NewNotificationHandler(notificationService service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

func (h *NotificationHandler) List(c *gin.Context) {
	party, ok := actingParty(c)
	if !ok {
		return
	}
	unreadOnly := c.Query("unread") == "true"

	ns, err := h.notificationService.List(c.Request.Context(), party.ID, unreadOnly)
	if err != nil {
		respondError(c, err, "list notifications")
		return
	}

	c.JSON(http.StatusOK, gin.H{"notifications": dto.ToNotificationResponses(ns)})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	party, ok := actingParty(c)
	if !ok {
		return
	}
	notificationID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.notificationService.MarkRead(c.Request.Context(), notificationID, party.ID); err != nil {
		respondError(c, err, "mark notification read")
		return
	}

	c.Status(http.StatusNoContent)
}
