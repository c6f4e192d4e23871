package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"dealroom.app/broker/internal/lifecycle"
)

// respondError writes the status for a lifecycle error. Anything else is
// logged and reported as a 500 with a generic message.
func respondError(c *gin.Context, err error, action string) {
	var lerr *lifecycle.Error
	if !errors.As(err, &lerr) {
		slog.ErrorContext(c.Request.Context(), "failed to "+action, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to " + action})
		return
	}

	body := gin.H{"error": lerr.Message, "code": string(lerr.Code)}
	if lerr.ItemID != 0 {
		body["item_id"] = strconv.FormatInt(lerr.ItemID, 10)
	}

	switch lerr.Code {
	case lifecycle.CodeConflict:
		c.JSON(http.StatusConflict, body)
	case lifecycle.CodeAuthorization:
		c.JSON(http.StatusForbidden, body)
	case lifecycle.CodeNotFound:
		c.JSON(http.StatusNotFound, body)
	case lifecycle.CodeInconsistentState:
		slog.WarnContext(c.Request.Context(), "item in inconsistent state", "error", err)
		c.JSON(http.StatusUnprocessableEntity, body)
	case lifecycle.CodeInvalid:
		c.JSON(http.StatusBadRequest, body)
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to " + action})
	}
}
