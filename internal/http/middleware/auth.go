package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"dealroom.app/broker/common/logger"
	"dealroom.app/broker/internal/model"
	"dealroom.app/broker/internal/service"
)

const partyKey = "broker.party"

// Authenticator resolves a bearer token to the acting party.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*model.Party, error)
}

// RequireAuth rejects requests without a valid bearer token and stores the
// acting party on the gin context.
func RequireAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		ctx := c.Request.Context()
		party, err := auth.Authenticate(ctx, strings.TrimSpace(token))
		if err != nil {
			switch {
			case errors.Is(err, service.ErrTokenExpired):
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token expired"})
			case errors.Is(err, service.ErrInvalidToken), errors.Is(err, service.ErrPartyNotFound):
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			default:
				slog.ErrorContext(ctx, "failed to authenticate request", "error", err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to authenticate"})
			}
			return
		}

		c.Request = c.Request.WithContext(logger.WithLogFields(ctx, logger.LogFields{PartyID: logger.Ptr(party.ID)}))
		c.Set(partyKey, party)
		c.Next()
	}
}

// Party returns the party stored by RequireAuth.
func Party(c *gin.Context) (*model.Party, bool) {
	v, ok := c.Get(partyKey)
	if !ok {
		return nil, false
	}
	p, ok := v.(*model.Party)
	return p, ok && p != nil
}

// SetParty stores p as the acting party. Handler tests use it in place of a
// real token.
func SetParty(c *gin.Context, p *model.Party) {
	c.Set(partyKey, p)
}
