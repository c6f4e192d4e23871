package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dealroom.app/broker/internal/http/dto"
	"dealroom.app/broker/internal/model"
	"dealroom.app/broker/internal/service"
)

type PartyHandler struct {
	partyService service.PartyService
	authService  service.AuthService
}

func NewPartyHandler(partyService service.PartyService, authService service.AuthService) *PartyHandler {
	return &PartyHandler{
		partyService: partyService,
		authService:  authService,
	}
}

// Register adds a party to the directory and returns a bearer token for it.
func (h *PartyHandler) Register(c *gin.Context) {
	var req dto.RegisterPartyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	typ, err := model.ParsePartyType(req.Type)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid party type"})
		return
	}

	ctx := c.Request.Context()
	party, err := h.partyService.Register(ctx, service.RegisterPartyInput{
		Type:        typ,
		DisplayName: req.DisplayName,
		Email:       req.Email,
		AdvisorCode: req.AdvisorCode,
	})
	if err != nil {
		respondError(c, err, "register party")
		return
	}

	token, expiresAt, err := h.authService.IssueToken(ctx, party.ID)
	if err != nil {
		respondError(c, err, "issue token")
		return
	}

	c.JSON(http.StatusCreated, dto.RegisterPartyResponse{
		Party:         dto.ToPartyResponse(party),
		TokenResponse: dto.TokenResponse{Token: token, ExpiresAt: expiresAt},
	})
}

func (h *PartyHandler) Me(c *gin.Context) {
	party, ok := actingParty(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, dto.ToPartyResponse(party))
}

// RefreshToken issues a fresh token for the already authenticated party.
func (h *PartyHandler) RefreshToken(c *gin.Context) {
	party, ok := actingParty(c)
	if !ok {
		return
	}
	token, expiresAt, err := h.authService.IssueToken(c.Request.Context(), party.ID)
	if err != nil {
		respondError(c, err, "issue token")
		return
	}
	c.JSON(http.StatusOK, dto.TokenResponse{Token: token, ExpiresAt: expiresAt})
}
