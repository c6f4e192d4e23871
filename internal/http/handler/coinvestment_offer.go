package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dealroom.app/broker/internal/http/dto"
	"dealroom.app/broker/internal/service"
)

type CoInvestmentOfferHandler struct {
	coInvestmentService service.CoInvestmentOfferService
}

func NewCoInvestmentOfferHandler(coInvestmentService service.CoInvestmentOfferService) *CoInvestmentOfferHandler {
	return &CoInvestmentOfferHandler{coInvestmentService: coInvestmentService}
}

func (h *CoInvestmentOfferHandler) List(c *gin.Context) {
	party, ok := actingParty(c)
	if !ok {
		return
	}
	role, ok := viewerRole(c, party)
	if !ok {
		return
	}

	offers, err := h.coInvestmentService.ListVisible(c.Request.Context(), role, party.ID)
	if err != nil {
		respondError(c, err, "list co-investment offers")
		return
	}

	c.JSON(http.StatusOK, gin.H{"offers": dto.ToCoInvestmentOfferResponses(offers)})
}

func (h *CoInvestmentOfferHandler) Get(c *gin.Context) {
	party, ok := actingParty(c)
	if !ok {
		return
	}
	offerID, ok := pathID(c, "id")
	if !ok {
		return
	}
	role, ok := viewerRole(c, party)
	if !ok {
		return
	}

	offer, err := h.coInvestmentService.Get(c.Request.Context(), offerID, role, party.ID)
	if err != nil {
		respondError(c, err, "get co-investment offer")
		return
	}

	c.JSON(http.StatusOK, dto.ToCoInvestmentOfferResponse(offer))
}

func (h *CoInvestmentOfferHandler) Decide(c *gin.Context) {
	party, ok := actingParty(c)
	if !ok {
		return
	}
	offerID, gate, decision, ok := bindDecision(c)
	if !ok {
		return
	}

	offer, err := h.coInvestmentService.Decide(c.Request.Context(), service.DecisionInput{
		ItemID:   offerID,
		Gate:     gate,
		Decision: decision,
		ActorID:  party.ID,
	})
	if err != nil {
		respondError(c, err, "decide co-investment offer")
		return
	}

	c.JSON(http.StatusOK, dto.ToCoInvestmentOfferResponse(offer))
}
