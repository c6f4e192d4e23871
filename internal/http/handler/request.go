package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dealroom.app/broker/common/id"
	"dealroom.app/broker/internal/http/dto"
	"dealroom.app/broker/internal/http/middleware"
	"dealroom.app/broker/internal/model"
)

func actingParty(c *gin.Context) (*model.Party, bool) {
	p, ok := middleware.Party(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return nil, false
	}
	return p, true
}

func pathID(c *gin.Context, name string) (int64, bool) {
	v, err := id.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return v, true
}

// viewerRole picks the perspective for a read. Without ?role= the party's own
// type is used; lead_investor is only open to investors.
func viewerRole(c *gin.Context, p *model.Party) (model.Role, bool) {
	raw := c.Query("role")
	if raw == "" {
		return model.Role(p.Type), true
	}
	role, err := model.ParseRole(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role"})
		return "", false
	}

	var allowed bool
	switch role {
	case model.RoleInvestor, model.RoleLeadInvestor:
		allowed = p.Type == model.PartyTypeInvestor
	case model.RoleStartup:
		allowed = p.Type == model.PartyTypeStartup
	case model.RoleAdvisor:
		allowed = p.Type == model.PartyTypeAdvisor
	}
	if !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "role " + raw + " is not available to this party"})
		return "", false
	}
	return role, true
}

// bindDecision reads the decision body for the item named by the :id path
// param.
func bindDecision(c *gin.Context) (int64, model.Gate, model.Decision, bool) {
	itemID, ok := pathID(c, "id")
	if !ok {
		return 0, "", "", false
	}

	var req dto.DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return 0, "", "", false
	}
	gate, err := model.ParseGate(req.Gate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown gate " + req.Gate})
		return 0, "", "", false
	}
	d, err := model.ParseDecision(req.Decision)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "decision must be approve or reject"})
		return 0, "", "", false
	}
	return itemID, gate, d, true
}
