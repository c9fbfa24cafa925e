package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/solace-backend/internal/http/response"
	"github.com/yungbote/solace-backend/internal/services"
)

type VentHandler struct {
	vents services.VentService
}

func NewVentHandler(vents services.VentService) *VentHandler {
	return &VentHandler{vents: vents}
}

// POST /api/vents
func (h *VentHandler) CreateVent(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	var req services.CreateVentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", errors.New("body must be a JSON object"))
		return
	}
	vent, err := h.vents.CreateVent(c.Request.Context(), userID, req)
	if err != nil {
		respondMatchingError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"vent": vent})
}

// GET /api/vents?kind=&limit=
func (h *VentHandler) ListMyVents(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	vents, err := h.vents.ListMyVents(c.Request.Context(), userID, c.Query("kind"), limit)
	if err != nil {
		respondMatchingError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"vents": vents})
}

// DELETE /api/vents/:id
func (h *VentHandler) DeleteVent(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	ventID, ok := pathID(c, "invalid_vent_id")
	if !ok {
		return
	}
	if err := h.vents.DeleteVent(c.Request.Context(), userID, ventID); err != nil {
		respondMatchingError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
