package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/solace-backend/internal/http/response"
	"github.com/yungbote/solace-backend/internal/modules/matching"
)

type Sweeper interface {
	RunForAllUsers(ctx context.Context) (matching.SweepReport, error)
}

type AdminHandler struct {
	sweeper Sweeper
}

func NewAdminHandler(sweeper Sweeper) *AdminHandler {
	return &AdminHandler{sweeper: sweeper}
}

// POST /api/admin/matches/sweep runs a full sweep and returns its report.
// Per-user failures are part of the report, not an error status.
func (h *AdminHandler) SweepMatches(c *gin.Context) {
	report, err := h.sweeper.RunForAllUsers(c.Request.Context())
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "sweep_failed", err)
		return
	}
	status := http.StatusOK
	if report.Skipped {
		status = http.StatusAccepted
	}
	c.JSON(status, gin.H{"report": report})
}
