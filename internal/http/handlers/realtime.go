package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/solace-backend/internal/platform/logger"
	"github.com/yungbote/solace-backend/internal/realtime"
)

type RealtimeHandler struct {
	log *logger.Logger
	hub *realtime.SSEHub
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.SSEHub) *RealtimeHandler {
	return &RealtimeHandler{log: log.With("handler", "RealtimeHandler"), hub: hub}
}

// SSEStream subscribes the connection to the caller's user channel, where
// match notifications are published, and blocks until the client goes away.
// Several tabs may hold streams for the same user at once.
func (h *RealtimeHandler) SSEStream(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	client := h.hub.NewSSEClient(userID)
	h.hub.AddChannel(client, userID.String())

	h.log.Debug("SSE stream open", "user_id", userID, "sse_client_id", client.ID)
	h.hub.ServeHTTP(c.Writer, c.Request, client)
	h.hub.CloseClient(client)
}
