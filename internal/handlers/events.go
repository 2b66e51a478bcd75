package handlers

import (
	"github.com/dimitrije/jobboard-api/internal/events"
	"github.com/dimitrije/jobboard-api/internal/middleware"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
)

// EventsHandler streams the caller's session changes over SSE.
type EventsHandler struct {
	hub     HubInterface
	metrics AuthMetrics
}

func NewEventsHandler(hub HubInterface, metrics AuthMetrics) *EventsHandler {
	return &EventsHandler{hub: hub, metrics: metrics}
}

func (h *EventsHandler) Stream(c *drift.Context) {
	identityID := middleware.GetIdentityID(c)
	if identityID == uuid.Nil {
		unauthorized(c, "not authenticated")
		return
	}

	sseCtx := c.SSE()

	client := events.NewClient(identityID)
	h.hub.Register(client)
	defer h.hub.Unregister(client)

	h.metrics.SSEConnected()
	defer h.metrics.SSEDisconnected()

	if err := sseCtx.SendJSON(map[string]string{
		"type":      "connected",
		"client_id": client.ID,
	}, "system", ""); err != nil {
		return
	}

	done := c.Request.Context().Done()
	for {
		select {
		case msg, ok := <-client.Send:
			if !ok {
				return
			}
			if err := sseCtx.Send(string(msg), "session", ""); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
