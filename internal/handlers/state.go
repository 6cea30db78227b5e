package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wellnessgrid/backend/internal/appstate"
)

// StateHandler exposes the per-user application state snapshot
type StateHandler struct {
	store *appstate.Store
}

// NewStateHandler creates a new state handler
func NewStateHandler(store *appstate.Store) *StateHandler {
	return &StateHandler{store: store}
}

// GetState returns the current snapshot
// GET /api/v1/state
func (h *StateHandler) GetState(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.store.Snapshot(userID))
}

// GetEvents returns the retained event log, oldest first
// GET /api/v1/state/events
func (h *StateHandler) GetEvents(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	events := h.store.Events(userID)
	if events == nil {
		events = []appstate.Event{}
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}
