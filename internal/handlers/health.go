package handlers

import (
	"net/http"
	"time"

	"github.com/alimgiray/devpulse/internal/models"
	"github.com/gin-gonic/gin"
)

// RefreshStatus reports the outcome of the most recent refresh batch
type RefreshStatus interface {
	LastRun() (*models.RefreshSummary, error)
}

type HealthHandler struct {
	status RefreshStatus
}

// NewHealthHandler creates a health handler. status may be nil when no
// background refresh is running.
func NewHealthHandler(status RefreshStatus) *HealthHandler {
	return &HealthHandler{status: status}
}

// Health reports liveness and, when available, the last refresh batch
func (h *HealthHandler) Health(c *gin.Context) {
	response := gin.H{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	}

	if h.status != nil {
		summary, err := h.status.LastRun()
		if summary != nil {
			response["last_refresh"] = summary
		}
		if err != nil {
			response["last_refresh_error"] = err.Error()
		}
	}

	c.JSON(http.StatusOK, response)
}
