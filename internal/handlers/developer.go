package handlers

import (
	"net/http"

	"github.com/alimgiray/devpulse/internal/models"
	"github.com/alimgiray/devpulse/pkg/logger"
	"github.com/gin-gonic/gin"
)

// Reporter is the read path the developer endpoints serve from
type Reporter interface {
	GetDevelopersWithScores() ([]models.DeveloperScore, error)
	GetTiers() (models.Tiers, error)
}

type DeveloperHandler struct {
	reporter Reporter
}

func NewDeveloperHandler(reporter Reporter) *DeveloperHandler {
	return &DeveloperHandler{reporter: reporter}
}

// ListDevelopers returns every developer's full name and score in stored order
func (h *DeveloperHandler) ListDevelopers(c *gin.Context) {
	developers, err := h.reporter.GetDevelopersWithScores()
	if err != nil {
		logger.WithError(err).Error("Failed to load developers")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"developers": developers,
		"count":      len(developers),
	})
}

// Tiers returns the developer population split into performance tiers
func (h *DeveloperHandler) Tiers(c *gin.Context) {
	tiers, err := h.reporter.GetTiers()
	if err != nil {
		logger.WithError(err).Error("Failed to categorize developers")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"tiers": tiers.Map()})
}
