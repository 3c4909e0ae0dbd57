package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// NotFound handles requests for routes that do not exist
func NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"error": "not found",
		"path":  c.Request.URL.Path,
	})
}
