package handlers

import (
	"net/http"

	"quizfunnel/api/diagnostic"

	"github.com/gin-gonic/gin"
)

type diagnosticRequest struct {
	Answers []diagnostic.Answer `json:"answers" binding:"required"`
}

// Analyze scores answers without storing anything.
func Analyze(c *gin.Context) {
	var req diagnosticRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	c.JSON(http.StatusOK, diagnostic.Analyze(req.Answers))
}

func Questions(c *gin.Context) {
	c.JSON(http.StatusOK, diagnostic.Questions())
}
