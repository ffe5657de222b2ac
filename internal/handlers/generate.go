package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vivekr077/CodePilot/internal/middleware"
	"github.com/vivekr077/CodePilot/internal/models"
	"github.com/vivekr077/CodePilot/internal/service"
)

type generateRequest struct {
	// not "required": an empty prompt has its own error code
	Prompt   string `json:"prompt"`
	Language string `json:"language" binding:"required"`
}

type generationResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Prompt    string    `json:"prompt"`
	Language  string    `json:"language"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"createdAt"`
}

func newGenerationResponse(g models.Generation) generationResponse {
	return generationResponse{
		ID:        g.ID,
		UserID:    g.UserID,
		Prompt:    g.Prompt,
		Language:  g.Language,
		Code:      g.Code,
		CreatedAt: g.CreatedAt,
	}
}

func (h HandlerSet) Generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	gen, err := h.generations.Generate(c.Request.Context(), service.GenerateInput{
		UserID:   middleware.UserID(c),
		Prompt:   req.Prompt,
		Language: req.Language,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   true,
		"msg":      "code successfully generated",
		"response": gen.Code,
		"data":     newGenerationResponse(gen),
	})
}
