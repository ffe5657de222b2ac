package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/vivekr077/CodePilot/internal/middleware"
)

func (h HandlerSet) History(c *gin.Context) {
	page, err := queryInt(c, "page", 1)
	if err != nil {
		h.badRequest(c, err)
		return
	}
	limit, err := queryInt(c, "limit", h.cfg.History.DefaultLimit)
	if err != nil {
		h.badRequest(c, err)
		return
	}

	result, err := h.history.ListPage(c.Request.Context(), middleware.UserID(c), page, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}

	records := make([]generationResponse, 0, len(result.Records))
	for _, g := range result.Records {
		records = append(records, newGenerationResponse(g))
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     true,
		"records":    records,
		"totalCount": result.TotalCount,
		"totalPages": result.TotalPages,
		"page":       result.Page,
		"limit":      result.Limit,
	})
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	return v, nil
}
