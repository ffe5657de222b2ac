package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vivekr077/CodePilot/internal/middleware"
	"github.com/vivekr077/CodePilot/internal/service"
)

// respondError maps service errors onto the public status codes. Auth failures
// all look the same from outside.
func (h HandlerSet) respondError(c *gin.Context, err error) {
	var unsaved *service.UnsavedGenerationError

	switch {
	case errors.As(err, &unsaved):
		body := middleware.ErrorBody("storage_error", "code was generated but could not be saved")
		body["response"] = unsaved.Code
		c.JSON(http.StatusInternalServerError, body)
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, middleware.ErrorBody("validation", err.Error()))
	case errors.Is(err, service.ErrEmptyPrompt):
		c.JSON(http.StatusBadRequest, middleware.ErrorBody("empty_prompt", "prompt must not be empty"))
	case errors.Is(err, service.ErrDuplicateEmail):
		c.JSON(http.StatusConflict, middleware.ErrorBody("duplicate_email", "email already registered"))
	case errors.Is(err, service.ErrUnauthorized),
		errors.Is(err, service.ErrNotFound),
		errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, middleware.ErrorBody("unauthorized", "invalid email or password"))
	case errors.Is(err, service.ErrModel):
		c.JSON(http.StatusBadGateway, middleware.ErrorBody("model_error", "code generation failed"))
	case errors.Is(err, service.ErrStorage):
		c.JSON(http.StatusInternalServerError, middleware.ErrorBody("storage_error", "storage unavailable"))
	default:
		h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("unhandled error")
		c.JSON(http.StatusInternalServerError, middleware.ErrorBody("internal_error", "internal server error"))
	}
}

func (h HandlerSet) badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, middleware.ErrorBody("validation", err.Error()))
}
