package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Recovery turns a panic in one request into a 500 for that request only.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().
					Interface("panic", r).
					Bytes("stack", debug.Stack()).
					Str("path", c.Request.URL.Path).
					Str("request_id", c.GetString(requestIDHeader)).
					Msg("panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorBody("internal_error", "internal server error"))
			}
		}()
		c.Next()
	}
}
