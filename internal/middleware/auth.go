package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vivekr077/CodePilot/internal/security"
	"github.com/vivekr077/CodePilot/internal/service"
)

const userIDKey = "user_id"

type TokenVerifier interface {
	Verify(token string) (string, error)
}

// SessionGate resolves the caller's user id from the session cookie, or from an
// Authorization bearer header when no cookie is sent.
type SessionGate struct {
	tokens     TokenVerifier
	cookieName string
	log        zerolog.Logger
}

func NewSessionGate(tokens TokenVerifier, cookieName string, log zerolog.Logger) *SessionGate {
	return &SessionGate{tokens: tokens, cookieName: cookieName, log: log}
}

// Authenticate returns the verified user id. Every failure wraps
// service.ErrUnauthorized; the token reason is kept for logging.
func (g *SessionGate) Authenticate(r *http.Request) (string, error) {
	token := g.extract(r)
	if token == "" {
		return "", fmt.Errorf("%w: %w", service.ErrUnauthorized, security.ErrTokenMissing)
	}

	userID, err := g.tokens.Verify(token)
	if err != nil {
		return "", fmt.Errorf("%w: %w", service.ErrUnauthorized, err)
	}
	return userID, nil
}

func (g *SessionGate) extract(r *http.Request) string {
	if cookie, err := r.Cookie(g.cookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	authHeader := r.Header.Get("Authorization")
	if scheme, token, ok := strings.Cut(authHeader, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return ""
}

func (g *SessionGate) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := g.Authenticate(c.Request)
		if err != nil {
			g.log.Debug().
				Str("reason", reason(err)).
				Str("path", c.Request.URL.Path).
				Str("request_id", c.GetString(requestIDHeader)).
				Msg("session rejected")
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorBody("unauthorized", "authentication required"))
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

// UserID returns the id stored by SessionGate, or "" on ungated routes.
func UserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

func reason(err error) string {
	switch {
	case errors.Is(err, security.ErrTokenMissing):
		return "missing"
	case errors.Is(err, security.ErrTokenExpired):
		return "expired"
	case errors.Is(err, security.ErrTokenSignatureInvalid):
		return "signature"
	case errors.Is(err, security.ErrTokenMalformed):
		return "malformed"
	default:
		return "unknown"
	}
}

// ErrorBody is the JSON envelope for every failed request.
func ErrorBody(code, msg string) gin.H {
	return gin.H{
		"status": false,
		"error":  code,
		"msg":    msg,
	}
}
