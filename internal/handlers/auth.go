package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vivekr077/CodePilot/internal/middleware"
	"github.com/vivekr077/CodePilot/internal/models"
	"github.com/vivekr077/CodePilot/internal/service"
)

type signUpRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type logInRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

func newUserResponse(u models.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

func (h HandlerSet) SignUp(c *gin.Context) {
	var req signUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	user, err := h.auth.CreateUser(c.Request.Context(), service.CreateUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status": true,
		"msg":    "user created",
		"user":   newUserResponse(user),
	})
}

func (h HandlerSet) LogIn(c *gin.Context) {
	var req logInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	result, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.setSessionCookie(c, result.Token, result.ExpiresAt)
	c.JSON(http.StatusOK, gin.H{
		"status":    true,
		"msg":       "login successful",
		"token":     result.Token,
		"expiresAt": result.ExpiresAt,
		"user":      newUserResponse(result.User),
	})
}

// LogOut only clears the cookie. Issued tokens stay valid until they expire.
func (h HandlerSet) LogOut(c *gin.Context) {
	h.setSessionCookie(c, "", time.Unix(0, 0))
	c.JSON(http.StatusOK, gin.H{
		"status": true,
		"msg":    "logged out",
	})
}

func (h HandlerSet) Session(c *gin.Context) {
	user, err := h.auth.CurrentUser(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": true,
		"user":   newUserResponse(user),
	})
}

func (h HandlerSet) setSessionCookie(c *gin.Context, value string, expires time.Time) {
	cfg := h.cfg.Security.Cookie

	maxAge := int(time.Until(expires).Seconds())
	if value == "" || maxAge <= 0 {
		maxAge = -1
	}

	http.SetCookie(c.Writer, &http.Cookie{
		Name:     cfg.Name,
		Value:    value,
		Path:     cfg.Path,
		Domain:   cfg.Domain,
		Expires:  expires,
		MaxAge:   maxAge,
		Secure:   cfg.Secure,
		HttpOnly: cfg.HTTPOnly,
		SameSite: parseSameSite(cfg.SameSite),
	})
}

func parseSameSite(v string) http.SameSite {
	switch strings.ToLower(v) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	case "lax":
		return http.SameSiteLaxMode
	default:
		return http.SameSiteDefaultMode
	}
}
