package http

import (
	"errors"
	"net/http"

	"github.com/dkeye/Huddle/internal/adapters/signal"
	"github.com/dkeye/Huddle/internal/auth"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type tokenResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

func (h *handlers) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name, email and password are required"})
		return
	}
	u, err := h.deps.Auth.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	switch {
	case errors.Is(err, auth.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case errors.Is(err, domain.ErrUsernameEmpty),
		errors.Is(err, domain.ErrUsernameTooLong),
		errors.Is(err, domain.ErrEmailInvalid),
		errors.Is(err, domain.ErrPasswordShort),
		errors.Is(err, domain.ErrPasswordTooLong):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		log.Error().Err(err).Str("module", "adapters.http").Msg("register")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register"})
		return
	}
	h.issue(c, http.StatusCreated, u)
}

func (h *handlers) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}
	u, err := h.deps.Auth.ValidateCredentials(c.Request.Context(), req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("login")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to log in"})
		return
	}
	h.issue(c, http.StatusOK, u)
}

// issue mints a token, remembers it in the cookie session and returns it.
func (h *handlers) issue(c *gin.Context, status int, u domain.User) {
	token, err := h.deps.Auth.IssueToken(c.Request.Context(), u)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Str("user", string(u.ID)).Msg("issue token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}
	sess := sessions.Default(c)
	sess.Set(signal.SessionTokenKey, token)
	if err := sess.Save(); err != nil {
		log.Warn().Err(err).Str("module", "adapters.http").Msg("session save")
	}
	c.JSON(status, tokenResponse{Token: token, User: u})
}

func (h *handlers) logout(c *gin.Context) {
	token := signal.TokenFromRequest(c)
	if err := h.deps.Auth.Revoke(c.Request.Context(), token); err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("logout")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to log out"})
		return
	}
	sess := sessions.Default(c)
	sess.Delete(signal.SessionTokenKey)
	_ = sess.Save()
	c.Status(http.StatusNoContent)
}

func (h *handlers) me(c *gin.Context) {
	u, err := h.deps.Auth.Resolve(c.Request.Context(), signal.TokenFromRequest(c))
	if errors.Is(err, auth.ErrInvalidToken) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("me")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve token"})
		return
	}
	c.JSON(http.StatusOK, u)
}
