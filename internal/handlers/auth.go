package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	iauth "github.com/gatehouse-dev/gatehouse/internal/auth"
	"github.com/gatehouse-dev/gatehouse/internal/middleware"
	"github.com/gatehouse-dev/gatehouse/internal/repository"
	"github.com/gatehouse-dev/gatehouse/pkg/crypto"
	"github.com/gatehouse-dev/gatehouse/pkg/errors"
	"github.com/gatehouse-dev/gatehouse/pkg/metrics"
	"github.com/gatehouse-dev/gatehouse/pkg/response"
)

// AuthHandler issues bearer tokens to inspectors.
type AuthHandler struct {
	store  *repository.Store
	tokens *iauth.TokenService
}

func NewAuthHandler(store *repository.Store, tokens *iauth.TokenService) *AuthHandler {
	return &AuthHandler{store: store, tokens: tokens}
}

type tokenRequest struct {
	Username string `json:"username" validate:"required,max=150"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// POST /api/auth/token
func (h *AuthHandler) Token(c *gin.Context) {
	var req tokenRequest
	if !bindAndValidate(c, &req) {
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		response.Error(c, errors.NewBadRequest("username is required"))
		return
	}

	account, err := h.store.Accounts().GetByUsername(requestContext(c), req.Username)
	if err != nil || !account.IsActive || !account.IsStaff ||
		!account.HasUsablePassword() ||
		!crypto.VerifyPassword(account.PasswordHash, req.Password) {
		// Normalise all credential failures to 401
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		response.Error(c, errors.ErrInvalidCredentials)
		return
	}

	token, expiresAt, err := h.tokens.IssueToken(account.Username)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		response.Error(c, errors.ErrInternalServer)
		return
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()
	response.Success(c, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
	})
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"username": claims.Username,
		"role":     claims.Role,
	})
}
