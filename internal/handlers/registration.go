package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"github.com/gatehouse-dev/gatehouse/internal/models"
	"github.com/gatehouse-dev/gatehouse/internal/services"
	apperrors "github.com/gatehouse-dev/gatehouse/pkg/errors"
	"github.com/gatehouse-dev/gatehouse/pkg/metrics"
	"github.com/gatehouse-dev/gatehouse/pkg/response"
)

// activationKeyPattern matches a well-formed activation key. Anything else is
// reported the same way as an unknown key.
var activationKeyPattern = regexp.MustCompile(`^[a-f0-9]{40}$`)

// RegistrationHandler serves the public registration endpoints.
type RegistrationHandler struct {
	svc *services.RegistrationService
}

func NewRegistrationHandler(svc *services.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{svc: svc}
}

type registerRequest struct {
	Username   string         `json:"username" validate:"required,username,max=150"`
	Email      string         `json:"email" validate:"required,email,max=254"`
	Supplement map[string]any `json:"supplement"`
}

type activateRequest struct {
	Password string `json:"password" validate:"omitempty,min=8,max=128"`
}

// accountPayload is the public view of an account.
type accountPayload struct {
	ID       string    `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	IsActive bool      `json:"is_active"`
	JoinedAt time.Time `json:"joined_at"`
}

// profilePayload is the public view of a registration profile. The activation
// key never appears in it.
type profilePayload struct {
	ID           string         `json:"id"`
	Username     string         `json:"username"`
	Email        string         `json:"email"`
	Status       string         `json:"status"`
	Supplement   datatypes.JSON `json:"supplement,omitempty"`
	RegisteredAt time.Time      `json:"registered_at"`
	ExpiresAt    *time.Time     `json:"expires_at,omitempty"`
}

func newAccountPayload(account *models.Account) accountPayload {
	return accountPayload{
		ID:       account.ID,
		Username: account.Username,
		Email:    account.Email,
		IsActive: account.IsActive,
		JoinedAt: account.JoinedAt,
	}
}

func newProfilePayload(svc *services.RegistrationService, profile *models.RegistrationProfile) profilePayload {
	payload := profilePayload{
		ID:           profile.ID,
		Status:       string(svc.EffectiveStatus(profile)),
		Supplement:   profile.Supplement,
		RegisteredAt: profile.CreatedAt,
		ExpiresAt:    svc.ExpiresAt(profile),
	}
	if profile.Account != nil {
		payload.Username = profile.Account.Username
		payload.Email = profile.Account.Email
	}
	return payload
}

// POST /api/registration
func (h *RegistrationHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindAndValidate(c, &req) {
		return
	}

	input := services.RegisterInput{
		Username:  req.Username,
		Email:     req.Email,
		SendEmail: true,
	}
	if req.Supplement != nil {
		raw, err := json.Marshal(req.Supplement)
		if err != nil {
			response.Error(c, apperrors.NewBadRequest("supplement must be a JSON object"))
			return
		}
		input.Supplement = datatypes.JSON(raw)
	}

	profile, err := h.svc.Register(requestContext(c), input)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrRegistrationClosed):
			metrics.Registrations.WithLabelValues("closed").Inc()
			response.Error(c, apperrors.ErrRegistrationClosed)
		case errors.Is(err, services.ErrAccountExists):
			metrics.Registrations.WithLabelValues("duplicate").Inc()
			response.Error(c, apperrors.ErrConflict.WithMessage("an account with that username or email already exists"))
		default:
			metrics.Registrations.WithLabelValues("error").Inc()
			response.Error(c, apperrors.ErrInternalServer)
		}
		return
	}

	metrics.Registrations.WithLabelValues("created").Inc()
	response.Created(c, newProfilePayload(h.svc, profile))
}

// POST /api/registration/activate/:key
func (h *RegistrationHandler) Activate(c *gin.Context) {
	key := c.Param("key")
	if !activationKeyPattern.MatchString(key) {
		metrics.Activations.WithLabelValues("not_found").Inc()
		response.Error(c, apperrors.NewNotFound("activation key is invalid or already used"))
		return
	}

	var req activateRequest
	if c.Request.Body != nil && c.Request.ContentLength != 0 {
		if !bindAndValidate(c, &req) {
			return
		}
	}

	activation, err := h.svc.Activate(requestContext(c), key, services.ActivateInput{
		Password:  req.Password,
		SendEmail: true,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrProfileNotFound):
			metrics.Activations.WithLabelValues("not_found").Inc()
			response.Error(c, apperrors.NewNotFound("activation key is invalid or already used"))
		case errors.Is(err, services.ErrActivationKeyExpired):
			metrics.Activations.WithLabelValues("expired").Inc()
			response.Error(c, apperrors.ErrGone.WithMessage("activation key has expired"))
		default:
			metrics.Activations.WithLabelValues("error").Inc()
			response.Error(c, apperrors.ErrInternalServer)
		}
		return
	}

	metrics.Activations.WithLabelValues("success").Inc()

	payload := gin.H{
		"account":   newAccountPayload(activation.Account),
		"generated": activation.Generated,
	}
	if activation.Generated {
		payload["password"] = activation.Password
	}
	response.Success(c, http.StatusOK, payload)
}
