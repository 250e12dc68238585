package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/gatehouse-dev/gatehouse/internal/app/maintenance"
	"github.com/gatehouse-dev/gatehouse/internal/cache"
	"github.com/gatehouse-dev/gatehouse/internal/registration"
	"github.com/gatehouse-dev/gatehouse/internal/repository"
	"github.com/gatehouse-dev/gatehouse/internal/services"
	apperrors "github.com/gatehouse-dev/gatehouse/pkg/errors"
	"github.com/gatehouse-dev/gatehouse/pkg/metrics"
	"github.com/gatehouse-dev/gatehouse/pkg/response"
)

// InspectionHandler serves the inspector review endpoints.
type InspectionHandler struct {
	svc     *services.RegistrationService
	store   *repository.Store
	cleaner *maintenance.Cleaner
	marks   cache.Store
}

func NewInspectionHandler(svc *services.RegistrationService, store *repository.Store, cleaner *maintenance.Cleaner, marks cache.Store) *InspectionHandler {
	return &InspectionHandler{svc: svc, store: store, cleaner: cleaner, marks: marks}
}

type acceptRequest struct {
	Message   string `json:"message" validate:"omitempty,max=2000"`
	SendEmail *bool  `json:"send_email"`
	Force     bool   `json:"force"`
}

type rejectRequest struct {
	Message   string `json:"message" validate:"omitempty,max=2000"`
	SendEmail *bool  `json:"send_email"`
}

func sendEmailOrDefault(flag *bool) bool {
	if flag == nil {
		return true
	}
	return *flag
}

// GET /api/inspection/profiles
func (h *InspectionHandler) List(c *gin.Context) {
	filter := registration.Status(strings.TrimSpace(c.Query("status")))

	profiles, err := h.svc.ListProfiles(requestContext(c), filter)
	if err != nil {
		if filter != "" && !filter.Valid() {
			response.Error(c, apperrors.NewBadRequest("unknown status filter"))
			return
		}
		response.Error(c, apperrors.ErrInternalServer)
		return
	}

	payloads := make([]profilePayload, 0, len(profiles))
	for i := range profiles {
		payloads = append(payloads, newProfilePayload(h.svc, &profiles[i]))
	}

	response.SuccessWithMeta(c, http.StatusOK, payloads, &response.Meta{
		Status: string(filter),
		Count:  len(payloads),
	})
}

// GET /api/inspection/profiles/:id
func (h *InspectionHandler) Get(c *gin.Context) {
	profile, err := h.svc.GetProfile(requestContext(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrProfileNotFound) {
			response.Error(c, apperrors.ErrNotFound)
			return
		}
		response.Error(c, apperrors.ErrInternalServer)
		return
	}
	response.Success(c, http.StatusOK, newProfilePayload(h.svc, profile))
}

// POST /api/inspection/profiles/:id/accept
func (h *InspectionHandler) Accept(c *gin.Context) {
	var req acceptRequest
	if c.Request.Body != nil && c.Request.ContentLength != 0 {
		if !bindAndValidate(c, &req) {
			return
		}
	}

	profile, err := h.svc.Accept(requestContext(c), c.Param("id"), services.AcceptInput{
		Message:   req.Message,
		SendEmail: sendEmailOrDefault(req.SendEmail),
		Force:     req.Force,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrProfileNotFound):
			response.Error(c, apperrors.ErrNotFound)
		case errors.Is(err, services.ErrAlreadyAccepted):
			response.Error(c, apperrors.ErrConflict.WithMessage("profile is already accepted"))
		default:
			response.Error(c, apperrors.ErrInternalServer)
		}
		return
	}

	metrics.Inspections.WithLabelValues("accepted", boolLabel(req.Force)).Inc()
	response.Success(c, http.StatusOK, newProfilePayload(h.svc, profile))
}

// POST /api/inspection/profiles/:id/reject
func (h *InspectionHandler) Reject(c *gin.Context) {
	var req rejectRequest
	if c.Request.Body != nil && c.Request.ContentLength != 0 {
		if !bindAndValidate(c, &req) {
			return
		}
	}

	profile, err := h.svc.Reject(requestContext(c), c.Param("id"), services.RejectInput{
		Message:   req.Message,
		SendEmail: sendEmailOrDefault(req.SendEmail),
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrProfileNotFound):
			response.Error(c, apperrors.ErrNotFound)
		case errors.Is(err, services.ErrAlreadyInspected):
			response.Error(c, apperrors.ErrConflict.WithMessage("profile has already been inspected"))
		default:
			response.Error(c, apperrors.ErrInternalServer)
		}
		return
	}

	metrics.Inspections.WithLabelValues("rejected", "false").Inc()
	response.Success(c, http.StatusOK, newProfilePayload(h.svc, profile))
}

// POST /api/inspection/sweeps/expired
func (h *InspectionHandler) SweepExpired(c *gin.Context) {
	result, err := h.cleaner.RunExpired(requestContext(c))
	if err != nil {
		response.Error(c, apperrors.ErrInternalServer)
		return
	}
	response.Success(c, http.StatusOK, result)
}

// POST /api/inspection/sweeps/rejected
func (h *InspectionHandler) SweepRejected(c *gin.Context) {
	result, err := h.cleaner.RunRejected(requestContext(c))
	if err != nil {
		response.Error(c, apperrors.ErrInternalServer)
		return
	}
	response.Success(c, http.StatusOK, result)
}

// GET /api/inspection/stats
func (h *InspectionHandler) Stats(c *gin.Context) {
	ctx := requestContext(c)

	counts, err := h.store.Profiles().CountByStatus(ctx)
	if err != nil {
		response.Error(c, apperrors.ErrInternalServer)
		return
	}

	profiles := gin.H{}
	for _, status := range []registration.Status{
		registration.StatusUntreated,
		registration.StatusAccepted,
		registration.StatusRejected,
	} {
		profiles[string(status)] = counts[status]
	}

	sweeps := gin.H{}
	if h.marks != nil {
		for name, key := range map[string]string{
			"expired":  maintenance.MarkerKeyExpired,
			"rejected": maintenance.MarkerKeyRejected,
		} {
			raw, ok, err := h.marks.Get(ctx, key)
			if err != nil || !ok {
				continue
			}
			sweeps[name] = json.RawMessage(raw)
		}
	}

	response.Success(c, http.StatusOK, gin.H{
		"profiles": profiles,
		"sweeps":   sweeps,
	})
}

func boolLabel(v bool) string {
	if v {
		return "true"
	}
	return "false"
}
