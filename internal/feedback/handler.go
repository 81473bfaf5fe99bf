package feedback

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/smartexpense/smartexpense/internal/platform/httpx"
	"github.com/smartexpense/smartexpense/internal/shared"
)

// Handler exposes the feedback endpoint.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler constructs a Handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

// MountRoutes registers feedback routes. Callers install authentication on r.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.handleSubmit)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	identity, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}
	var input SubmitInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		if httpx.IsBodyTooLarge(err) {
			httpx.Error(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		httpx.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	fb, err := h.service.Submit(r.Context(), identity, input)
	if err != nil {
		if !errors.Is(err, shared.ErrValidation) {
			h.logger.Error("submit feedback failed", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]string{
		"id":      fb.ID.String(),
		"message": "Thank you for helping us improve SmartExpense.",
	})
}
