package auth

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/smartexpense/smartexpense/internal/platform/httpx"
	"github.com/smartexpense/smartexpense/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger  *slog.Logger
	service *Service
	verify  Verifier
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, verifier Verifier) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, verify: verifier}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/register", h.handleRegister)
	r.Post("/login", h.handleLogin)
	r.With(Middleware(h.verify)).Get("/me", h.handleMe)
}

type authResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var input RegisterInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		respondDecodeError(w, err)
		return
	}
	user, err := h.service.Register(r.Context(), input)
	if err != nil {
		h.respondError(w, "register", err)
		return
	}
	token, err := h.service.IssueToken(user)
	if err != nil {
		h.respondError(w, "register", err)
		return
	}
	h.logger.Info("user registered", slog.String("user_id", user.ID.String()))
	httpx.JSON(w, http.StatusCreated, authResponse{Token: token, User: user})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var input LoginInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		respondDecodeError(w, err)
		return
	}
	token, user, err := h.service.Login(r.Context(), input)
	if err != nil {
		h.respondError(w, "login", err)
		return
	}
	httpx.JSON(w, http.StatusOK, authResponse{Token: token, User: user})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}
	user, err := h.service.Current(r.Context(), identity)
	if err != nil {
		h.respondError(w, "current user", err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func respondDecodeError(w http.ResponseWriter, err error) {
	if httpx.IsBodyTooLarge(err) {
		httpx.Error(w, http.StatusRequestEntityTooLarge, "Request body too large")
		return
	}
	httpx.Error(w, http.StatusBadRequest, "Invalid request body")
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	h.logger.Warn(op+" failed", slog.Any("error", err))
	httpx.RespondError(w, err)
}
