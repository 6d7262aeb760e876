package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/taskforge/taskforge/internal/platform/httpx"
	"github.com/taskforge/taskforge/internal/rbac"
	"github.com/taskforge/taskforge/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger        *slog.Logger
	service       *Service
	authenticator *Authenticator
	rbac          rbac.Middleware
	validator     *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, authenticator *Authenticator, rbacMW rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:        logger,
		service:       service,
		authenticator: authenticator,
		rbac:          rbacMW,
		validator:     validator.New(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(httprate.LimitByIP(10, time.Minute)).Post("/login", h.handleLogin)
	r.Group(func(r chi.Router) {
		r.Use(h.authenticator.Middleware)
		r.Get("/me", h.handleMe)
		r.Post("/logout", h.handleLogout)
		r.With(h.rbac.RequireAny(rbac.PermTaskCreate, rbac.PermTaskDelete, rbac.PermAuditView)).Post("/register", h.handleRegister)
	})
}

type loginForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type registerForm struct {
	Email          string `json:"email" validate:"required,email"`
	Password       string `json:"password" validate:"required,min=8"`
	Name           string `json:"name" validate:"required,max=120"`
	Role           string `json:"role" validate:"required,oneof=OWNER ADMIN VIEWER"`
	OrganizationID int64  `json:"organizationId" validate:"required,gt=0"`
}

type tokenResponse struct {
	AccessToken string `json:"accessToken"`
}

type profileResponse struct {
	ID    int64     `json:"id"`
	Email string    `json:"email"`
	OrgID int64     `json:"orgId"`
	Role  rbac.Role `json:"role"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var form loginForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := httpx.Validate(h.validator, form); err != nil {
		httpx.RespondError(w, err)
		return
	}
	token, err := h.service.Login(r.Context(), form.Email, form.Password)
	if err != nil {
		if !errors.Is(err, shared.ErrInvalidCredentials) {
			h.logger.Error("login", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tokenResponse{AccessToken: token})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var form registerForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := httpx.Validate(h.validator, form); err != nil {
		httpx.RespondError(w, err)
		return
	}
	role, err := rbac.ParseRole(form.Role)
	if err != nil {
		httpx.RespondError(w, shared.ErrValidation)
		return
	}
	token, err := h.service.Register(r.Context(), RegisterInput{
		Email:          form.Email,
		Password:       form.Password,
		Name:           form.Name,
		Role:           role,
		OrganizationID: form.OrganizationID,
	})
	if err != nil {
		if httpx.StatusFor(err) == http.StatusInternalServerError {
			h.logger.Error("register", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, tokenResponse{AccessToken: token})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := rbac.UserFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrAuthenticationRequired)
		return
	}
	httpx.JSON(w, http.StatusOK, profileResponse{ID: user.UserID, Email: user.Email, OrgID: user.OrganizationID, Role: user.Role})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrAuthenticationRequired)
		return
	}
	if err := h.service.Logout(r.Context(), claims); err != nil {
		h.logger.Error("logout", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
