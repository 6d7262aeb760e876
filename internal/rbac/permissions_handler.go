package rbac

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taskforge/taskforge/internal/platform/httpx"
)

// PermissionsHandler exposes the permission catalog to clients.
type PermissionsHandler struct {
	logger *slog.Logger
}

// NewPermissionsHandler builds PermissionsHandler instance.
func NewPermissionsHandler(logger *slog.Logger) *PermissionsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PermissionsHandler{logger: logger}
}

// MountRoutes registers permission routes.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Get("/", h.listPermissions)
	r.Get("/me", h.myPermissions)
}

type roleGrant struct {
	Role        Role         `json:"role"`
	Permissions []Permission `json:"permissions"`
}

func (h *PermissionsHandler) listPermissions(w http.ResponseWriter, r *http.Request) {
	grants := make([]roleGrant, 0, 3)
	for _, role := range []Role{RoleOwner, RoleAdmin, RoleViewer} {
		grants = append(grants, roleGrant{Role: role, Permissions: PermissionsFor(role)})
	}
	httpx.JSON(w, http.StatusOK, grants)
}

func (h *PermissionsHandler) myPermissions(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized), "")
		return
	}
	httpx.JSON(w, http.StatusOK, roleGrant{Role: user.Role, Permissions: PermissionsFor(user.Role)})
}
