package rbac

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/taskforge/taskforge/internal/shared"
)

// DenyFunc receives the reason a guard rejected a request.
type DenyFunc func(r *http.Request, err error)

// Middleware wires RBAC authorization helpers for HTTP handlers.
type Middleware struct {
	Logger *slog.Logger
	// OnDeny, when set, is told about every rejection before the response is written.
	OnDeny DenyFunc
}

// RequireAny ensures the current user has at least one of the required permissions.
func (m Middleware) RequireAny(perms ...Permission) func(http.Handler) http.Handler {
	required := normalizePermissions(perms)
	return m.guard("any", required, func(role Role) bool {
		return HasAnyPermission(role, required)
	})
}

// RequireAll ensures the current user has all required permissions.
func (m Middleware) RequireAll(perms ...Permission) func(http.Handler) http.Handler {
	required := normalizePermissions(perms)
	return m.guard("all", required, func(role Role) bool {
		return HasAllPermissions(role, required)
	})
}

func (m Middleware) guard(mode string, required []Permission, allowed func(Role) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(required) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			user, ok := UserFromContext(r.Context())
			if !ok {
				m.deny(w, r, http.StatusUnauthorized, shared.ErrAuthenticationRequired)
				return
			}
			if allowed(user.Role) {
				next.ServeHTTP(w, r)
				return
			}
			err := fmt.Errorf("%w: role %s lacks %s of %v", shared.ErrPermissionDenied, user.Role, mode, required)
			if m.Logger != nil {
				m.Logger.Debug("rbac denied", slog.Int64("user_id", user.UserID), slog.String("role", string(user.Role)), slog.String("path", r.URL.Path))
			}
			m.deny(w, r, http.StatusForbidden, err)
		})
	}
}

func (m Middleware) deny(w http.ResponseWriter, r *http.Request, status int, err error) {
	if m.OnDeny != nil {
		m.OnDeny(r, err)
	}
	http.Error(w, http.StatusText(status), status)
}

func normalizePermissions(perms []Permission) []Permission {
	seen := make(map[Permission]struct{}, len(perms))
	normalized := make([]Permission, 0, len(perms))
	for _, p := range perms {
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		normalized = append(normalized, p)
	}
	return normalized
}
