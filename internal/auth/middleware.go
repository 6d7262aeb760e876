package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/taskforge/taskforge/internal/rbac"
)

// Authenticator verifies bearer tokens and binds the request user.
type Authenticator struct {
	issuer   *TokenIssuer
	denylist Denylist
	logger   *slog.Logger
}

// NewAuthenticator constructs an Authenticator. denylist may be nil.
func NewAuthenticator(issuer *TokenIssuer, denylist Denylist, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{issuer: issuer, denylist: denylist, logger: logger}
}

// Middleware rejects requests without a valid, unrevoked bearer token.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := a.issuer.Verify(bearerToken(r))
		if err != nil {
			unauthorized(w)
			return
		}
		if a.denylist != nil {
			revoked, err := a.denylist.IsRevoked(r.Context(), claims.ID)
			if err != nil {
				a.logger.Error("token revocation lookup", slog.Any("error", err))
				unauthorized(w)
				return
			}
			if revoked {
				unauthorized(w)
				return
			}
		}
		user, err := RequestUserFromClaims(claims)
		if err != nil {
			a.logger.Warn("token payload rejected", slog.Any("error", err))
			unauthorized(w)
			return
		}
		ctx := ContextWithClaims(r.Context(), claims)
		ctx = rbac.ContextWithUser(ctx, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="taskforge"`)
	http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
}
