package auth

import (
	"context"
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v5"

	"github.com/taskforge/taskforge/internal/rbac"
	"github.com/taskforge/taskforge/internal/shared"
)

// Claims is the access token payload.
type Claims struct {
	Sub                  int64  `json:"sub"`
	Email                string `json:"email"`
	Role                 string `json:"role"`
	OrganizationID       int64  `json:"organizationId"`
	ParentOrganizationID *int64 `json:"parentOrganizationId,omitempty"`
	jwt.RegisteredClaims
}

// GetSubject reports the numeric subject in the string form jwt expects.
func (c Claims) GetSubject() (string, error) {
	return strconv.FormatInt(c.Sub, 10), nil
}

// ClaimsForUser builds the payload for a user account.
func ClaimsForUser(u User) Claims {
	return Claims{
		Sub:                  u.ID,
		Email:                u.Email,
		Role:                 string(u.Role),
		OrganizationID:       u.OrgID,
		ParentOrganizationID: u.ParentOrgID,
	}
}

// RequestUserFromClaims binds a verified payload to the request identity.
func RequestUserFromClaims(c Claims) (rbac.RequestUser, error) {
	role, err := rbac.ParseRole(c.Role)
	if err != nil {
		return rbac.RequestUser{}, fmt.Errorf("%w: %v", shared.ErrAuthenticationRequired, err)
	}
	var parent *int64
	if c.ParentOrganizationID != nil {
		v := *c.ParentOrganizationID
		parent = &v
	}
	return rbac.RequestUser{
		UserID:               c.Sub,
		Email:                c.Email,
		Role:                 role,
		OrganizationID:       c.OrganizationID,
		ParentOrganizationID: parent,
	}, nil
}

type claimsContextKey struct{}

// ContextWithClaims stores the verified token payload in context.
func ContextWithClaims(ctx context.Context, c Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey{}, c)
}

// ClaimsFromContext extracts the verified token payload from context.
func ClaimsFromContext(ctx context.Context) (Claims, bool) {
	c, ok := ctx.Value(claimsContextKey{}).(Claims)
	return c, ok
}
