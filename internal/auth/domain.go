package auth

import (
	"time"

	"github.com/taskforge/taskforge/internal/rbac"
)

// User represents an authenticated user account.
type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	Role         rbac.Role
	OrgID        int64
	// ParentOrgID is the parent of the user's organization, if any.
	ParentOrgID *int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Organization is a tenant. Children point at their parent.
type Organization struct {
	ID       int64
	Name     string
	ParentID *int64
}

// NewUser carries the fields required to create an account.
type NewUser struct {
	Email        string
	Name         string
	PasswordHash string
	Role         rbac.Role
	OrgID        int64
}
