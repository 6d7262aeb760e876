package rbac

import (
	"fmt"
	"strings"
)

// Role is the coarse identity classification carried by every request.
type Role string

const (
	RoleOwner  Role = "OWNER"
	RoleAdmin  Role = "ADMIN"
	RoleViewer Role = "VIEWER"
)

// Permission represents an atomic capability.
type Permission string

const (
	PermTaskView   Permission = "TASK_VIEW"
	PermTaskCreate Permission = "TASK_CREATE"
	PermTaskUpdate Permission = "TASK_UPDATE"
	PermTaskDelete Permission = "TASK_DELETE"
	PermAuditView  Permission = "AUDIT_VIEW"
)

// ParseRole converts a stored or transported role name into a Role.
func ParseRole(raw string) (Role, error) {
	role := Role(strings.ToUpper(strings.TrimSpace(raw)))
	switch role {
	case RoleOwner, RoleAdmin, RoleViewer:
		return role, nil
	}
	return "", fmt.Errorf("rbac: unknown role %q", raw)
}

// RequestUser describes the authenticated actor for one request.
// It is built from a verified token and never persisted.
type RequestUser struct {
	UserID               int64
	Email                string
	Role                 Role
	OrganizationID       int64
	ParentOrganizationID *int64
}
