package rbac

// catalog maps each role to the permissions it holds. ADMIN and OWNER share
// the same set; they differ only in the modification rule of package access.
var catalog = map[Role][]Permission{
	RoleViewer: {PermTaskView},
	RoleAdmin:  {PermTaskView, PermTaskCreate, PermTaskUpdate, PermTaskDelete, PermAuditView},
	RoleOwner:  {PermTaskView, PermTaskCreate, PermTaskUpdate, PermTaskDelete, PermAuditView},
}

// AllPermissions lists the fixed permission set in declaration order.
func AllPermissions() []Permission {
	return []Permission{PermTaskView, PermTaskCreate, PermTaskUpdate, PermTaskDelete, PermAuditView}
}

// PermissionsFor returns a copy of the permissions granted to role.
// Unknown roles hold nothing.
func PermissionsFor(role Role) []Permission {
	granted := catalog[role]
	out := make([]Permission, len(granted))
	copy(out, granted)
	return out
}
