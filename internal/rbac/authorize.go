package rbac

// HasPermission reports whether role holds perm.
func HasPermission(role Role, perm Permission) bool {
	for _, granted := range catalog[role] {
		if granted == perm {
			return true
		}
	}
	return false
}

// HasAnyPermission reports whether role holds at least one of perms.
// An empty requirement is never satisfied.
func HasAnyPermission(role Role, perms []Permission) bool {
	for _, p := range perms {
		if HasPermission(role, p) {
			return true
		}
	}
	return false
}

// HasAllPermissions reports whether role holds every one of perms.
// An empty requirement is trivially satisfied.
func HasAllPermissions(role Role, perms []Permission) bool {
	for _, p := range perms {
		if !HasPermission(role, p) {
			return false
		}
	}
	return true
}
