// Package access decides which organizations a user may read from and
// whether a user may read or modify a particular resource.
package access

import "github.com/taskforge/taskforge/internal/rbac"

// AccessibleOrgIDs returns the organizations readable by a member of orgID.
//
// The result is always the member's own organization. parentOrgID and role
// are accepted so that child-organization enumeration can be added for users
// sitting at a parent root without changing call sites; neither affects the
// result today.
func AccessibleOrgIDs(orgID int64, parentOrgID *int64, role rbac.Role) []int64 {
	return []int64{orgID}
}

// AccessibleOrgIDsFor resolves the scope of an authenticated user.
func AccessibleOrgIDsFor(user rbac.RequestUser) []int64 {
	return AccessibleOrgIDs(user.OrganizationID, user.ParentOrganizationID, user.Role)
}

func inScope(scope []int64, orgID int64) bool {
	for _, id := range scope {
		if id == orgID {
			return true
		}
	}
	return false
}
