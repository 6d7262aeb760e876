package access

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/taskforge/taskforge/internal/rbac"
	"github.com/taskforge/taskforge/internal/shared"
)

// OrgScopeError reports a resource outside the caller's accessible organizations.
// The message names the full scope and belongs in audit records, not responses.
type OrgScopeError struct {
	ResourceOrgID    int64
	AccessibleOrgIDs []int64
}

func (e *OrgScopeError) Error() string {
	ids := make([]string, len(e.AccessibleOrgIDs))
	for i, id := range e.AccessibleOrgIDs {
		ids[i] = strconv.FormatInt(id, 10)
	}
	return fmt.Sprintf("Access denied: Resource org %d not in accessible orgs [%s]", e.ResourceOrgID, strings.Join(ids, ", "))
}

// Unwrap classifies the error as a permission denial.
func (e *OrgScopeError) Unwrap() error {
	return shared.ErrPermissionDenied
}

// CanAccessResource reports whether user may read a resource owned by resourceOrgID.
func CanAccessResource(user rbac.RequestUser, resourceOrgID int64) bool {
	return inScope(AccessibleOrgIDsFor(user), resourceOrgID)
}

// CanModifyResource reports whether user may change or delete a resource.
// Viewers never modify. Owners modify anything in scope. Admins modify only
// resources they created; a nil resourceOwnerID never matches.
func CanModifyResource(user rbac.RequestUser, resourceOrgID int64, resourceOwnerID *int64) bool {
	if user.Role == rbac.RoleViewer {
		return false
	}
	if !CanAccessResource(user, resourceOrgID) {
		return false
	}
	switch user.Role {
	case rbac.RoleOwner:
		return true
	case rbac.RoleAdmin:
		return resourceOwnerID != nil && *resourceOwnerID == user.UserID
	default:
		return false
	}
}

// EnforceOrgScope returns an *OrgScopeError when resourceOrgID is outside the
// user's accessible organizations.
func EnforceOrgScope(user rbac.RequestUser, resourceOrgID int64) error {
	scope := AccessibleOrgIDsFor(user)
	if inScope(scope, resourceOrgID) {
		return nil
	}
	return &OrgScopeError{ResourceOrgID: resourceOrgID, AccessibleOrgIDs: scope}
}
