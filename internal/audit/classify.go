package audit

import (
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/taskforge/taskforge/internal/access"
	"github.com/taskforge/taskforge/internal/shared"
)

// Resource names recorded in audit entries.
const (
	ResourceTask     = "Task"
	ResourceAuditLog = "AuditLog"
	ResourceUnknown  = "Unknown"
)

var trailingID = regexp.MustCompile(`/(\d+)(?:\?|$)`)

// IsAudited reports whether a request URI belongs to an audited surface.
func IsAudited(uri string) bool {
	return strings.Contains(uri, "/tasks") || strings.Contains(uri, "/audit-log")
}

// ActionFromMethod maps an HTTP verb to its logical action.
// Unmapped verbs are returned unchanged.
func ActionFromMethod(method string) string {
	switch method {
	case http.MethodGet:
		return "READ"
	case http.MethodPost:
		return "CREATE"
	case http.MethodPut, http.MethodPatch:
		return "UPDATE"
	case http.MethodDelete:
		return "DELETE"
	default:
		return method
	}
}

// ResourceFromPath derives the logical resource type from a request URI.
func ResourceFromPath(uri string) string {
	switch {
	case strings.Contains(uri, "/tasks"):
		return ResourceTask
	case strings.Contains(uri, "/audit-log"):
		return ResourceAuditLog
	default:
		return ResourceUnknown
	}
}

// ResourceIDFromPath extracts a trailing numeric segment, or 0.
func ResourceIDFromPath(uri string) int64 {
	m := trailingID.FindStringSubmatch(uri)
	if m == nil {
		return 0
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// IsDenial reports whether err is an authorization outcome worth auditing.
func IsDenial(err error) bool {
	return errors.Is(err, shared.ErrPermissionDenied) || errors.Is(err, shared.ErrAuthenticationRequired)
}

// ErrorType names the denial kind recorded in entry metadata.
func ErrorType(err error) string {
	var scopeErr *access.OrgScopeError
	switch {
	case errors.As(err, &scopeErr):
		return "OrgScopeDenied"
	case errors.Is(err, shared.ErrAuthenticationRequired):
		return "AuthenticationRequired"
	case errors.Is(err, shared.ErrPermissionDenied):
		return "PermissionDenied"
	default:
		return "Error"
	}
}
