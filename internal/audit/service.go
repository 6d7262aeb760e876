package audit

import (
	"context"
	"fmt"
	"sort"

	"github.com/taskforge/taskforge/internal/access"
	"github.com/taskforge/taskforge/internal/rbac"
)

const unknownUserName = "Unknown"

// Repository reads audit entries for a set of organizations, newest first.
type Repository interface {
	ListByOrgs(ctx context.Context, orgIDs []int64) ([]Row, error)
}

// Service serves the audit log to viewers. Callers enforce AUDIT_VIEW.
type Service struct {
	repo Repository
}

// NewService creates the audit log read service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns entries recorded within the user's accessible organizations,
// newest first.
func (s *Service) List(ctx context.Context, user rbac.RequestUser) ([]LogEntry, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("audit: repository not configured")
	}
	scope := access.AccessibleOrgIDsFor(user)
	rows, err := s.repo.ListByOrgs(ctx, scope)
	if err != nil {
		return nil, err
	}
	allowed := make(map[int64]struct{}, len(scope))
	for _, id := range scope {
		allowed[id] = struct{}{}
	}
	entries := make([]LogEntry, 0, len(rows))
	for _, row := range rows {
		if _, ok := allowed[row.OrgID]; !ok {
			continue
		}
		entries = append(entries, toLogEntry(row))
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	return entries, nil
}

func toLogEntry(row Row) LogEntry {
	name := unknownUserName
	if row.UserName != nil && *row.UserName != "" {
		name = *row.UserName
	}
	meta := row.Meta
	if meta == nil {
		meta = map[string]any{}
	}
	return LogEntry{
		ID:             row.ID,
		Action:         row.Action,
		EntityType:     row.Resource,
		EntityID:       row.ResourceID,
		UserID:         row.UserID,
		UserName:       name,
		// Actor's org at write time, not the reader's; they differ once scope spans child orgs.
		OrganizationID: row.OrgID,
		Allowed:        row.Allowed,
		Reason:         row.Reason,
		Metadata:       meta,
		CreatedAt:      row.Timestamp,
	}
}
