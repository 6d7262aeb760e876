package audithttp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskforge/taskforge/internal/audit"
	"github.com/taskforge/taskforge/internal/rbac"
)

type stubLogService struct {
	entries []audit.LogEntry
	err     error
	calls   int
}

func (s *stubLogService) List(ctx context.Context, user rbac.RequestUser) ([]audit.LogEntry, error) {
	s.calls++
	return s.entries, s.err
}

func newRouter(svc LogService, user *rbac.RequestUser) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(logger, svc, rbac.Middleware{Logger: logger})
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if user != nil {
				req = req.WithContext(rbac.ContextWithUser(req.Context(), *user))
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Route("/audit-log", h.MountRoutes)
	return r
}

func sampleEntries() []audit.LogEntry {
	return []audit.LogEntry{{
		ID:             1,
		Action:         "READ",
		EntityType:     "Task",
		UserID:         1,
		UserName:       "Owner",
		OrganizationID: 1,
		Allowed:        true,
		Metadata:       map[string]any{"method": "GET"},
		CreatedAt:      time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}}
}

func TestListReturnsEntries(t *testing.T) {
	svc := &stubLogService{entries: sampleEntries()}
	owner := &rbac.RequestUser{UserID: 1, Role: rbac.RoleOwner, OrganizationID: 1}

	rr := httptest.NewRecorder()
	newRouter(svc, owner).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/audit-log", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var body []map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body, 1)
	assert.Equal(t, "Owner", body[0]["userName"])
	assert.Equal(t, "Task", body[0]["entityType"])
	assert.Nil(t, body[0]["reason"])
}

func TestListForbiddenForViewer(t *testing.T) {
	svc := &stubLogService{entries: sampleEntries()}
	viewer := &rbac.RequestUser{UserID: 3, Role: rbac.RoleViewer, OrganizationID: 1}

	rr := httptest.NewRecorder()
	newRouter(svc, viewer).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/audit-log", nil))

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Zero(t, svc.calls)
}

func TestListRequiresUser(t *testing.T) {
	rr := httptest.NewRecorder()
	newRouter(&stubLogService{}, nil).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/audit-log", nil))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestListServiceError(t *testing.T) {
	svc := &stubLogService{err: errors.New("db down")}
	admin := &rbac.RequestUser{UserID: 2, Role: rbac.RoleAdmin, OrganizationID: 1}

	rr := httptest.NewRecorder()
	newRouter(svc, admin).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/audit-log", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "db down")
}

func TestExportCSV(t *testing.T) {
	svc := &stubLogService{entries: sampleEntries()}
	admin := &rbac.RequestUser{UserID: 2, Role: rbac.RoleAdmin, OrganizationID: 1}

	rr := httptest.NewRecorder()
	newRouter(svc, admin).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/audit-log/export.csv", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))
	lines := strings.Split(strings.TrimSpace(rr.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "1,2025-03-01T12:00:00Z,1,Owner,1,READ,Task,0,true,"))
}
