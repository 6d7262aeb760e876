package audit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskforge/taskforge/internal/access"
	"github.com/taskforge/taskforge/internal/rbac"
	"github.com/taskforge/taskforge/internal/shared"
)

type stubStore struct {
	mu      sync.Mutex
	entries []Entry
	err     error
}

func (s *stubStore) Insert(ctx context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, entry)
	return nil
}

type stubSpool struct {
	entries []Entry
	err     error
}

func (s *stubSpool) Enqueue(ctx context.Context, entry Entry) error {
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, entry)
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func user1() *rbac.RequestUser {
	return &rbac.RequestUser{UserID: 1, Email: "u1@test.local", Role: rbac.RoleAdmin, OrganizationID: 1}
}

func TestDoRecordsSuccessfulRead(t *testing.T) {
	store := &stubStore{}
	rec := NewRecorder(RecorderConfig{Store: store, Logger: quietLogger()})

	out, err := Wrap(context.Background(), rec, Request{Method: "GET", Path: "/tasks", User: user1()}, func(ctx context.Context) ([]string, error) {
		return []string{"a"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, out)

	require.Len(t, store.entries, 1)
	e := store.entries[0]
	assert.Equal(t, int64(1), e.UserID)
	assert.Equal(t, "READ", e.Action)
	assert.Equal(t, "Task", e.Resource)
	assert.Equal(t, int64(0), e.ResourceID)
	assert.True(t, e.Allowed)
	assert.Nil(t, e.Reason)
	assert.Equal(t, "GET", e.Meta["method"])
	assert.Equal(t, "/tasks", e.Meta["path"])
	assert.Contains(t, e.Meta, "durationMs")
	assert.NotContains(t, e.Meta, "errorType")
}

func TestDoRecordsUpdateWithResourceID(t *testing.T) {
	store := &stubStore{}
	rec := NewRecorder(RecorderConfig{Store: store, Logger: quietLogger()})

	err := rec.Do(context.Background(), Request{Method: "PUT", Path: "/tasks/123", User: user1()}, func(context.Context) error { return nil })
	require.NoError(t, err)

	require.Len(t, store.entries, 1)
	assert.Equal(t, "UPDATE", store.entries[0].Action)
	assert.Equal(t, int64(123), store.entries[0].ResourceID)
}

func TestDoSkipsUnauditedPaths(t *testing.T) {
	store := &stubStore{}
	rec := NewRecorder(RecorderConfig{Store: store, Logger: quietLogger()})

	err := rec.Do(context.Background(), Request{Method: "POST", Path: "/auth/login", User: user1()}, func(context.Context) error { return nil })
	require.NoError(t, err)
	assert.Empty(t, store.entries)
}

func TestDoRecordsDenialAndReturnsOriginalError(t *testing.T) {
	store := &stubStore{}
	rec := NewRecorder(RecorderConfig{Store: store, Logger: quietLogger()})
	denied := &access.OrgScopeError{ResourceOrgID: 2, AccessibleOrgIDs: []int64{1}}

	err := rec.Do(context.Background(), Request{Method: "GET", Path: "/tasks/5", User: user1()}, func(context.Context) error { return denied })
	assert.Same(t, denied, err)

	require.Len(t, store.entries, 1)
	e := store.entries[0]
	assert.False(t, e.Allowed)
	require.NotNil(t, e.Reason)
	assert.Equal(t, denied.Error(), *e.Reason)
	assert.Equal(t, "OrgScopeDenied", e.Meta["errorType"])
	assert.Equal(t, int64(5), e.ResourceID)
}

func TestDoRecordsAuthenticationRequired(t *testing.T) {
	store := &stubStore{}
	rec := NewRecorder(RecorderConfig{Store: store, Logger: quietLogger()})

	err := rec.Do(context.Background(), Request{Method: "DELETE", Path: "/tasks/9", User: user1()}, func(context.Context) error {
		return shared.ErrAuthenticationRequired
	})
	assert.ErrorIs(t, err, shared.ErrAuthenticationRequired)
	require.Len(t, store.entries, 1)
	assert.Equal(t, "AuthenticationRequired", store.entries[0].Meta["errorType"])
}

func TestDoIgnoresNonAuthorizationFailures(t *testing.T) {
	store := &stubStore{}
	rec := NewRecorder(RecorderConfig{Store: store, Logger: quietLogger()})
	boom := errors.New("boom")

	assert.ErrorIs(t, rec.Do(context.Background(), Request{Method: "GET", Path: "/tasks/1", User: user1()}, func(context.Context) error { return shared.ErrNotFound }), shared.ErrNotFound)
	assert.Same(t, boom, rec.Do(context.Background(), Request{Method: "POST", Path: "/tasks", User: user1()}, func(context.Context) error { return boom }))
	assert.Empty(t, store.entries)
}

func TestDoWithoutUserWritesNothing(t *testing.T) {
	store := &stubStore{}
	rec := NewRecorder(RecorderConfig{Store: store, Logger: quietLogger()})

	err := rec.Do(context.Background(), Request{Method: "GET", Path: "/tasks"}, func(context.Context) error { return shared.ErrAuthenticationRequired })
	assert.ErrorIs(t, err, shared.ErrAuthenticationRequired)
	assert.Empty(t, store.entries)
}

func TestStoreFailureIsSuppressedAndSpooled(t *testing.T) {
	store := &stubStore{err: errors.New("db down")}
	spool := &stubSpool{}
	rec := NewRecorder(RecorderConfig{Store: store, Spool: spool, Logger: quietLogger()})

	err := rec.Do(context.Background(), Request{Method: "GET", Path: "/tasks", User: user1()}, func(context.Context) error { return nil })
	require.NoError(t, err)
	require.Len(t, spool.entries, 1)
	assert.True(t, spool.entries[0].Allowed)

	denied := fmt.Errorf("%w: role VIEWER", shared.ErrPermissionDenied)
	err = rec.Do(context.Background(), Request{Method: "GET", Path: "/tasks", User: user1()}, func(context.Context) error { return denied })
	assert.Same(t, denied, err)
	require.Len(t, spool.entries, 2)
	assert.False(t, spool.entries[1].Allowed)
}

func TestSpoolFailureIsSuppressed(t *testing.T) {
	rec := NewRecorder(RecorderConfig{Store: &stubStore{err: errors.New("db down")}, Spool: &stubSpool{err: errors.New("redis down")}, Logger: quietLogger()})

	err := rec.Do(context.Background(), Request{Method: "POST", Path: "/tasks", User: user1()}, func(context.Context) error { return nil })
	assert.NoError(t, err)
}

func TestCancelledContextStillPersists(t *testing.T) {
	store := &stubStore{}
	rec := NewRecorder(RecorderConfig{Store: store, Logger: quietLogger()})
	ctx, cancel := context.WithCancel(context.Background())

	err := rec.Do(ctx, Request{Method: "GET", Path: "/tasks", User: user1()}, func(context.Context) error {
		cancel()
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, store.entries, 1)
}

// newAuditedRouter mounts the recorder the way the API does: identity first,
// then the recorder, then permission guards.
func newAuditedRouter(rec *Recorder, user *rbac.RequestUser) http.Handler {
	guards := rbac.Middleware{OnDeny: Fail}
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if user != nil {
				req = req.WithContext(rbac.ContextWithUser(req.Context(), *user))
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Use(rec.Middleware)
	r.Route("/tasks", func(r chi.Router) {
		r.With(guards.RequireAny(rbac.PermTaskView)).Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		r.With(guards.RequireAny(rbac.PermTaskUpdate)).Put("/{id}", func(w http.ResponseWriter, r *http.Request) {
			err := &access.OrgScopeError{ResourceOrgID: 7, AccessibleOrgIDs: []int64{1}}
			Fail(r, err)
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		})
		r.With(guards.RequireAny(rbac.PermTaskView)).Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
			Fail(r, shared.ErrNotFound)
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		})
	})
	r.Post("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return r
}

func TestMiddlewareRecordsRead(t *testing.T) {
	store := &stubStore{}
	router := newAuditedRouter(NewRecorder(RecorderConfig{Store: store, Logger: quietLogger()}), user1())

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/tasks", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, store.entries, 1)
	assert.Equal(t, "READ", store.entries[0].Action)
	assert.True(t, store.entries[0].Allowed)
}

func TestMiddlewareRecordsGuardDenial(t *testing.T) {
	store := &stubStore{}
	viewer := &rbac.RequestUser{UserID: 3, Role: rbac.RoleViewer, OrganizationID: 1}
	router := newAuditedRouter(NewRecorder(RecorderConfig{Store: store, Logger: quietLogger()}), viewer)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/tasks/44", nil))

	assert.Equal(t, http.StatusForbidden, rr.Code)
	require.Len(t, store.entries, 1)
	e := store.entries[0]
	assert.False(t, e.Allowed)
	assert.Equal(t, "UPDATE", e.Action)
	assert.Equal(t, int64(44), e.ResourceID)
	assert.Equal(t, "PermissionDenied", e.Meta["errorType"])
	require.NotNil(t, e.Reason)
	assert.Contains(t, *e.Reason, "Access denied")
	assert.NotContains(t, rr.Body.String(), "Access denied")
}

func TestMiddlewareRecordsReportedScopeDenial(t *testing.T) {
	store := &stubStore{}
	router := newAuditedRouter(NewRecorder(RecorderConfig{Store: store, Logger: quietLogger()}), user1())

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/tasks/8", nil))

	assert.Equal(t, http.StatusForbidden, rr.Code)
	require.Len(t, store.entries, 1)
	require.NotNil(t, store.entries[0].Reason)
	assert.Equal(t, "Access denied: Resource org 7 not in accessible orgs [1]", *store.entries[0].Reason)
	assert.NotContains(t, rr.Body.String(), "accessible orgs")
}

func TestMiddlewareSkipsNotFoundAndUnauditedPaths(t *testing.T) {
	store := &stubStore{}
	router := newAuditedRouter(NewRecorder(RecorderConfig{Store: store, Logger: quietLogger()}), user1())

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/tasks/99", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/auth/login", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	assert.Empty(t, store.entries)
}

func TestMiddlewareSurvivesStoreFailure(t *testing.T) {
	router := newAuditedRouter(NewRecorder(RecorderConfig{Store: &stubStore{err: errors.New("db down")}, Logger: quietLogger()}), user1())

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/tasks", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}
