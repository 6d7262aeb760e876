package audit

import (
	"context"
	"net/http"

	"github.com/taskforge/taskforge/internal/rbac"
	"github.com/taskforge/taskforge/internal/shared"
)

type outcomeKey struct{}

type outcome struct {
	err error
}

// Fail reports the error a handler or guard is answering r with. The first
// reported error wins. It is a no-op outside Recorder.Middleware.
func Fail(r *http.Request, err error) {
	FailContext(r.Context(), err)
}

// FailContext is Fail for code that only holds the request context.
func FailContext(ctx context.Context, err error) {
	o, ok := ctx.Value(outcomeKey{}).(*outcome)
	if !ok || o.err != nil {
		return
	}
	o.err = err
}

// Middleware audits requests on the audited surfaces. It must run after the
// request user is bound and before permission guards.
func (r *Recorder) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		uri := req.URL.RequestURI()
		if !IsAudited(uri) {
			next.ServeHTTP(w, req)
			return
		}
		o := &outcome{}
		ctx := context.WithValue(req.Context(), outcomeKey{}, o)
		audited := Request{Method: req.Method, Path: uri}
		if user, ok := rbac.UserFromContext(ctx); ok {
			audited.User = &user
		}
		_ = r.Do(ctx, audited, func(ctx context.Context) error {
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, req.WithContext(ctx))
			return o.resolve(rec.status)
		})
	})
}

func (o *outcome) resolve(status int) error {
	if o.err != nil {
		return o.err
	}
	switch {
	case status == http.StatusUnauthorized:
		return shared.ErrAuthenticationRequired
	case status == http.StatusForbidden:
		return shared.ErrPermissionDenied
	case status >= http.StatusBadRequest:
		return errUnreported{status: status}
	default:
		return nil
	}
}

// errUnreported stands in for a non-authorization failure a handler answered
// without calling Fail.
type errUnreported struct {
	status int
}

func (e errUnreported) Error() string {
	return http.StatusText(e.status)
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (s *statusRecorder) WriteHeader(status int) {
	if !s.wroteHeader {
		s.status = status
		s.wroteHeader = true
	}
	s.ResponseWriter.WriteHeader(status)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	s.wroteHeader = true
	return s.ResponseWriter.Write(b)
}
