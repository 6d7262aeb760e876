package audithttp

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"

	"github.com/taskforge/taskforge/internal/audit"
	"github.com/taskforge/taskforge/internal/platform/httpx"
	"github.com/taskforge/taskforge/internal/rbac"
	"github.com/taskforge/taskforge/internal/shared"
)

// LogService defines the read contract for the audit log.
type LogService interface {
	List(ctx context.Context, user rbac.RequestUser) ([]audit.LogEntry, error)
}

// Handler serves the audit log.
type Handler struct {
	logger  *slog.Logger
	service LogService
	rbac    rbac.Middleware
}

// NewHandler creates a new audit handler.
func NewHandler(logger *slog.Logger, service LogService, rbacMW rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbacMW}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	entries, ok := h.load(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, entries)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	entries, ok := h.load(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := audit.WriteCSV(&buf, entries); err != nil {
		h.handleServerError(w, r, "encode csv", err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=\"audit-log.csv\"")
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Warn("write csv", slog.Any("error", err))
	}
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) ([]audit.LogEntry, bool) {
	user, ok := rbac.UserFromContext(r.Context())
	if !ok {
		audit.Fail(r, shared.ErrAuthenticationRequired)
		httpx.RespondError(w, shared.ErrAuthenticationRequired)
		return nil, false
	}
	if h.service == nil {
		http.Error(w, http.StatusText(http.StatusNotImplemented), http.StatusNotImplemented)
		return nil, false
	}
	entries, err := h.service.List(r.Context(), user)
	if err != nil {
		h.handleServerError(w, r, "load audit log", err)
		return nil, false
	}
	return entries, true
}

func (h *Handler) handleServerError(w http.ResponseWriter, r *http.Request, message string, err error) {
	audit.Fail(r, err)
	h.logger.Error(message, slog.Any("error", err))
	httpx.RespondError(w, err)
}
