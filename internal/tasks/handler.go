package tasks

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/taskforge/taskforge/internal/audit"
	"github.com/taskforge/taskforge/internal/platform/httpx"
	"github.com/taskforge/taskforge/internal/rbac"
	"github.com/taskforge/taskforge/internal/shared"
)

// TaskService is the contract the HTTP layer needs.
type TaskService interface {
	List(ctx context.Context, user rbac.RequestUser, filters Filters) ([]Task, error)
	Get(ctx context.Context, user rbac.RequestUser, id int64) (Task, error)
	Create(ctx context.Context, user rbac.RequestUser, input CreateInput) (Task, error)
	Update(ctx context.Context, user rbac.RequestUser, id int64, input UpdateInput) (Task, error)
	Delete(ctx context.Context, user rbac.RequestUser, id int64) error
}

// Handler exposes task endpoints.
type Handler struct {
	logger    *slog.Logger
	service   TaskService
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler constructs a task handler.
func NewHandler(logger *slog.Logger, service TaskService, rbacMW rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbacMW, validator: validator.New()}
}

// MountRoutes registers task routes on r.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.RequireAny(rbac.PermTaskView)).Get("/", h.handleList)
	r.With(h.rbac.RequireAny(rbac.PermTaskView)).Get("/{id}", h.handleGet)
	r.With(h.rbac.RequireAny(rbac.PermTaskCreate)).Post("/", h.handleCreate)
	r.With(h.rbac.RequireAny(rbac.PermTaskUpdate)).Put("/{id}", h.handleUpdate)
	r.With(h.rbac.RequireAny(rbac.PermTaskDelete)).Delete("/{id}", h.handleDelete)
}

type createForm struct {
	Title       string     `json:"title" validate:"required,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=2000"`
	Status      string     `json:"status" validate:"omitempty,oneof=TODO IN_PROGRESS DONE"`
	Category    string     `json:"category" validate:"omitempty,oneof=WORK PERSONAL URGENT LOW_PRIORITY"`
	DueDate     *time.Time `json:"dueDate"`
	Order       *int       `json:"order" validate:"omitempty,gte=0"`
}

type updateForm struct {
	Title       *string    `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=2000"`
	Status      *string    `json:"status" validate:"omitempty,oneof=TODO IN_PROGRESS DONE"`
	Category    *string    `json:"category" validate:"omitempty,oneof=WORK PERSONAL URGENT LOW_PRIORITY"`
	DueDate     *time.Time `json:"dueDate"`
	Order       *int       `json:"order" validate:"omitempty,gte=0"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	filters := Filters{
		Search:  q.Get("search"),
		SortBy:  q.Get("sortBy"),
		SortDir: ParseSortDir(q.Get("sortDir")),
	}
	if v := q.Get("status"); v != "" {
		status, err := ParseStatus(v)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		filters.Status = status
	}
	if v := q.Get("category"); v != "" {
		category, err := ParseCategory(v)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		filters.Category = category
	}
	list, err := h.service.List(r.Context(), user, filters)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	task, err := h.service.Get(r.Context(), user, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, task)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}
	var form createForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := httpx.Validate(h.validator, form); err != nil {
		h.fail(w, r, err)
		return
	}
	task, err := h.service.Create(r.Context(), user, CreateInput{
		Title:       form.Title,
		Description: form.Description,
		Status:      Status(form.Status),
		Category:    Category(form.Category),
		DueDate:     form.DueDate,
		Order:       form.Order,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, task)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var form updateForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := httpx.Validate(h.validator, form); err != nil {
		h.fail(w, r, err)
		return
	}
	input := UpdateInput{
		Title:       form.Title,
		Description: form.Description,
		DueDate:     form.DueDate,
		Order:       form.Order,
	}
	if form.Status != nil {
		status := Status(*form.Status)
		input.Status = &status
	}
	if form.Category != nil {
		category := Category(*form.Category)
		input.Category = &category
	}
	task, err := h.service.Update(r.Context(), user, id, input)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, task)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.service.Delete(r.Context(), user, id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) user(w http.ResponseWriter, r *http.Request) (rbac.RequestUser, bool) {
	user, ok := rbac.UserFromContext(r.Context())
	if !ok {
		h.fail(w, r, shared.ErrAuthenticationRequired)
	}
	return user, ok
}

// fail reports err to the audit recorder and writes the mapped response.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	audit.Fail(r, err)
	if httpx.StatusFor(err) == http.StatusInternalServerError {
		h.logger.Error("task request failed", slog.String("method", r.Method), slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
