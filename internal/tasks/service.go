package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/taskforge/taskforge/internal/access"
	"github.com/taskforge/taskforge/internal/rbac"
	"github.com/taskforge/taskforge/internal/shared"
)

// Repository persists tasks. Update and Delete run check against the locked
// row before writing; a non-nil error from check aborts the write.
type Repository interface {
	List(ctx context.Context, orgIDs []int64, filters Filters) ([]Task, error)
	Get(ctx context.Context, id int64) (Task, error)
	Create(ctx context.Context, task Task) (Task, error)
	Update(ctx context.Context, id int64, mutate func(*Task) error) (Task, error)
	Delete(ctx context.Context, id int64, check func(Task) error) error
}

// Service applies organization scope and ownership rules to task operations.
type Service struct {
	repo Repository
}

// NewService builds a task service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns tasks within the user's accessible organizations.
func (s *Service) List(ctx context.Context, user rbac.RequestUser, filters Filters) ([]Task, error) {
	filters.Search = strings.TrimSpace(filters.Search)
	if filters.SortDir == "" {
		filters.SortDir = SortAsc
	}
	return s.repo.List(ctx, access.AccessibleOrgIDsFor(user), filters)
}

// Get returns one task, or an *access.OrgScopeError when it lies outside the
// user's scope.
func (s *Service) Get(ctx context.Context, user rbac.RequestUser, id int64) (Task, error) {
	task, err := s.repo.Get(ctx, id)
	if err != nil {
		return Task{}, err
	}
	if err := access.EnforceOrgScope(user, task.OrgID); err != nil {
		return Task{}, err
	}
	return task, nil
}

// Create stores a task in the user's own organization.
func (s *Service) Create(ctx context.Context, user rbac.RequestUser, input CreateInput) (Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return Task{}, fmt.Errorf("%w: title required", shared.ErrValidation)
	}
	if err := access.EnforceOrgScope(user, user.OrganizationID); err != nil {
		return Task{}, err
	}
	task := Task{
		Title:       title,
		Description: input.Description,
		Status:      input.Status,
		Category:    input.Category,
		DueDate:     input.DueDate,
		CreatedBy:   user.UserID,
		UpdatedBy:   &user.UserID,
		OrgID:       user.OrganizationID,
	}
	if task.Status == "" {
		task.Status = StatusTodo
	}
	if task.Category == "" {
		task.Category = CategoryWork
	}
	if input.Order != nil {
		task.Order = *input.Order
	}
	return s.repo.Create(ctx, task)
}

// Update applies a partial update if the user may modify the task.
func (s *Service) Update(ctx context.Context, user rbac.RequestUser, id int64, input UpdateInput) (Task, error) {
	if input.Title != nil && strings.TrimSpace(*input.Title) == "" {
		return Task{}, fmt.Errorf("%w: title required", shared.ErrValidation)
	}
	return s.repo.Update(ctx, id, func(task *Task) error {
		if err := canModify(user, *task); err != nil {
			return err
		}
		input.Apply(task)
		task.UpdatedBy = &user.UserID
		return nil
	})
}

// Delete removes a task if the user may modify it.
func (s *Service) Delete(ctx context.Context, user rbac.RequestUser, id int64) error {
	return s.repo.Delete(ctx, id, func(task Task) error {
		return canModify(user, task)
	})
}

func canModify(user rbac.RequestUser, task Task) error {
	owner := task.CreatedBy
	if !access.CanModifyResource(user, task.OrgID, &owner) {
		return shared.ErrPermissionDenied
	}
	return nil
}
