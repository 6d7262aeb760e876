package tasks

import (
	"fmt"
	"strings"
	"time"

	"github.com/taskforge/taskforge/internal/shared"
)

// Status enumerates task workflow states.
type Status string

const (
	StatusTodo       Status = "TODO"
	StatusInProgress Status = "IN_PROGRESS"
	StatusDone       Status = "DONE"
)

// Category groups tasks on the board.
type Category string

const (
	CategoryWork        Category = "WORK"
	CategoryPersonal    Category = "PERSONAL"
	CategoryUrgent      Category = "URGENT"
	CategoryLowPriority Category = "LOW_PRIORITY"
)

// Task is a unit of work owned by one organization.
type Task struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	Status      Status     `json:"status"`
	Category    Category   `json:"category"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Order       int        `json:"order"`
	CreatedBy   int64      `json:"createdById"`
	UpdatedBy   *int64     `json:"-"`
	OrgID       int64      `json:"organizationId"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// SortDir is the list ordering direction.
type SortDir string

const (
	SortAsc  SortDir = "ASC"
	SortDesc SortDir = "DESC"
)

// Filters narrows task listings. Zero values mean no filter.
type Filters struct {
	Status   Status
	Category Category
	Search   string
	// SortBy is one of createdAt, updatedAt, title or dueDate; anything else
	// orders by the board position.
	SortBy  string
	SortDir SortDir
}

// CreateInput carries a new task.
type CreateInput struct {
	Title       string
	Description *string
	Status      Status
	Category    Category
	DueDate     *time.Time
	Order       *int
}

// UpdateInput is a partial update; nil fields are left untouched.
type UpdateInput struct {
	Title       *string
	Description *string
	Status      *Status
	Category    *Category
	DueDate     *time.Time
	Order       *int
}

// Apply copies the present fields of in onto t.
func (in UpdateInput) Apply(t *Task) {
	if in.Title != nil {
		t.Title = *in.Title
	}
	if in.Description != nil {
		t.Description = in.Description
	}
	if in.Status != nil {
		t.Status = *in.Status
	}
	if in.Category != nil {
		t.Category = *in.Category
	}
	if in.DueDate != nil {
		t.DueDate = in.DueDate
	}
	if in.Order != nil {
		t.Order = *in.Order
	}
}

// ParseStatus validates a status value.
func ParseStatus(v string) (Status, error) {
	switch s := Status(strings.ToUpper(strings.TrimSpace(v))); s {
	case StatusTodo, StatusInProgress, StatusDone:
		return s, nil
	default:
		return "", fmt.Errorf("%w: unknown status %q", shared.ErrValidation, v)
	}
}

// ParseCategory validates a category value.
func ParseCategory(v string) (Category, error) {
	switch c := Category(strings.ToUpper(strings.TrimSpace(v))); c {
	case CategoryWork, CategoryPersonal, CategoryUrgent, CategoryLowPriority:
		return c, nil
	default:
		return "", fmt.Errorf("%w: unknown category %q", shared.ErrValidation, v)
	}
}

// ParseSortDir accepts asc/desc in any case and defaults to ascending.
func ParseSortDir(v string) SortDir {
	if strings.EqualFold(v, string(SortDesc)) {
		return SortDesc
	}
	return SortAsc
}
