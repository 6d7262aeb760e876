package tasks

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskforge/taskforge/internal/platform/db"
	"github.com/taskforge/taskforge/internal/shared"
)

const taskColumns = `id, title, description, status, category, due_date, order_index, created_by, updated_by, org_id, created_at, updated_at`

var sortColumns = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"title":     "title",
	"dueDate":   "due_date",
}

// PGRepository stores tasks in PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL-backed repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// List returns tasks whose organization is one of orgIDs.
func (r *PGRepository) List(ctx context.Context, orgIDs []int64, filters Filters) ([]Task, error) {
	if len(orgIDs) == 0 {
		return []Task{}, nil
	}
	query, args := listQuery(orgIDs, filters)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, task)
	}
	return out, rows.Err()
}

func listQuery(orgIDs []int64, filters Filters) (string, []any) {
	var b strings.Builder
	args := make([]any, 0, len(orgIDs)+3)
	next := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	b.WriteString(`SELECT ` + taskColumns + ` FROM tasks WHERE org_id IN (`)
	for i, id := range orgIDs {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(next(id))
	}
	b.WriteString(")")
	if filters.Status != "" {
		b.WriteString(" AND status = " + next(string(filters.Status)))
	}
	if filters.Category != "" {
		b.WriteString(" AND category = " + next(string(filters.Category)))
	}
	if filters.Search != "" {
		p := next("%" + filters.Search + "%")
		b.WriteString(" AND (title LIKE " + p + " OR description LIKE " + p + ")")
	}

	column, ok := sortColumns[filters.SortBy]
	if !ok {
		column = "order_index"
	}
	dir := SortAsc
	if filters.SortDir == SortDesc {
		dir = SortDesc
	}
	b.WriteString(" ORDER BY " + column + " " + string(dir) + ", id " + string(dir))
	return b.String(), args
}

// Get fetches a task by id.
func (r *PGRepository) Get(ctx context.Context, id int64) (Task, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	task, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Task{}, shared.ErrNotFound
	}
	return task, err
}

// Create inserts task and returns it with generated fields populated.
func (r *PGRepository) Create(ctx context.Context, task Task) (Task, error) {
	const query = `INSERT INTO tasks (title, description, status, category, due_date, order_index, created_by, updated_by, org_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + taskColumns
	row := r.pool.QueryRow(ctx, query,
		task.Title, task.Description, string(task.Status), string(task.Category), task.DueDate, task.Order, task.CreatedBy, task.UpdatedBy, task.OrgID,
	)
	return scanTask(row)
}

// Update locks the row, lets mutate change it, and writes the result.
func (r *PGRepository) Update(ctx context.Context, id int64, mutate func(*Task) error) (Task, error) {
	var updated Task
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		task, err := lockTask(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := mutate(&task); err != nil {
			return err
		}
		const query = `UPDATE tasks SET title = $1, description = $2, status = $3, category = $4, due_date = $5, order_index = $6, updated_by = $7, updated_at = NOW()
WHERE id = $8
RETURNING ` + taskColumns
		updated, err = scanTask(tx.QueryRow(ctx, query,
			task.Title, task.Description, string(task.Status), string(task.Category), task.DueDate, task.Order, task.UpdatedBy, id,
		))
		return err
	})
	if err != nil {
		return Task{}, err
	}
	return updated, nil
}

// Delete locks the row, runs check, and removes it.
func (r *PGRepository) Delete(ctx context.Context, id int64, check func(Task) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		task, err := lockTask(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := check(task); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
		return err
	})
}

func lockTask(ctx context.Context, tx pgx.Tx, id int64) (Task, error) {
	task, err := scanTask(tx.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Task{}, shared.ErrNotFound
	}
	return task, err
}

func scanTask(row pgx.Row) (Task, error) {
	var (
		task     Task
		status   string
		category string
	)
	err := row.Scan(&task.ID, &task.Title, &task.Description, &status, &category, &task.DueDate, &task.Order,
		&task.CreatedBy, &task.UpdatedBy, &task.OrgID, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return Task{}, err
	}
	task.Status = Status(status)
	task.Category = Category(category)
	return task, nil
}

var _ Repository = (*PGRepository)(nil)
