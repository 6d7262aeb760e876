package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskforge/taskforge/internal/rbac"
	"github.com/taskforge/taskforge/internal/shared"
)

const uniqueViolation = "23505"

// Repository defines persistence operations for auth module.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindOrganization(ctx context.Context, id int64) (*Organization, error)
	CreateUser(ctx context.Context, input NewUser) (*User, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// FindByEmail fetches a user and the parent of their organization.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	const query = `SELECT u.id, u.email, u.name, u.password_hash, u.role, u.org_id, o.parent_id, u.created_at, u.updated_at
FROM users u
JOIN organizations o ON o.id = u.org_id
WHERE u.email = $1`
	var (
		user User
		role string
	)
	err := r.pool.QueryRow(ctx, query, email).Scan(
		&user.ID, &user.Email, &user.Name, &user.PasswordHash, &role, &user.OrgID, &user.ParentOrgID, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	parsed, err := rbac.ParseRole(role)
	if err != nil {
		return nil, err
	}
	user.Role = parsed
	return &user, nil
}

// FindOrganization fetches an organization by id.
func (r *PGRepository) FindOrganization(ctx context.Context, id int64) (*Organization, error) {
	var org Organization
	err := r.pool.QueryRow(ctx, `SELECT id, name, parent_id FROM organizations WHERE id = $1`, id).Scan(&org.ID, &org.Name, &org.ParentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &org, nil
}

// CreateUser inserts a new account. A taken email yields shared.ErrDuplicate.
func (r *PGRepository) CreateUser(ctx context.Context, input NewUser) (*User, error) {
	const query = `INSERT INTO users (email, name, password_hash, role, org_id)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, created_at, updated_at`
	user := User{
		Email:        input.Email,
		Name:         input.Name,
		PasswordHash: input.PasswordHash,
		Role:         input.Role,
		OrgID:        input.OrgID,
	}
	err := r.pool.QueryRow(ctx, query, input.Email, input.Name, input.PasswordHash, string(input.Role), input.OrgID).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, shared.ErrDuplicate
		}
		return nil, err
	}
	return &user, nil
}

var _ Repository = (*PGRepository)(nil)
