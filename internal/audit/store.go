package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// SQLStore persists entries in the audit_logs table.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore wraps a database handle.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Insert appends entry.
func (s *SQLStore) Insert(ctx context.Context, entry Entry) error {
	if s == nil || s.db == nil {
		return errors.New("audit: store not initialised")
	}
	meta, err := json.Marshal(entry.Meta)
	if err != nil {
		return fmt.Errorf("audit: encode meta: %w", err)
	}
	var reason sql.NullString
	if entry.Reason != nil {
		reason = sql.NullString{String: *entry.Reason, Valid: true}
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO audit_logs (ts, user_id, org_id, action, resource, resource_id, allowed, reason, meta) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.Timestamp, entry.UserID, entry.OrgID, entry.Action, entry.Resource, entry.ResourceID, entry.Allowed, reason, meta,
	)
	if err != nil {
		return fmt.Errorf("audit: insert: %w", err)
	}
	return nil
}

// ListByOrgs returns entries for orgIDs joined to the acting user's name,
// newest first.
func (s *SQLStore) ListByOrgs(ctx context.Context, orgIDs []int64) ([]Row, error) {
	if len(orgIDs) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(orgIDs))
	args := make([]any, len(orgIDs))
	for i, id := range orgIDs {
		placeholders[i] = "$" + strconv.Itoa(i+1)
		args[i] = id
	}
	query := `SELECT a.id, a.ts, a.user_id, a.org_id, a.action, a.resource, a.resource_id, a.allowed, a.reason, a.meta, u.name
FROM audit_logs a
LEFT JOIN users u ON u.id = a.user_id
WHERE a.org_id IN (` + strings.Join(placeholders, ", ") + `)
ORDER BY a.ts DESC, a.id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: list: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var (
			row    Row
			reason sql.NullString
			name   sql.NullString
			meta   []byte
		)
		if err := rows.Scan(&row.ID, &row.Timestamp, &row.UserID, &row.OrgID, &row.Action, &row.Resource, &row.ResourceID, &row.Allowed, &reason, &meta, &name); err != nil {
			return nil, fmt.Errorf("audit: scan: %w", err)
		}
		if reason.Valid {
			r := reason.String
			row.Reason = &r
		}
		if name.Valid {
			n := name.String
			row.UserName = &n
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &row.Meta); err != nil {
				return nil, fmt.Errorf("audit: decode meta: %w", err)
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: list: %w", err)
	}
	return out, nil
}

var (
	_ Store      = (*SQLStore)(nil)
	_ Repository = (*SQLStore)(nil)
)
