package repository

import (
	"context"
	"database/sql"

	"github.com/labdesk/lab-issue-service/internal/domain"
)

// RosterRepository answers role headcount questions for the dashboards.
// Deactivated accounts are included so their resolved tickets still count.
type RosterRepository interface {
	CountByRole(ctx context.Context, role domain.Role) (int, error)
	ListByRole(ctx context.Context, role domain.Role) ([]domain.User, error)
}

type rosterRepository struct {
	db *sql.DB
}

// NewRosterRepository builds a roster reader over a database/sql handle.
func NewRosterRepository(db *sql.DB) RosterRepository {
	return &rosterRepository{db: db}
}

func (r *rosterRepository) CountByRole(ctx context.Context, role domain.Role) (int, error) {
	const query = `SELECT COUNT(*) FROM users WHERE role = $1`

	var count int
	if err := r.db.QueryRowContext(ctx, query, string(role)).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *rosterRepository) ListByRole(ctx context.Context, role domain.Role) ([]domain.User, error) {
	const query = `
		SELECT id, username, role, email, full_name, is_active, created_at
		FROM users
		WHERE role = $1
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, string(role))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var (
			user     domain.User
			roleName string
			fullName sql.NullString
		)
		if err := rows.Scan(&user.ID, &user.Username, &roleName, &user.Email, &fullName, &user.IsActive, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.Role = domain.Role(roleName)
		if fullName.Valid {
			name := fullName.String
			user.FullName = &name
		}
		users = append(users, user)
	}
	return users, rows.Err()
}
