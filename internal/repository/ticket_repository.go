package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/labdesk/lab-issue-service/internal/domain"
)

// ErrTicketResolved is returned when an update would move a resolved ticket
// back to an earlier status.
var ErrTicketResolved = errors.New("ticket already resolved")

// dbtx is satisfied by both the pool and a transaction.
type dbtx interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TicketScope narrows a listing before in-memory filtering.
type TicketScope struct {
	ReporterID *int64
	AssigneeID *int64
	Statuses   []domain.TicketStatus
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	UpdateWithHistory(ctx context.Context, ticket *domain.Ticket, entries []*domain.TicketHistory) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	GetDetail(ctx context.Context, id int64) (*domain.TicketDetail, error)
	ListDetails(ctx context.Context, scope TicketScope) ([]domain.TicketDetail, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `t.id, t.reported_by, t.assigned_to, t.ip_address, t.title, t.description,
        t.status, t.priority, t.reported_at, t.resolved_at, t.resolution_notes, t.lab_name, t.computer_name`

const detailSelect = `SELECT ` + ticketColumns + `,
        r.id, r.username, r.role, r.email, r.full_name, r.is_active, r.created_at,
        a.id, a.username, a.role, a.email, a.full_name, a.is_active, a.created_at
    FROM tickets t
    JOIN users r ON r.id = t.reported_by
    LEFT JOIN users a ON a.id = t.assigned_to`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (reported_by, assigned_to, ip_address, title, description, status, priority,
            reported_at, resolved_at, resolution_notes, lab_name, computer_name)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
        RETURNING id`
	return r.pool.QueryRow(ctx, query,
		ticket.ReportedBy,
		ticket.AssignedTo,
		ticket.IPAddress,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.ReportedAt,
		ticket.ResolvedAt,
		ticket.ResolutionNotes,
		ticket.LabName,
		ticket.ComputerName,
	).Scan(&ticket.ID)
}

// UpdateWithHistory writes the mutable workflow fields and the audit entries in
// one transaction. Reporter and reported time never change.
// Nothing is persisted when any statement fails.
func (r *ticketRepository) UpdateWithHistory(ctx context.Context, ticket *domain.Ticket, entries []*domain.TicketHistory) error {
	return pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if err := updateTicket(ctx, tx, ticket); err != nil {
			return err
		}
		for _, entry := range entries {
			if err := insertHistory(ctx, tx, entry); err != nil {
				return fmt.Errorf("insert ticket history: %w", err)
			}
		}
		return nil
	})
}

// updateTicket refuses to move a Resolved row to any other status, so a
// stale write cannot reopen a ticket resolved in the meantime.
func updateTicket(ctx context.Context, db dbtx, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET assigned_to=$1, status=$2, priority=$3, resolved_at=$4, resolution_notes=$5,
            lab_name=$6, computer_name=$7
        WHERE id=$8 AND (status <> 'Resolved' OR $2 = 'Resolved')`
	cmd, err := db.Exec(ctx, query,
		ticket.AssignedTo,
		ticket.Status,
		ticket.Priority,
		ticket.ResolvedAt,
		ticket.ResolutionNotes,
		ticket.LabName,
		ticket.ComputerName,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tickets WHERE id=$1)`, ticket.ID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return pgx.ErrNoRows
	}
	return ErrTicketResolved
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets t WHERE t.id=$1`
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, id).Scan(ticketFields(&ticket)...); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) GetDetail(ctx context.Context, id int64) (*domain.TicketDetail, error) {
	return scanDetail(r.pool.QueryRow(ctx, detailSelect+` WHERE t.id=$1`, id))
}

func (r *ticketRepository) ListDetails(ctx context.Context, scope TicketScope) ([]domain.TicketDetail, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if scope.ReporterID != nil {
		args = append(args, *scope.ReporterID)
		clauses = append(clauses, fmt.Sprintf("t.reported_by=$%d", len(args)))
	}
	if scope.AssigneeID != nil {
		args = append(args, *scope.AssigneeID)
		clauses = append(clauses, fmt.Sprintf("t.assigned_to=$%d", len(args)))
	}
	if len(scope.Statuses) > 0 {
		placeholders := make([]string, len(scope.Statuses))
		for i, status := range scope.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("t.status IN (%s)", strings.Join(placeholders, ",")))
	}

	query := detailSelect + " WHERE " + strings.Join(clauses, " AND ") + " ORDER BY t.reported_at DESC, t.id DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var details []domain.TicketDetail
	for rows.Next() {
		detail, err := scanDetail(rows)
		if err != nil {
			return nil, err
		}
		details = append(details, *detail)
	}
	return details, rows.Err()
}

func ticketFields(t *domain.Ticket) []any {
	return []any{
		&t.ID,
		&t.ReportedBy,
		&t.AssignedTo,
		&t.IPAddress,
		&t.Title,
		&t.Description,
		&t.Status,
		&t.Priority,
		&t.ReportedAt,
		&t.ResolvedAt,
		&t.ResolutionNotes,
		&t.LabName,
		&t.ComputerName,
	}
}

// nullableUser receives the LEFT JOIN side of the assignee.
type nullableUser struct {
	ID        *int64
	Username  *string
	Role      *string
	Email     *string
	FullName  *string
	IsActive  *bool
	CreatedAt *time.Time
}

func (n nullableUser) toUser() *domain.User {
	if n.ID == nil {
		return nil
	}
	user := &domain.User{ID: *n.ID, FullName: n.FullName}
	if n.Username != nil {
		user.Username = *n.Username
	}
	if n.Role != nil {
		user.Role = domain.Role(*n.Role)
	}
	if n.Email != nil {
		user.Email = *n.Email
	}
	if n.IsActive != nil {
		user.IsActive = *n.IsActive
	}
	if n.CreatedAt != nil {
		user.CreatedAt = *n.CreatedAt
	}
	return user
}

func scanDetail(row pgx.Row) (*domain.TicketDetail, error) {
	var (
		detail   domain.TicketDetail
		reporter domain.User
		assignee nullableUser
	)
	dest := ticketFields(&detail.Ticket)
	dest = append(dest,
		&reporter.ID, &reporter.Username, &reporter.Role, &reporter.Email,
		&reporter.FullName, &reporter.IsActive, &reporter.CreatedAt,
		&assignee.ID, &assignee.Username, &assignee.Role, &assignee.Email,
		&assignee.FullName, &assignee.IsActive, &assignee.CreatedAt,
	)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	detail.Reporter = &reporter
	detail.Assignee = assignee.toUser()
	return &detail, nil
}
