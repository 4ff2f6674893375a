package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helpdeskhq/helpdesk-service/internal/domain"
)

// ErrAlreadyClaimed is returned by Claim when the ticket exists but a
// different claim won the race.
var ErrAlreadyClaimed = errors.New("ticket already claimed")

// ErrNotOwner is returned by Delete when the ticket exists but belongs
// to someone else.
var ErrNotOwner = errors.New("ticket not owned by requester")

// ErrNotAssignee is returned by UpdateStatus when the ticket exists but
// is assigned to a different staff member (or unassigned).
var ErrNotAssignee = errors.New("ticket not assigned to staff member")

const ticketColumns = `id, external_key, requester_user_id, assignee_staff_id,
               title, message, status, priority, department, estimated_minutes,
               created_at, updated_at`

// TicketRepository encapsulates ticket persistence. The conditional
// mutations (Claim, UpdateStatus, Delete) carry their predicate inside
// the single SQL statement so concurrent callers cannot interleave
// between a check and a write.
type TicketRepository interface {
	// CreateRouted inserts the ticket and, when it carries an assignee,
	// increments that staff member's load counter in the same
	// transaction with an atomic in-place add.
	CreateRouted(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetByIDForOwner(ctx context.Context, id, ownerID string) (*domain.Ticket, error)
	GetByIDForAssignee(ctx context.Context, id, staffID string) (*domain.Ticket, error)
	GetUnassignedByID(ctx context.Context, id string) (*domain.Ticket, error)
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]domain.Ticket, error)
	ListByAssignee(ctx context.Context, staffID string, limit, offset int) ([]domain.Ticket, error)
	ListUnassigned(ctx context.Context, limit, offset int) ([]domain.Ticket, error)
	// Claim compare-and-sets the assignee: it succeeds only while
	// assignee_staff_id is still NULL. Returns ErrAlreadyClaimed when
	// the ticket exists with an assignee, pgx.ErrNoRows when it does
	// not exist.
	Claim(ctx context.Context, id, staffID string) (*domain.Ticket, error)
	// UpdateStatus updates status only when the ticket is assigned to
	// staffID. Returns ErrNotAssignee when the ticket exists under a
	// different assignee, pgx.ErrNoRows when it does not exist.
	UpdateStatus(ctx context.Context, id string, status domain.TicketStatus, staffID string) (*domain.Ticket, error)
	// Delete removes the ticket only when owned by ownerID. Returns
	// ErrNotOwner when the ticket exists under a different owner,
	// pgx.ErrNoRows when it does not exist.
	Delete(ctx context.Context, id, ownerID string) error
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates the repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) CreateRouted(ctx context.Context, ticket *domain.Ticket) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const insert = `
        INSERT INTO tickets (external_key, requester_user_id, assignee_staff_id, title, message, status, priority, department, estimated_minutes)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at, updated_at`
	if err := tx.QueryRow(ctx, insert,
		ticket.ExternalKey,
		ticket.RequesterID,
		ticket.AssigneeID,
		ticket.Title,
		ticket.Message,
		ticket.Status,
		ticket.Priority,
		ticket.Department,
		ticket.EstimatedMinutes,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt); err != nil {
		return err
	}

	if ticket.AssigneeID != nil {
		const bump = `UPDATE staff_members SET assigned_count = assigned_count + 1, updated_at=NOW() WHERE id=$1`
		cmd, err := tx.Exec(ctx, bump, *ticket.AssigneeID)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
	}

	return tx.Commit(ctx)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) GetByIDForOwner(ctx context.Context, id, ownerID string) (*domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1 AND requester_user_id=$2`
	return r.fetchSingle(ctx, query, id, ownerID)
}

func (r *ticketRepository) GetByIDForAssignee(ctx context.Context, id, staffID string) (*domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1 AND assignee_staff_id=$2`
	return r.fetchSingle(ctx, query, id, staffID)
}

func (r *ticketRepository) GetUnassignedByID(ctx context.Context, id string) (*domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1 AND assignee_staff_id IS NULL`
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, args...).Scan(
		&ticket.ID,
		&ticket.ExternalKey,
		&ticket.RequesterID,
		&ticket.AssigneeID,
		&ticket.Title,
		&ticket.Message,
		&ticket.Status,
		&ticket.Priority,
		&ticket.Department,
		&ticket.EstimatedMinutes,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + `
        FROM tickets WHERE requester_user_id=$1
        ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	return r.list(ctx, query, ownerID, normalizeLimit(limit), normalizeOffset(offset))
}

func (r *ticketRepository) ListByAssignee(ctx context.Context, staffID string, limit, offset int) ([]domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + `
        FROM tickets WHERE assignee_staff_id=$1
        ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	return r.list(ctx, query, staffID, normalizeLimit(limit), normalizeOffset(offset))
}

func (r *ticketRepository) ListUnassigned(ctx context.Context, limit, offset int) ([]domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + `
        FROM tickets WHERE assignee_staff_id IS NULL
        ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	return r.list(ctx, query, normalizeLimit(limit), normalizeOffset(offset))
}

func (r *ticketRepository) list(ctx context.Context, query string, args ...any) ([]domain.Ticket, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) Claim(ctx context.Context, id, staffID string) (*domain.Ticket, error) {
	const query = `
        UPDATE tickets SET assignee_staff_id=$2, updated_at=NOW()
        WHERE id=$1 AND assignee_staff_id IS NULL
        RETURNING ` + ticketColumns
	ticket, err := r.fetchSingle(ctx, query, id, staffID)
	if err == nil {
		return ticket, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	// Distinguish a lost race from a missing ticket.
	existing, probeErr := r.GetByID(ctx, id)
	if probeErr != nil {
		return nil, probeErr
	}
	if existing.AssigneeID != nil {
		return nil, ErrAlreadyClaimed
	}
	return nil, err
}

func (r *ticketRepository) UpdateStatus(ctx context.Context, id string, status domain.TicketStatus, staffID string) (*domain.Ticket, error) {
	const query = `
        UPDATE tickets SET status=$2, updated_at=NOW()
        WHERE id=$1 AND assignee_staff_id=$3
        RETURNING ` + ticketColumns
	ticket, err := r.fetchSingle(ctx, query, id, status, staffID)
	if err == nil {
		return ticket, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if _, probeErr := r.GetByID(ctx, id); probeErr != nil {
		return nil, probeErr
	}
	return nil, ErrNotAssignee
}

func (r *ticketRepository) Delete(ctx context.Context, id, ownerID string) error {
	const query = `DELETE FROM tickets WHERE id=$1 AND requester_user_id=$2`
	cmd, err := r.pool.Exec(ctx, query, id, ownerID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() > 0 {
		return nil
	}
	if _, probeErr := r.GetByID(ctx, id); probeErr != nil {
		return probeErr
	}
	return ErrNotOwner
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.ExternalKey,
			&ticket.RequesterID,
			&ticket.AssigneeID,
			&ticket.Title,
			&ticket.Message,
			&ticket.Status,
			&ticket.Priority,
			&ticket.Department,
			&ticket.EstimatedMinutes,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
