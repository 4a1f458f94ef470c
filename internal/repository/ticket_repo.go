package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/fieldverify-platform/caseflow/internal/apperrors"
	"github.com/fieldverify-platform/caseflow/internal/model"
)

// TicketRepository handles helpdesk ticket persistence.
type TicketRepository struct {
	db *sqlx.DB
}

// NewTicketRepository creates a new ticket repository.
func NewTicketRepository(db *sqlx.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

// Create creates a new ticket.
func (r *TicketRepository) Create(ctx context.Context, t *model.Ticket) error {
	query := `
		INSERT INTO tickets (
			id, subject, message, status, user_id, user_name, dev_comments,
			created_at, updated_at
		) VALUES (
			:id, :subject, :message, :status, :user_id, :user_name, :dev_comments,
			:created_at, :updated_at
		)
	`

	_, err := r.db.NamedExecContext(ctx, query, r.toDBTicket(t))
	if err != nil {
		return fmt.Errorf("failed to create ticket: %w", err)
	}
	return nil
}

// Get retrieves a ticket by ID.
func (r *TicketRepository) Get(ctx context.Context, id string) (*model.Ticket, error) {
	var row dbTicket
	query := `SELECT * FROM tickets WHERE id = $1`

	err := r.db.GetContext(ctx, &row, query, id)
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("ticket").WithDetail("id", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}

	return r.fromDBTicket(&row), nil
}

// Update updates a ticket's status and dev comments.
func (r *TicketRepository) Update(ctx context.Context, t *model.Ticket) error {
	query := `
		UPDATE tickets SET
			status = :status,
			dev_comments = :dev_comments,
			updated_at = :updated_at
		WHERE id = :id
	`

	result, err := r.db.NamedExecContext(ctx, query, r.toDBTicket(t))
	if err != nil {
		return fmt.Errorf("failed to update ticket: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperrors.NotFound("ticket").WithDetail("id", t.ID)
	}

	return nil
}

// ListByUser retrieves a user's tickets, newest first.
func (r *TicketRepository) ListByUser(ctx context.Context, userID string) ([]*model.Ticket, error) {
	var rows []dbTicket
	query := `SELECT * FROM tickets WHERE user_id = $1 ORDER BY created_at DESC`

	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}

	tickets := make([]*model.Ticket, len(rows))
	for i := range rows {
		tickets[i] = r.fromDBTicket(&rows[i])
	}
	return tickets, nil
}

// ListAll retrieves all tickets, open first then newest first, for the
// dev-side queue.
func (r *TicketRepository) ListAll(ctx context.Context) ([]*model.Ticket, error) {
	var rows []dbTicket
	query := `
		SELECT * FROM tickets
		ORDER BY CASE status WHEN 'open' THEN 0 WHEN 'in_progress' THEN 1 ELSE 2 END,
			created_at DESC
	`

	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}

	tickets := make([]*model.Ticket, len(rows))
	for i := range rows {
		tickets[i] = r.fromDBTicket(&rows[i])
	}
	return tickets, nil
}

type dbTicket struct {
	ID          string         `db:"id"`
	Subject     string         `db:"subject"`
	Message     string         `db:"message"`
	Status      string         `db:"status"`
	UserID      string         `db:"user_id"`
	UserName    sql.NullString `db:"user_name"`
	DevComments sql.NullString `db:"dev_comments"`
	CreatedAt   sql.NullTime   `db:"created_at"`
	UpdatedAt   sql.NullTime   `db:"updated_at"`
}

func (r *TicketRepository) toDBTicket(t *model.Ticket) *dbTicket {
	row := &dbTicket{
		ID:        t.ID,
		Subject:   t.Subject,
		Message:   t.Message,
		Status:    string(t.Status),
		UserID:    t.UserID,
		CreatedAt: sql.NullTime{Time: t.CreatedAt, Valid: true},
		UpdatedAt: sql.NullTime{Time: t.UpdatedAt, Valid: true},
	}
	if t.UserName != "" {
		row.UserName = sql.NullString{String: t.UserName, Valid: true}
	}
	if t.DevComments != "" {
		row.DevComments = sql.NullString{String: t.DevComments, Valid: true}
	}
	return row
}

func (r *TicketRepository) fromDBTicket(row *dbTicket) *model.Ticket {
	t := &model.Ticket{
		ID:        row.ID,
		Subject:   row.Subject,
		Message:   row.Message,
		Status:    model.TicketStatus(row.Status),
		UserID:    row.UserID,
		CreatedAt: row.CreatedAt.Time,
		UpdatedAt: row.UpdatedAt.Time,
	}
	if row.UserName.Valid {
		t.UserName = row.UserName.String
	}
	if row.DevComments.Valid {
		t.DevComments = row.DevComments.String
	}
	return t
}
