package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/fieldverify-platform/caseflow/internal/model"
)

// MailLogRepository handles the append-only sent-mail log.
type MailLogRepository struct {
	db *sqlx.DB
}

// NewMailLogRepository creates a new mail log repository.
func NewMailLogRepository(db *sqlx.DB) *MailLogRepository {
	return &MailLogRepository{db: db}
}

// Append adds one sent-mail entry. There is no update or delete.
func (r *MailLogRepository) Append(ctx context.Context, entry *model.MailLogEntry) error {
	query := `
		INSERT INTO sent_mail_log (
			id, case_id, reference_no, subject, recipient, cc, channel, sent_at, sent_by
		) VALUES (
			:id, :case_id, :reference_no, :subject, :recipient, :cc, :channel, :sent_at, :sent_by
		)
	`

	_, err := r.db.NamedExecContext(ctx, query, entry)
	if err != nil {
		return fmt.Errorf("failed to append mail log entry: %w", err)
	}
	return nil
}

// ListByCase retrieves the mail trail of one case, newest first.
func (r *MailLogRepository) ListByCase(ctx context.Context, caseID string) ([]*model.MailLogEntry, error) {
	var entries []*model.MailLogEntry
	query := `SELECT * FROM sent_mail_log WHERE case_id = $1 ORDER BY sent_at DESC`

	if err := r.db.SelectContext(ctx, &entries, query, caseID); err != nil {
		return nil, fmt.Errorf("failed to list mail log: %w", err)
	}
	return entries, nil
}

// List retrieves recent entries across all cases.
func (r *MailLogRepository) List(ctx context.Context, limit int) ([]*model.MailLogEntry, error) {
	if limit <= 0 {
		limit = 100
	}

	var entries []*model.MailLogEntry
	query := `SELECT * FROM sent_mail_log ORDER BY sent_at DESC LIMIT $1`

	if err := r.db.SelectContext(ctx, &entries, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list mail log: %w", err)
	}
	return entries, nil
}
