package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/fieldverify-platform/caseflow/internal/apperrors"
	"github.com/fieldverify-platform/caseflow/internal/model"
)

// uniqueViolation is the Postgres error code for unique_violation.
const uniqueViolation = "23505"

// ReportRepository handles daily status report persistence. The table
// carries a UNIQUE (user_id, report_date) constraint so that two
// near-simultaneous submissions cannot both land.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository creates a new report repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Create inserts a daily report. A duplicate (user, date) insert is
// reported as a conflict.
func (r *ReportRepository) Create(ctx context.Context, report *model.DailyReport) error {
	query := `
		INSERT INTO daily_reports (
			id, user_id, report_date, assigned_today, total_cases,
			completed_today, completed_total, remaining_open,
			completed_cases, submitted_at
		) VALUES (
			:id, :user_id, :report_date, :assigned_today, :total_cases,
			:completed_today, :completed_total, :remaining_open,
			:completed_cases, :submitted_at
		)
	`

	_, err := r.db.NamedExecContext(ctx, query, report)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return apperrors.Conflict("report already submitted for this day").
				WithDetail("user_id", report.UserID).
				WithDetail("report_date", report.ReportDate)
		}
		return fmt.Errorf("failed to create daily report: %w", err)
	}
	return nil
}

// GetByUserAndDate retrieves the report for one (user, date), if any.
func (r *ReportRepository) GetByUserAndDate(ctx context.Context, userID, date string) (*model.DailyReport, error) {
	var report model.DailyReport
	query := `SELECT * FROM daily_reports WHERE user_id = $1 AND report_date = $2`

	err := r.db.GetContext(ctx, &report, query, userID, date)
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("daily report")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get daily report: %w", err)
	}
	return &report, nil
}

// ListByUser retrieves a user's report history, newest first.
func (r *ReportRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*model.DailyReport, error) {
	if limit <= 0 {
		limit = 30
	}

	var reports []*model.DailyReport
	query := `
		SELECT * FROM daily_reports
		WHERE user_id = $1
		ORDER BY report_date DESC
		LIMIT $2
	`

	if err := r.db.SelectContext(ctx, &reports, query, userID, limit); err != nil {
		return nil, fmt.Errorf("failed to list daily reports: %w", err)
	}
	return reports, nil
}
