// Package repository provides the data access layer for caseflow.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/fieldverify-platform/caseflow/internal/apperrors"
	"github.com/fieldverify-platform/caseflow/internal/model"
)

// CaseRepository handles verification-case persistence.
type CaseRepository struct {
	db *sqlx.DB
}

// NewCaseRepository creates a new case repository.
func NewCaseRepository(db *sqlx.DB) *CaseRepository {
	return &CaseRepository{db: db}
}

// Create creates a new case.
func (r *CaseRepository) Create(ctx context.Context, caseObj *model.Case) error {
	query := `
		INSERT INTO cases (
			id, reference_no, type, status, candidate_name, address, client_name,
			assigned_to, assigned_at, photos, filled_form_ref, filled_form_url,
			form_completed, photo_report_url, submitted_at, audit_feedback,
			photos_to_redo, completed_at, finalized_at, finalized_by,
			created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :reference_no, :type, :status, :candidate_name, :address, :client_name,
			:assigned_to, :assigned_at, :photos, :filled_form_ref, :filled_form_url,
			:form_completed, :photo_report_url, :submitted_at, :audit_feedback,
			:photos_to_redo, :completed_at, :finalized_at, :finalized_by,
			:created_at, :updated_at, :created_by, :updated_by
		)
	`

	_, err := r.db.NamedExecContext(ctx, query, r.toDBCase(caseObj))
	if err != nil {
		return fmt.Errorf("failed to create case: %w", err)
	}
	return nil
}

// Get retrieves a case by ID.
func (r *CaseRepository) Get(ctx context.Context, id string) (*model.Case, error) {
	var row dbCase
	query := `SELECT * FROM cases WHERE id = $1`

	err := r.db.GetContext(ctx, &row, query, id)
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("case").WithDetail("id", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get case: %w", err)
	}

	return r.fromDBCase(&row), nil
}

// Update overwrites the mutable fields of an existing case.
func (r *CaseRepository) Update(ctx context.Context, caseObj *model.Case) error {
	query := `
		UPDATE cases SET
			status = :status,
			candidate_name = :candidate_name,
			address = :address,
			client_name = :client_name,
			assigned_to = :assigned_to,
			assigned_at = :assigned_at,
			photos = :photos,
			filled_form_ref = :filled_form_ref,
			filled_form_url = :filled_form_url,
			form_completed = :form_completed,
			photo_report_url = :photo_report_url,
			submitted_at = :submitted_at,
			audit_feedback = :audit_feedback,
			photos_to_redo = :photos_to_redo,
			completed_at = :completed_at,
			finalized_at = :finalized_at,
			finalized_by = :finalized_by,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id
	`

	result, err := r.db.NamedExecContext(ctx, query, r.toDBCase(caseObj))
	if err != nil {
		return fmt.Errorf("failed to update case: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperrors.NotFound("case").WithDetail("id", caseObj.ID)
	}

	return nil
}

// Complete transitions a case from audit to completed with a conditional
// update: a second concurrent approval of the same case loses the race and
// gets a conflict instead of a silent double write.
func (r *CaseRepository) Complete(ctx context.Context, id, finalizedBy string, at time.Time) error {
	query := `
		UPDATE cases SET
			status = $2,
			completed_at = $3,
			finalized_at = $3,
			finalized_by = $4,
			updated_at = $3,
			updated_by = $4
		WHERE id = $1 AND status = $5
	`

	result, err := r.db.ExecContext(ctx, query, id, model.StatusCompleted, at, finalizedBy, model.StatusAudit)
	if err != nil {
		return fmt.Errorf("failed to complete case: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperrors.Conflict("case is not awaiting approval").WithDetail("id", id)
	}

	return nil
}

// List retrieves cases based on filter criteria.
func (r *CaseRepository) List(ctx context.Context, filter *model.CaseFilter) (*model.CaseListResult, error) {
	conditions := []string{"1=1"}
	var args []interface{}
	argIndex := 1

	if filter.AssignedTo != "" {
		conditions = append(conditions, fmt.Sprintf("assigned_to = $%d", argIndex))
		args = append(args, filter.AssignedTo)
		argIndex++
	}

	if len(filter.Status) > 0 {
		conditions = append(conditions, fmt.Sprintf("status = ANY($%d)", argIndex))
		statuses := make([]string, len(filter.Status))
		for i, s := range filter.Status {
			statuses[i] = string(s)
		}
		args = append(args, pq.Array(statuses))
		argIndex++
	}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(candidate_name ILIKE $%d OR reference_no ILIKE $%d)", argIndex, argIndex))
		args = append(args, "%"+filter.Search+"%")
		argIndex++
	}

	whereClause := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM cases WHERE %s", whereClause)
	var total int64
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, fmt.Errorf("failed to count cases: %w", err)
	}

	sortBy := "created_at"
	switch filter.SortBy {
	case "reference_no", "candidate_name", "assigned_at", "updated_at":
		sortBy = filter.SortBy
	}
	sortOrder := "DESC"
	if filter.SortOrder == "asc" {
		sortOrder = "ASC"
	}

	limit := 50
	if filter.Limit > 0 {
		limit = filter.Limit
	}
	offset := 0
	if filter.Offset > 0 {
		offset = filter.Offset
	}

	query := fmt.Sprintf(`
		SELECT * FROM cases
		WHERE %s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d
	`, whereClause, sortBy, sortOrder, argIndex, argIndex+1)

	args = append(args, limit, offset)

	var rows []dbCase
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list cases: %w", err)
	}

	cases := make([]*model.Case, len(rows))
	for i := range rows {
		cases[i] = r.fromDBCase(&rows[i])
	}

	return &model.CaseListResult{
		Cases:   cases,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: int64(offset+limit) < total,
	}, nil
}

// ListByAssignee retrieves the full case set of one user, the working set
// for DSR recomputation and plan reconciliation.
func (r *CaseRepository) ListByAssignee(ctx context.Context, userID string) ([]*model.Case, error) {
	var rows []dbCase
	query := `SELECT * FROM cases WHERE assigned_to = $1 ORDER BY assigned_at`

	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list cases for user: %w", err)
	}

	cases := make([]*model.Case, len(rows))
	for i := range rows {
		cases[i] = r.fromDBCase(&rows[i])
	}
	return cases, nil
}

// dbCase represents the database schema for cases.
type dbCase struct {
	ID             string         `db:"id"`
	ReferenceNo    string         `db:"reference_no"`
	Type           string         `db:"type"`
	Status         string         `db:"status"`
	CandidateName  string         `db:"candidate_name"`
	Address        sql.NullString `db:"address"`
	ClientName     sql.NullString `db:"client_name"`
	AssignedTo     sql.NullString `db:"assigned_to"`
	AssignedAt     *time.Time     `db:"assigned_at"`
	Photos         []byte         `db:"photos"`
	FilledFormRef  sql.NullString `db:"filled_form_ref"`
	FilledFormURL  sql.NullString `db:"filled_form_url"`
	FormCompleted  bool           `db:"form_completed"`
	PhotoReportURL sql.NullString `db:"photo_report_url"`
	SubmittedAt    *time.Time     `db:"submitted_at"`
	AuditFeedback  sql.NullString `db:"audit_feedback"`
	PhotosToRedo   []byte         `db:"photos_to_redo"`
	CompletedAt    *time.Time     `db:"completed_at"`
	FinalizedAt    *time.Time     `db:"finalized_at"`
	FinalizedBy    sql.NullString `db:"finalized_by"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
	CreatedBy      string         `db:"created_by"`
	UpdatedBy      sql.NullString `db:"updated_by"`
}

func (r *CaseRepository) toDBCase(c *model.Case) *dbCase {
	row := &dbCase{
		ID:            c.ID,
		ReferenceNo:   c.ReferenceNo,
		Type:          string(c.Type),
		Status:        string(c.Status),
		CandidateName: c.CandidateName,
		AssignedAt:    c.AssignedAt,
		FormCompleted: c.FormCompleted,
		SubmittedAt:   c.SubmittedAt,
		CompletedAt:   c.CompletedAt,
		FinalizedAt:   c.FinalizedAt,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
		CreatedBy:     c.CreatedBy,
	}

	if c.Address != "" {
		row.Address = sql.NullString{String: c.Address, Valid: true}
	}
	if c.ClientName != "" {
		row.ClientName = sql.NullString{String: c.ClientName, Valid: true}
	}
	if c.AssignedTo != "" {
		row.AssignedTo = sql.NullString{String: c.AssignedTo, Valid: true}
	}
	if c.FilledFormRef != "" {
		row.FilledFormRef = sql.NullString{String: c.FilledFormRef, Valid: true}
	}
	if c.FilledFormURL != "" {
		row.FilledFormURL = sql.NullString{String: c.FilledFormURL, Valid: true}
	}
	if c.PhotoReportURL != "" {
		row.PhotoReportURL = sql.NullString{String: c.PhotoReportURL, Valid: true}
	}
	if c.AuditFeedback != "" {
		row.AuditFeedback = sql.NullString{String: c.AuditFeedback, Valid: true}
	}
	if c.FinalizedBy != "" {
		row.FinalizedBy = sql.NullString{String: c.FinalizedBy, Valid: true}
	}
	if c.UpdatedBy != "" {
		row.UpdatedBy = sql.NullString{String: c.UpdatedBy, Valid: true}
	}

	if len(c.Photos) > 0 {
		row.Photos, _ = json.Marshal(c.Photos)
	}
	if len(c.PhotosToRedo) > 0 {
		row.PhotosToRedo, _ = json.Marshal(c.PhotosToRedo)
	}

	return row
}

func (r *CaseRepository) fromDBCase(row *dbCase) *model.Case {
	c := &model.Case{
		ID:            row.ID,
		ReferenceNo:   row.ReferenceNo,
		Type:          model.VerificationType(row.Type),
		Status:        model.CaseStatus(row.Status),
		CandidateName: row.CandidateName,
		AssignedAt:    row.AssignedAt,
		FormCompleted: row.FormCompleted,
		SubmittedAt:   row.SubmittedAt,
		CompletedAt:   row.CompletedAt,
		FinalizedAt:   row.FinalizedAt,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
		CreatedBy:     row.CreatedBy,
	}

	if row.Address.Valid {
		c.Address = row.Address.String
	}
	if row.ClientName.Valid {
		c.ClientName = row.ClientName.String
	}
	if row.AssignedTo.Valid {
		c.AssignedTo = row.AssignedTo.String
	}
	if row.FilledFormRef.Valid {
		c.FilledFormRef = row.FilledFormRef.String
	}
	if row.FilledFormURL.Valid {
		c.FilledFormURL = row.FilledFormURL.String
	}
	if row.PhotoReportURL.Valid {
		c.PhotoReportURL = row.PhotoReportURL.String
	}
	if row.AuditFeedback.Valid {
		c.AuditFeedback = row.AuditFeedback.String
	}
	if row.FinalizedBy.Valid {
		c.FinalizedBy = row.FinalizedBy.String
	}
	if row.UpdatedBy.Valid {
		c.UpdatedBy = row.UpdatedBy.String
	}

	if len(row.Photos) > 0 {
		json.Unmarshal(row.Photos, &c.Photos)
	}
	if len(row.PhotosToRedo) > 0 {
		json.Unmarshal(row.PhotosToRedo, &c.PhotosToRedo)
	}

	return c
}
