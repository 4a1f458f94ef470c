package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/fieldverify-platform/caseflow/internal/model"
)

// PlanRepository handles the per-user ordered day plan. Entries live in an
// ordered relation (user_id, position, case_id) rather than a serialized
// blob, so single-entry mutations do not rewrite the whole plan.
type PlanRepository struct {
	db *sqlx.DB
}

// NewPlanRepository creates a new plan repository.
func NewPlanRepository(db *sqlx.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

// List retrieves a user's plan in order.
func (r *PlanRepository) List(ctx context.Context, userID string) ([]*model.PlanEntry, error) {
	var entries []*model.PlanEntry
	query := `SELECT * FROM plan_entries WHERE user_id = $1 ORDER BY position`

	if err := r.db.SelectContext(ctx, &entries, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list plan entries: %w", err)
	}
	return entries, nil
}

// Contains reports whether a case is already planned by the user.
func (r *PlanRepository) Contains(ctx context.Context, userID, caseID string) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM plan_entries WHERE user_id = $1 AND case_id = $2`

	if err := r.db.GetContext(ctx, &count, query, userID, caseID); err != nil {
		return false, fmt.Errorf("failed to check plan entry: %w", err)
	}
	return count > 0, nil
}

// Append adds a case at the end of the plan. ON CONFLICT DO NOTHING makes
// a duplicate add a no-op at the store level as well.
func (r *PlanRepository) Append(ctx context.Context, entry *model.PlanEntry) error {
	query := `
		INSERT INTO plan_entries (
			user_id, position, case_id, reference_no, candidate_name, status, added_at
		)
		SELECT $1, COALESCE(MAX(position), 0) + 1, $2, $3, $4, $5, $6
		FROM plan_entries WHERE user_id = $1
		ON CONFLICT (user_id, case_id) DO NOTHING
	`

	_, err := r.db.ExecContext(ctx, query,
		entry.UserID, entry.CaseID, entry.ReferenceNo,
		entry.CandidateName, string(entry.Status), entry.AddedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append plan entry: %w", err)
	}
	return nil
}

// Remove deletes a case from the plan and closes the position gap.
// Removing an id that is not planned is a no-op.
func (r *PlanRepository) Remove(ctx context.Context, userID, caseID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var position int
	err = tx.GetContext(ctx, &position,
		`DELETE FROM plan_entries WHERE user_id = $1 AND case_id = $2 RETURNING position`,
		userID, caseID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		// Not planned: nothing to do.
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to remove plan entry: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE plan_entries SET position = position - 1 WHERE user_id = $1 AND position > $2`,
		userID, position,
	)
	if err != nil {
		return fmt.Errorf("failed to compact plan positions: %w", err)
	}

	return tx.Commit()
}

// Reorder rewrites positions to match the given case id order. Ids not in
// the plan are skipped; planned ids missing from the order keep their
// relative order after the listed ones.
func (r *PlanRepository) Reorder(ctx context.Context, userID string, caseIDs []string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Push existing positions past the incoming sequence so entries left
	// out of the explicit order keep ranking after it in the final
	// compaction.
	if _, err := tx.ExecContext(ctx,
		`UPDATE plan_entries SET position = position + $2 WHERE user_id = $1`,
		userID, len(caseIDs)+1000,
	); err != nil {
		return fmt.Errorf("failed to stage plan reorder: %w", err)
	}

	for i, caseID := range caseIDs {
		if _, err := tx.ExecContext(ctx,
			`UPDATE plan_entries SET position = $3 WHERE user_id = $1 AND case_id = $2`,
			userID, caseID, i+1,
		); err != nil {
			return fmt.Errorf("failed to reorder plan entry: %w", err)
		}
	}

	// Compact any leftovers after the explicitly ordered ones.
	if _, err := tx.ExecContext(ctx, `
		UPDATE plan_entries p SET position = ranked.rank
		FROM (
			SELECT case_id, ROW_NUMBER() OVER (ORDER BY position) AS rank
			FROM plan_entries WHERE user_id = $1
		) ranked
		WHERE p.user_id = $1 AND p.case_id = ranked.case_id
	`, userID); err != nil {
		return fmt.Errorf("failed to compact plan order: %w", err)
	}

	return tx.Commit()
}

// RefreshSnapshot updates the snapshot columns of every plan entry that
// references the given case, for any user.
func (r *PlanRepository) RefreshSnapshot(ctx context.Context, c *model.Case) error {
	query := `
		UPDATE plan_entries SET
			reference_no = $2,
			candidate_name = $3,
			status = $4
		WHERE case_id = $1
	`

	_, err := r.db.ExecContext(ctx, query, c.ID, c.ReferenceNo, c.CandidateName, string(c.Status))
	if err != nil {
		return fmt.Errorf("failed to refresh plan snapshot: %w", err)
	}
	return nil
}
