package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/fieldverify-platform/caseflow/internal/apperrors"
	"github.com/fieldverify-platform/caseflow/internal/model"
	"github.com/fieldverify-platform/caseflow/internal/watch"
)

// PlanStore is the day-plan persistence surface.
type PlanStore interface {
	List(ctx context.Context, userID string) ([]*model.PlanEntry, error)
	Contains(ctx context.Context, userID, caseID string) (bool, error)
	Append(ctx context.Context, entry *model.PlanEntry) error
	Remove(ctx context.Context, userID, caseID string) error
	Reorder(ctx context.Context, userID string, caseIDs []string) error
	RefreshSnapshot(ctx context.Context, c *model.Case) error
}

// PlanService manages per-user ordered day plans. Plan entries carry a
// snapshot of the planned case; the snapshot is refreshed whenever a
// case-change event arrives on the live feed.
type PlanService struct {
	store  PlanStore
	cases  CaseStore
	logger *slog.Logger
}

// NewPlanService creates a new plan service.
func NewPlanService(store PlanStore, cases CaseStore, logger *slog.Logger) *PlanService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PlanService{store: store, cases: cases, logger: logger}
}

// List returns the user's plan in order.
func (s *PlanService) List(ctx context.Context, userID string) ([]*model.PlanEntry, error) {
	return s.store.List(ctx, userID)
}

// Add appends a case to the end of the user's plan. Adding a case that
// is already planned is a no-op, not an error.
func (s *PlanService) Add(ctx context.Context, userID, caseID string) ([]*model.PlanEntry, error) {
	if caseID == "" {
		return nil, apperrors.Validation("case id is required")
	}

	planned, err := s.store.Contains(ctx, userID, caseID)
	if err != nil {
		return nil, err
	}
	if !planned {
		caseObj, err := s.cases.Get(ctx, caseID)
		if err != nil {
			return nil, err
		}

		entry := &model.PlanEntry{
			UserID:        userID,
			CaseID:        caseObj.ID,
			ReferenceNo:   caseObj.ReferenceNo,
			CandidateName: caseObj.CandidateName,
			Status:        caseObj.Status,
			AddedAt:       time.Now(),
		}
		if err := s.store.Append(ctx, entry); err != nil {
			return nil, err
		}
	}

	return s.store.List(ctx, userID)
}

// Remove drops a case from the user's plan and closes the order gap.
// Removing a case that is not planned is a no-op.
func (s *PlanService) Remove(ctx context.Context, userID, caseID string) ([]*model.PlanEntry, error) {
	if err := s.store.Remove(ctx, userID, caseID); err != nil {
		return nil, err
	}
	return s.store.List(ctx, userID)
}

// Reorder rewrites the plan to the given case id order.
func (s *PlanService) Reorder(ctx context.Context, userID string, caseIDs []string) ([]*model.PlanEntry, error) {
	if len(caseIDs) == 0 {
		return nil, apperrors.Validation("case id order is required")
	}
	if err := s.store.Reorder(ctx, userID, caseIDs); err != nil {
		return nil, err
	}
	return s.store.List(ctx, userID)
}

// HandleCaseEvent is the live-feed listener keeping plan snapshots in
// step with case changes. It runs on the feed's delivery goroutine and
// depends on its in-order delivery so a stale snapshot never overwrites
// a newer one. Refresh failures are logged and dropped; the next event
// for the case repairs the snapshot.
func (s *PlanService) HandleCaseEvent(ctx context.Context, ev *watch.CaseEvent) {
	caseObj, err := s.cases.Get(ctx, ev.CaseID)
	if err != nil {
		s.logger.Warn("plan reconcile: failed to load case",
			"case_id", ev.CaseID,
			"error", err,
		)
		return
	}

	if err := s.store.RefreshSnapshot(ctx, caseObj); err != nil {
		s.logger.Warn("plan reconcile: failed to refresh snapshot",
			"case_id", ev.CaseID,
			"error", err,
		)
	}
}
