package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fieldverify-platform/caseflow/internal/apperrors"
	"github.com/fieldverify-platform/caseflow/internal/model"
)

// ReportStore is the daily-report persistence surface.
type ReportStore interface {
	Create(ctx context.Context, r *model.DailyReport) error
	GetByUserAndDate(ctx context.Context, userID, reportDate string) (*model.DailyReport, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*model.DailyReport, error)
}

// ReportService computes and submits daily status reports. Counters are
// always recomputed from the user's live case list at call time; nothing
// is accumulated across calls.
type ReportService struct {
	cases   CaseStore
	reports ReportStore
	now     func() time.Time
}

// NewReportService creates a new report service.
func NewReportService(cases CaseStore, reports ReportStore) *ReportService {
	return &ReportService{
		cases:   cases,
		reports: reports,
		now:     time.Now,
	}
}

// ComputeDailyCounters derives the five DSR counters from a case list
// for the calendar day containing now. It is a pure function of its
// inputs: recomputing over the same list yields the same counters.
func ComputeDailyCounters(cases []*model.Case, now time.Time) model.DailyCounters {
	var counters model.DailyCounters
	counters.TotalCases = len(cases)

	for _, c := range cases {
		if c.AssignedAt != nil && sameDay(*c.AssignedAt, now) {
			counters.AssignedToday++
		}
		if c.Status == model.StatusCompleted {
			counters.CompletedTotal++
			if c.CompletedAt != nil && sameDay(*c.CompletedAt, now) {
				counters.CompletedToday++
				counters.CompletedNames = append(counters.CompletedNames, c.CandidateName)
			}
		}
		if c.Status == model.StatusAssigned || c.Status == model.StatusReverted {
			counters.RemainingOpen++
		}
	}

	return counters
}

// Preview recomputes today's counters for the user without persisting
// anything.
func (s *ReportService) Preview(ctx context.Context, userID string) (*model.DailyCounters, error) {
	cases, err := s.cases.ListByAssignee(ctx, userID)
	if err != nil {
		return nil, err
	}
	counters := ComputeDailyCounters(cases, s.now())
	return &counters, nil
}

// Submit freezes today's counters into a report row. A second submission
// for the same day is refused; the stored unique constraint backstops
// the pre-check against concurrent submissions.
func (s *ReportService) Submit(ctx context.Context, userID string) (*model.DailyReport, error) {
	now := s.now()
	reportDate := now.Format("2006-01-02")

	existing, err := s.reports.GetByUserAndDate(ctx, userID, reportDate)
	if err != nil && !apperrors.Is(err, apperrors.CodeNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, apperrors.Conflict("report already submitted for this day")
	}

	cases, err := s.cases.ListByAssignee(ctx, userID)
	if err != nil {
		return nil, err
	}
	counters := ComputeDailyCounters(cases, now)

	report := &model.DailyReport{
		ID:             uuid.New().String(),
		UserID:         userID,
		ReportDate:     reportDate,
		AssignedToday:  counters.AssignedToday,
		TotalCases:     counters.TotalCases,
		CompletedToday: counters.CompletedToday,
		CompletedTotal: counters.CompletedTotal,
		RemainingOpen:  counters.RemainingOpen,
		CompletedCases: strings.Join(counters.CompletedNames, ", "),
		SubmittedAt:    now,
	}

	if err := s.reports.Create(ctx, report); err != nil {
		return nil, err
	}
	return report, nil
}

// History returns the user's submitted reports, newest first.
func (s *ReportService) History(ctx context.Context, userID string, limit int) ([]*model.DailyReport, error) {
	return s.reports.ListByUser(ctx, userID, limit)
}

// sameDay reports whether both instants fall on the same calendar day in
// local time.
func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Local().Date()
	by, bm, bd := b.Local().Date()
	return ay == by && am == bm && ad == bd
}
