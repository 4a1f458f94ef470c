package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldverify-platform/caseflow/internal/apperrors"
	"github.com/fieldverify-platform/caseflow/internal/model"
)

type fakeReportStore struct {
	mu      sync.Mutex
	reports map[string]*model.DailyReport // keyed by userID+date
}

func newFakeReportStore() *fakeReportStore {
	return &fakeReportStore{reports: make(map[string]*model.DailyReport)}
}

func (s *fakeReportStore) Create(ctx context.Context, r *model.DailyReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := r.UserID + "/" + r.ReportDate
	if _, ok := s.reports[key]; ok {
		return apperrors.Conflict("report already submitted for this day")
	}
	s.reports[key] = r
	return nil
}

func (s *fakeReportStore) GetByUserAndDate(ctx context.Context, userID, reportDate string) (*model.DailyReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[userID+"/"+reportDate]
	if !ok {
		return nil, apperrors.NotFound("daily report")
	}
	return r, nil
}

func (s *fakeReportStore) ListByUser(ctx context.Context, userID string, limit int) ([]*model.DailyReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.DailyReport
	for _, r := range s.reports {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func reportCases(now time.Time) []*model.Case {
	yesterday := now.Add(-24 * time.Hour)
	earlier := now.Add(-2 * time.Hour)

	return []*model.Case{
		{ID: "c1", CandidateName: "Asha", Status: model.StatusAssigned, AssignedTo: "user-7", AssignedAt: &now},
		{ID: "c2", CandidateName: "Bela", Status: model.StatusAssigned, AssignedTo: "user-7", AssignedAt: &yesterday},
		{ID: "c3", CandidateName: "Chandra", Status: model.StatusCompleted, AssignedTo: "user-7", AssignedAt: &yesterday, CompletedAt: &earlier},
		{ID: "c4", CandidateName: "Dev", Status: model.StatusCompleted, AssignedTo: "user-7", AssignedAt: &yesterday, CompletedAt: &yesterday},
		{ID: "c5", CandidateName: "Esha", Status: model.StatusReverted, AssignedTo: "user-7", AssignedAt: &yesterday},
		{ID: "c6", CandidateName: "Farid", Status: model.StatusAudit, AssignedTo: "user-7", AssignedAt: &yesterday},
	}
}

func TestComputeDailyCounters(t *testing.T) {
	now := time.Date(2026, 1, 15, 14, 30, 0, 0, time.Local)
	cases := reportCases(now)

	counters := ComputeDailyCounters(cases, now)

	assert.Equal(t, 6, counters.TotalCases)
	assert.Equal(t, 1, counters.AssignedToday)
	assert.Equal(t, 1, counters.CompletedToday)
	assert.Equal(t, 2, counters.CompletedTotal)
	assert.Equal(t, 3, counters.RemainingOpen, "assigned and reverted cases remain open work")
	assert.Equal(t, []string{"Chandra"}, counters.CompletedNames)

	t.Run("recomputation is pure", func(t *testing.T) {
		again := ComputeDailyCounters(cases, now)
		assert.Equal(t, counters, again)
	})

	t.Run("empty case list yields zeroes", func(t *testing.T) {
		empty := ComputeDailyCounters(nil, now)
		assert.Equal(t, model.DailyCounters{}, empty)
	})
}

func TestReportSubmit(t *testing.T) {
	newFixture := func(now time.Time) (*ReportService, *fakeCaseStore, *fakeReportStore) {
		caseStore := newFakeCaseStore()
		reportStore := newFakeReportStore()
		svc := NewReportService(caseStore, reportStore)
		svc.now = func() time.Time { return now }
		return svc, caseStore, reportStore
	}

	now := time.Date(2026, 1, 15, 18, 0, 0, 0, time.Local)

	t.Run("first submission freezes today's counters", func(t *testing.T) {
		svc, caseStore, _ := newFixture(now)
		for _, c := range reportCases(now) {
			require.NoError(t, caseStore.Create(context.Background(), c))
		}

		report, err := svc.Submit(context.Background(), "user-7")
		require.NoError(t, err)

		assert.Equal(t, "2026-01-15", report.ReportDate)
		assert.Equal(t, 6, report.TotalCases)
		assert.Equal(t, 1, report.CompletedToday)
		assert.Equal(t, "Chandra", report.CompletedCases)
	})

	t.Run("second submission for the same day is refused", func(t *testing.T) {
		svc, _, _ := newFixture(now)

		_, err := svc.Submit(context.Background(), "user-7")
		require.NoError(t, err)

		_, err = svc.Submit(context.Background(), "user-7")
		assert.True(t, apperrors.Is(err, apperrors.CodeConflict))
	})

	t.Run("next day submits again", func(t *testing.T) {
		svc, _, reportStore := newFixture(now)

		_, err := svc.Submit(context.Background(), "user-7")
		require.NoError(t, err)

		svc.now = func() time.Time { return now.Add(24 * time.Hour) }
		_, err = svc.Submit(context.Background(), "user-7")
		require.NoError(t, err)
		assert.Len(t, reportStore.reports, 2)
	})

	t.Run("preview persists nothing", func(t *testing.T) {
		svc, caseStore, reportStore := newFixture(now)
		for _, c := range reportCases(now) {
			require.NoError(t, caseStore.Create(context.Background(), c))
		}

		counters, err := svc.Preview(context.Background(), "user-7")
		require.NoError(t, err)
		assert.Equal(t, 6, counters.TotalCases)
		assert.Empty(t, reportStore.reports)
	})
}
