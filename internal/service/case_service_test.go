package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldverify-platform/caseflow/internal/apperrors"
	"github.com/fieldverify-platform/caseflow/internal/dispatch"
	"github.com/fieldverify-platform/caseflow/internal/model"
	"github.com/fieldverify-platform/caseflow/internal/watch"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&strings.Builder{}, nil))
}

// fakeCaseStore is an in-memory CaseStore. Complete applies the same
// conditional transition the real store does.
type fakeCaseStore struct {
	mu    sync.Mutex
	cases map[string]*model.Case
}

func newFakeCaseStore() *fakeCaseStore {
	return &fakeCaseStore{cases: make(map[string]*model.Case)}
}

func (s *fakeCaseStore) Create(ctx context.Context, c *model.Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.cases[c.ID] = &cp
	return nil
}

func (s *fakeCaseStore) Get(ctx context.Context, id string) (*model.Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cases[id]
	if !ok {
		return nil, apperrors.NotFound("case")
	}
	cp := *c
	return &cp, nil
}

func (s *fakeCaseStore) Update(ctx context.Context, c *model.Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cases[c.ID]; !ok {
		return apperrors.NotFound("case")
	}
	cp := *c
	s.cases[c.ID] = &cp
	return nil
}

func (s *fakeCaseStore) Complete(ctx context.Context, id, finalizedBy string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cases[id]
	if !ok {
		return apperrors.NotFound("case")
	}
	if c.Status != model.StatusAudit {
		return apperrors.Conflict("case is not awaiting approval")
	}
	c.Status = model.StatusCompleted
	c.CompletedAt = &at
	c.FinalizedAt = &at
	c.FinalizedBy = finalizedBy
	return nil
}

func (s *fakeCaseStore) List(ctx context.Context, filter *model.CaseFilter) (*model.CaseListResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := &model.CaseListResult{}
	for _, c := range s.cases {
		cp := *c
		result.Cases = append(result.Cases, &cp)
	}
	result.Total = int64(len(result.Cases))
	return result, nil
}

func (s *fakeCaseStore) ListByAssignee(ctx context.Context, userID string) ([]*model.Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Case
	for _, c := range s.cases {
		if c.AssignedTo == userID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeMailLog struct {
	mu      sync.Mutex
	entries []*model.MailLogEntry
	fail    bool
}

func (l *fakeMailLog) Append(ctx context.Context, entry *model.MailLogEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fail {
		return errors.New("mail log unavailable")
	}
	l.entries = append(l.entries, entry)
	return nil
}

type fakeDispatcher struct {
	result  *dispatch.Result
	err     error
	lastMsg *dispatch.Message
}

func (d *fakeDispatcher) Dispatch(ctx context.Context, msg *dispatch.Message) (*dispatch.Result, error) {
	d.lastMsg = msg
	if d.err != nil {
		return nil, d.err
	}
	return d.result, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []*watch.CaseEvent
}

func (p *fakePublisher) Publish(ctx context.Context, ev *watch.CaseEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *fakePublisher) actions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, ev := range p.events {
		out = append(out, ev.Action)
	}
	return out
}

type caseFixture struct {
	service    *CaseService
	store      *fakeCaseStore
	mailLog    *fakeMailLog
	dispatcher *fakeDispatcher
	publisher  *fakePublisher
}

func newCaseFixture() *caseFixture {
	store := newFakeCaseStore()
	mailLog := &fakeMailLog{}
	dispatcher := &fakeDispatcher{result: &dispatch.Result{Outcome: dispatch.OutcomeDelivered, Channel: "gmail"}}
	publisher := &fakePublisher{}
	svc := NewCaseService(store, mailLog, dispatcher, publisher, "sender@example.com", testLogger())
	return &caseFixture{service: svc, store: store, mailLog: mailLog, dispatcher: dispatcher, publisher: publisher}
}

func (f *caseFixture) seedCase(t *testing.T, status model.CaseStatus) *model.Case {
	t.Helper()
	now := time.Now()
	c := &model.Case{
		ID:            "case-1",
		ReferenceNo:   "FV-20260115-AB12CD34",
		Type:          model.VerificationAddress,
		Status:        status,
		CandidateName: "Jane Roe",
		Address:       "12 North Lane",
		AssignedTo:    "user-7",
		AssignedAt:    &now,
		FormCompleted: true,
		FilledFormRef: "form-1",
		FilledFormURL: "https://assets.example.com/form-1.pdf",
		Photos: map[model.PhotoCategory]string{
			model.PhotoSelfie: "https://assets.example.com/selfie.jpg",
			model.PhotoHouse:  "https://assets.example.com/house.jpg",
		},
		PhotoReportURL: "https://assets.example.com/report-1.pdf",
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	require.NoError(t, f.store.Create(context.Background(), c))
	return c
}

var auditor = model.Actor{ID: "admin-1", Name: "Asha Admin", Email: "asha@example.com"}

func TestCreateCase(t *testing.T) {
	f := newCaseFixture()

	t.Run("unassigned case starts open", func(t *testing.T) {
		c, err := f.service.CreateCase(context.Background(), &model.CreateCaseRequest{
			Type:          model.VerificationAddress,
			CandidateName: "Jane Roe",
		}, auditor)
		require.NoError(t, err)
		assert.Equal(t, model.StatusOpen, c.Status)
		assert.True(t, strings.HasPrefix(c.ReferenceNo, "FV-"))
		assert.Nil(t, c.AssignedAt)
	})

	t.Run("assigned case starts assigned", func(t *testing.T) {
		c, err := f.service.CreateCase(context.Background(), &model.CreateCaseRequest{
			Type:          model.VerificationAddress,
			CandidateName: "John Roe",
			AssignedTo:    "user-7",
		}, auditor)
		require.NoError(t, err)
		assert.Equal(t, model.StatusAssigned, c.Status)
		assert.NotNil(t, c.AssignedAt)
	})

	t.Run("missing candidate name is rejected", func(t *testing.T) {
		_, err := f.service.CreateCase(context.Background(), &model.CreateCaseRequest{
			Type: model.VerificationAddress,
		}, auditor)
		assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
	})
}

func TestSubmitCase(t *testing.T) {
	t.Run("assigned case with complete form moves to audit", func(t *testing.T) {
		f := newCaseFixture()
		f.seedCase(t, model.StatusAssigned)

		c, err := f.service.SubmitCase(context.Background(), "case-1", auditor)
		require.NoError(t, err)
		assert.Equal(t, model.StatusAudit, c.Status)
		assert.NotNil(t, c.SubmittedAt)
	})

	t.Run("incomplete form is rejected", func(t *testing.T) {
		f := newCaseFixture()
		c := f.seedCase(t, model.StatusAssigned)
		c.FormCompleted = false
		require.NoError(t, f.store.Update(context.Background(), c))

		_, err := f.service.SubmitCase(context.Background(), "case-1", auditor)
		assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
	})

	t.Run("open case cannot be submitted", func(t *testing.T) {
		f := newCaseFixture()
		f.seedCase(t, model.StatusOpen)

		_, err := f.service.SubmitCase(context.Background(), "case-1", auditor)
		assert.True(t, apperrors.Is(err, apperrors.CodeConflict))
	})
}

func TestRevertCase(t *testing.T) {
	t.Run("explicit reason is used verbatim", func(t *testing.T) {
		f := newCaseFixture()
		f.seedCase(t, model.StatusAudit)

		c, err := f.service.RevertCase(context.Background(), "case-1", &model.RevertCaseRequest{
			Reason: "address mismatch on nameplate",
		}, auditor)
		require.NoError(t, err)
		assert.Equal(t, "address mismatch on nameplate", c.AuditFeedback)
		assert.Equal(t, model.StatusAssigned, c.Status)
	})

	t.Run("reason synthesized from selection labels", func(t *testing.T) {
		f := newCaseFixture()
		f.seedCase(t, model.StatusAudit)

		c, err := f.service.RevertCase(context.Background(), "case-1", &model.RevertCaseRequest{
			SelectedRedoItems: []model.PhotoCategory{model.RedoForm, model.PhotoSelfie},
		}, auditor)
		require.NoError(t, err)
		assert.Equal(t, "Redo required: Form, Selfie", c.AuditFeedback)
	})

	t.Run("selection clears evidence and completion markers", func(t *testing.T) {
		f := newCaseFixture()
		seeded := f.seedCase(t, model.StatusAudit)
		done := time.Now()
		seeded.CompletedAt = &done
		require.NoError(t, f.store.Update(context.Background(), seeded))

		c, err := f.service.RevertCase(context.Background(), "case-1", &model.RevertCaseRequest{
			SelectedRedoItems: []model.PhotoCategory{model.RedoForm, model.PhotoSelfie},
		}, auditor)
		require.NoError(t, err)

		assert.Nil(t, c.CompletedAt, "reverting always clears completed_at")
		assert.Empty(t, c.FilledFormRef)
		assert.Empty(t, c.FilledFormURL)
		assert.False(t, c.FormCompleted)
		assert.NotContains(t, c.Photos, model.PhotoSelfie)
		assert.Contains(t, c.Photos, model.PhotoHouse, "unselected categories keep their photos")
		assert.ElementsMatch(t, []model.PhotoCategory{model.RedoForm, model.PhotoSelfie}, c.PhotosToRedo)
	})

	t.Run("empty revert is rejected", func(t *testing.T) {
		f := newCaseFixture()
		f.seedCase(t, model.StatusAudit)

		_, err := f.service.RevertCase(context.Background(), "case-1", &model.RevertCaseRequest{}, auditor)
		assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
	})

	t.Run("unknown redo category is rejected", func(t *testing.T) {
		f := newCaseFixture()
		f.seedCase(t, model.StatusAudit)

		_, err := f.service.RevertCase(context.Background(), "case-1", &model.RevertCaseRequest{
			SelectedRedoItems: []model.PhotoCategory{"selfi"},
		}, auditor)
		assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

		stored, getErr := f.store.Get(context.Background(), "case-1")
		require.NoError(t, getErr)
		assert.Equal(t, model.StatusAudit, stored.Status)
		assert.Empty(t, stored.PhotosToRedo)
	})

	t.Run("only audit cases can be reverted", func(t *testing.T) {
		f := newCaseFixture()
		f.seedCase(t, model.StatusAssigned)

		_, err := f.service.RevertCase(context.Background(), "case-1", &model.RevertCaseRequest{
			Reason: "nope",
		}, auditor)
		assert.True(t, apperrors.Is(err, apperrors.CodeConflict))
	})
}

func TestApproveCase(t *testing.T) {
	t.Run("delivered outcome completes the case and logs the mail", func(t *testing.T) {
		f := newCaseFixture()
		f.seedCase(t, model.StatusAudit)

		result, err := f.service.ApproveCase(context.Background(), "case-1", &model.ApproveCaseRequest{
			To: "desk@example.com",
			CC: []string{"qa@example.com"},
		}, auditor)
		require.NoError(t, err)

		assert.Equal(t, dispatch.OutcomeDelivered, result.Dispatch.Outcome)
		assert.Equal(t, model.StatusCompleted, result.Case.Status)
		assert.NotNil(t, result.Case.CompletedAt)
		assert.Equal(t, auditor.Name, result.Case.FinalizedBy)

		stored, err := f.store.Get(context.Background(), "case-1")
		require.NoError(t, err)
		assert.Equal(t, model.StatusCompleted, stored.Status)

		require.Len(t, f.mailLog.entries, 1)
		entry := f.mailLog.entries[0]
		assert.Equal(t, "case-1", entry.CaseID)
		assert.Equal(t, "desk@example.com", entry.Recipient)
		assert.Equal(t, "gmail", entry.Channel)

		assert.Contains(t, f.publisher.actions(), "completed")
	})

	t.Run("mail includes case attachments", func(t *testing.T) {
		f := newCaseFixture()
		f.seedCase(t, model.StatusAudit)

		_, err := f.service.ApproveCase(context.Background(), "case-1", &model.ApproveCaseRequest{
			To: "desk@example.com",
		}, auditor)
		require.NoError(t, err)

		require.Len(t, f.dispatcher.lastMsg.Attachments, 2)
		assert.Contains(t, f.dispatcher.lastMsg.Subject, "FV-20260115-AB12CD34")
		assert.Contains(t, f.dispatcher.lastMsg.Body, "Jane Roe")
	})

	t.Run("handed off leaves the case in audit", func(t *testing.T) {
		f := newCaseFixture()
		f.dispatcher.result = &dispatch.Result{
			Outcome:    dispatch.OutcomeHandedOff,
			Channel:    "compose",
			ComposeURL: "https://mail.google.com/mail/?view=cm&fs=1&to=desk%40example.com",
		}
		f.seedCase(t, model.StatusAudit)

		result, err := f.service.ApproveCase(context.Background(), "case-1", &model.ApproveCaseRequest{
			To: "desk@example.com",
		}, auditor)
		require.NoError(t, err)

		assert.Equal(t, dispatch.OutcomeHandedOff, result.Dispatch.Outcome)
		assert.NotEmpty(t, result.Dispatch.ComposeURL)

		stored, err := f.store.Get(context.Background(), "case-1")
		require.NoError(t, err)
		assert.Equal(t, model.StatusAudit, stored.Status, "hand-off must not complete the case")
		assert.Nil(t, stored.CompletedAt)
		assert.Empty(t, f.mailLog.entries)
	})

	t.Run("mail log failure does not undo completion", func(t *testing.T) {
		f := newCaseFixture()
		f.mailLog.fail = true
		f.seedCase(t, model.StatusAudit)

		result, err := f.service.ApproveCase(context.Background(), "case-1", &model.ApproveCaseRequest{
			To: "desk@example.com",
		}, auditor)
		require.NoError(t, err)
		assert.Equal(t, model.StatusCompleted, result.Case.Status)
	})

	t.Run("dispatch failure leaves the case untouched", func(t *testing.T) {
		f := newCaseFixture()
		f.dispatcher.err = apperrors.New(apperrors.CodeServiceUnavail, "no mail channel could deliver the message")
		f.seedCase(t, model.StatusAudit)

		_, err := f.service.ApproveCase(context.Background(), "case-1", &model.ApproveCaseRequest{
			To: "desk@example.com",
		}, auditor)
		require.Error(t, err)

		stored, err := f.store.Get(context.Background(), "case-1")
		require.NoError(t, err)
		assert.Equal(t, model.StatusAudit, stored.Status)
	})

	t.Run("missing recipient aborts before dispatch", func(t *testing.T) {
		f := newCaseFixture()
		f.seedCase(t, model.StatusAudit)

		_, err := f.service.ApproveCase(context.Background(), "case-1", &model.ApproveCaseRequest{}, auditor)
		assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
		assert.Nil(t, f.dispatcher.lastMsg)
	})

	t.Run("second approval of a completed case conflicts", func(t *testing.T) {
		f := newCaseFixture()
		f.seedCase(t, model.StatusAudit)

		_, err := f.service.ApproveCase(context.Background(), "case-1", &model.ApproveCaseRequest{
			To: "desk@example.com",
		}, auditor)
		require.NoError(t, err)

		_, err = f.service.ApproveCase(context.Background(), "case-1", &model.ApproveCaseRequest{
			To: "desk@example.com",
		}, auditor)
		assert.True(t, apperrors.Is(err, apperrors.CodeConflict))
	})
}

func TestConfirmDispatch(t *testing.T) {
	t.Run("confirmation completes and logs under the compose channel", func(t *testing.T) {
		f := newCaseFixture()
		f.seedCase(t, model.StatusAudit)

		c, err := f.service.ConfirmDispatch(context.Background(), "case-1", &model.ApproveCaseRequest{
			To: "desk@example.com",
		}, auditor)
		require.NoError(t, err)

		assert.Equal(t, model.StatusCompleted, c.Status)
		require.Len(t, f.mailLog.entries, 1)
		assert.Equal(t, "compose", f.mailLog.entries[0].Channel)
	})

	t.Run("confirming a non-audit case conflicts", func(t *testing.T) {
		f := newCaseFixture()
		f.seedCase(t, model.StatusCompleted)

		_, err := f.service.ConfirmDispatch(context.Background(), "case-1", &model.ApproveCaseRequest{
			To: "desk@example.com",
		}, auditor)
		assert.True(t, apperrors.Is(err, apperrors.CodeConflict))
	})
}

func TestUpdateCase(t *testing.T) {
	t.Run("photo update merges per category and clears redo mark", func(t *testing.T) {
		f := newCaseFixture()
		seeded := f.seedCase(t, model.StatusAssigned)
		seeded.PhotosToRedo = []model.PhotoCategory{model.PhotoSelfie}
		require.NoError(t, f.store.Update(context.Background(), seeded))

		c, err := f.service.UpdateCase(context.Background(), "case-1", &model.UpdateCaseRequest{
			Photos: map[model.PhotoCategory]string{
				model.PhotoSelfie: "https://assets.example.com/selfie-2.jpg",
			},
		}, auditor)
		require.NoError(t, err)

		assert.Equal(t, "https://assets.example.com/selfie-2.jpg", c.Photos[model.PhotoSelfie])
		assert.Equal(t, "https://assets.example.com/house.jpg", c.Photos[model.PhotoHouse])
		assert.NotContains(t, c.PhotosToRedo, model.PhotoSelfie)
	})

	t.Run("completed cases are read-only", func(t *testing.T) {
		f := newCaseFixture()
		f.seedCase(t, model.StatusCompleted)

		name := "New Name"
		_, err := f.service.UpdateCase(context.Background(), "case-1", &model.UpdateCaseRequest{
			CandidateName: &name,
		}, auditor)
		assert.True(t, apperrors.Is(err, apperrors.CodeConflict))
	})
}

func TestRevertReason(t *testing.T) {
	assert.Equal(t, "late submission", RevertReason("late submission", []model.PhotoCategory{model.PhotoSelfie}))
	assert.Equal(t, "Redo required: Form, Selfie", RevertReason("", []model.PhotoCategory{model.RedoForm, model.PhotoSelfie}))
	assert.Equal(t, "Redo required: House", RevertReason("  ", []model.PhotoCategory{model.PhotoHouse}))
	assert.Equal(t, "", RevertReason("", nil))
}
