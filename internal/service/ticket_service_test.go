package service

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldverify-platform/caseflow/internal/apperrors"
	"github.com/fieldverify-platform/caseflow/internal/model"
)

type fakeTicketStore struct {
	mu      sync.Mutex
	tickets map[string]*model.Ticket
}

func newFakeTicketStore() *fakeTicketStore {
	return &fakeTicketStore{tickets: make(map[string]*model.Ticket)}
}

func (s *fakeTicketStore) Create(ctx context.Context, t *model.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *t
	s.tickets[t.ID] = &cp
	return nil
}

func (s *fakeTicketStore) Get(ctx context.Context, id string) (*model.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[id]
	if !ok {
		return nil, apperrors.NotFound("ticket")
	}
	cp := *t
	return &cp, nil
}

func (s *fakeTicketStore) Update(ctx context.Context, t *model.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tickets[t.ID]; !ok {
		return apperrors.NotFound("ticket")
	}
	cp := *t
	s.tickets[t.ID] = &cp
	return nil
}

func (s *fakeTicketStore) ListByUser(ctx context.Context, userID string) ([]*model.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Ticket
	for _, t := range s.tickets {
		if t.UserID == userID {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *fakeTicketStore) ListAll(ctx context.Context) ([]*model.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Ticket
	for _, t := range s.tickets {
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

var reporter = model.Actor{ID: "user-7", Name: "Ravi Field"}

func TestCreateTicket(t *testing.T) {
	svc := NewTicketService(newFakeTicketStore())

	t.Run("new ticket opens under the acting user", func(t *testing.T) {
		ticket, err := svc.CreateTicket(context.Background(), &model.CreateTicketRequest{
			Subject: "App crashes on photo upload",
			Message: "Uploading a nameplate photo closes the app.",
		}, reporter)
		require.NoError(t, err)

		assert.Equal(t, model.TicketOpen, ticket.Status)
		assert.Equal(t, "user-7", ticket.UserID)
		assert.Equal(t, "Ravi Field", ticket.UserName)
	})

	t.Run("blank subject is rejected", func(t *testing.T) {
		_, err := svc.CreateTicket(context.Background(), &model.CreateTicketRequest{
			Subject: "  ",
			Message: "something",
		}, reporter)
		assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
	})
}

func TestUpdateTicket(t *testing.T) {
	newTicket := func(t *testing.T, svc *TicketService) *model.Ticket {
		t.Helper()
		ticket, err := svc.CreateTicket(context.Background(), &model.CreateTicketRequest{
			Subject: "Sync issue",
			Message: "Plan does not refresh.",
		}, reporter)
		require.NoError(t, err)
		return ticket
	}

	status := func(s model.TicketStatus) *model.TicketStatus { return &s }
	comment := func(c string) *string { return &c }

	t.Run("status advances forward", func(t *testing.T) {
		svc := NewTicketService(newFakeTicketStore())
		ticket := newTicket(t, svc)

		updated, err := svc.UpdateTicket(context.Background(), ticket.ID, &model.UpdateTicketRequest{
			Status:      status(model.TicketInProgress),
			DevComments: comment("Reproduced, fix in review."),
		})
		require.NoError(t, err)
		assert.Equal(t, model.TicketInProgress, updated.Status)
		assert.Equal(t, "Reproduced, fix in review.", updated.DevComments)

		updated, err = svc.UpdateTicket(context.Background(), ticket.ID, &model.UpdateTicketRequest{
			Status: status(model.TicketClosed),
		})
		require.NoError(t, err)
		assert.Equal(t, model.TicketClosed, updated.Status)
	})

	t.Run("closed tickets never reopen", func(t *testing.T) {
		svc := NewTicketService(newFakeTicketStore())
		ticket := newTicket(t, svc)

		_, err := svc.UpdateTicket(context.Background(), ticket.ID, &model.UpdateTicketRequest{
			Status: status(model.TicketClosed),
		})
		require.NoError(t, err)

		for _, target := range []model.TicketStatus{model.TicketOpen, model.TicketInProgress} {
			_, err := svc.UpdateTicket(context.Background(), ticket.ID, &model.UpdateTicketRequest{
				Status: status(target),
			})
			assert.True(t, apperrors.Is(err, apperrors.CodeConflict), "closed -> %s must be refused", target)
		}
	})

	t.Run("closed tickets can still be annotated", func(t *testing.T) {
		svc := NewTicketService(newFakeTicketStore())
		ticket := newTicket(t, svc)

		_, err := svc.UpdateTicket(context.Background(), ticket.ID, &model.UpdateTicketRequest{
			Status: status(model.TicketClosed),
		})
		require.NoError(t, err)

		updated, err := svc.UpdateTicket(context.Background(), ticket.ID, &model.UpdateTicketRequest{
			DevComments: comment("Released in 1.4.2."),
		})
		require.NoError(t, err)
		assert.Equal(t, model.TicketClosed, updated.Status)
		assert.Equal(t, "Released in 1.4.2.", updated.DevComments)
	})

	t.Run("unknown status is rejected", func(t *testing.T) {
		svc := NewTicketService(newFakeTicketStore())
		ticket := newTicket(t, svc)

		_, err := svc.UpdateTicket(context.Background(), ticket.ID, &model.UpdateTicketRequest{
			Status: status(model.TicketStatus("escalated")),
		})
		assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
	})
}
