package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fieldverify-platform/caseflow/internal/apperrors"
	"github.com/fieldverify-platform/caseflow/internal/model"
)

// TicketStore is the helpdesk ticket persistence surface.
type TicketStore interface {
	Create(ctx context.Context, t *model.Ticket) error
	Get(ctx context.Context, id string) (*model.Ticket, error)
	Update(ctx context.Context, t *model.Ticket) error
	ListByUser(ctx context.Context, userID string) ([]*model.Ticket, error)
	ListAll(ctx context.Context) ([]*model.Ticket, error)
}

// TicketService provides helpdesk ticket operations.
type TicketService struct {
	store TicketStore
}

// NewTicketService creates a new ticket service.
func NewTicketService(store TicketStore) *TicketService {
	return &TicketService{store: store}
}

// CreateTicket opens a new helpdesk ticket for the acting user.
func (s *TicketService) CreateTicket(ctx context.Context, req *model.CreateTicketRequest, actor model.Actor) (*model.Ticket, error) {
	if strings.TrimSpace(req.Subject) == "" {
		return nil, apperrors.Validation("ticket subject is required")
	}
	if strings.TrimSpace(req.Message) == "" {
		return nil, apperrors.Validation("ticket message is required")
	}

	now := time.Now()
	ticket := &model.Ticket{
		ID:        uuid.New().String(),
		UserID:    actor.ID,
		UserName:  actor.Name,
		Subject:   strings.TrimSpace(req.Subject),
		Message:   strings.TrimSpace(req.Message),
		Status:    model.TicketOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.Create(ctx, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

// GetTicket retrieves a ticket by ID.
func (s *TicketService) GetTicket(ctx context.Context, id string) (*model.Ticket, error) {
	return s.store.Get(ctx, id)
}

// ListTickets returns the acting user's tickets, newest first.
func (s *TicketService) ListTickets(ctx context.Context, userID string) ([]*model.Ticket, error) {
	return s.store.ListByUser(ctx, userID)
}

// ListAllTickets returns every ticket for the support queue, open first.
func (s *TicketService) ListAllTickets(ctx context.Context) ([]*model.Ticket, error) {
	return s.store.ListAll(ctx)
}

// UpdateTicket applies a support-side update. Status may only move
// forward along open -> in_progress -> closed; a closed ticket never
// reopens.
func (s *TicketService) UpdateTicket(ctx context.Context, id string, req *model.UpdateTicketRequest) (*model.Ticket, error) {
	ticket, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Status != nil {
		target := *req.Status
		switch target {
		case model.TicketOpen, model.TicketInProgress, model.TicketClosed:
		default:
			return nil, apperrors.Validation(fmt.Sprintf("unknown ticket status %q", target))
		}
		if !ticket.Status.CanAdvance(target) {
			return nil, apperrors.Conflict(fmt.Sprintf("ticket cannot move from %q to %q", ticket.Status, target))
		}
		ticket.Status = target
	}
	if req.DevComments != nil {
		ticket.DevComments = *req.DevComments
	}

	ticket.UpdatedAt = time.Now()

	if err := s.store.Update(ctx, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}
