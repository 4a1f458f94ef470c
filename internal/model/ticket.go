package model

import "time"

// TicketStatus represents helpdesk ticket status values. Status only
// advances open -> in_progress -> closed; a ticket is never reopened.
type TicketStatus string

const (
	TicketOpen       TicketStatus = "open"
	TicketInProgress TicketStatus = "in_progress"
	TicketClosed     TicketStatus = "closed"
)

// advances maps each status to the statuses reachable from it.
var ticketAdvances = map[TicketStatus][]TicketStatus{
	TicketOpen:       {TicketInProgress, TicketClosed},
	TicketInProgress: {TicketClosed},
	TicketClosed:     {},
}

// CanAdvance reports whether a ticket may move from its current status
// to the target status.
func (s TicketStatus) CanAdvance(target TicketStatus) bool {
	for _, next := range ticketAdvances[s] {
		if next == target {
			return true
		}
	}
	return false
}

// Ticket represents a helpdesk issue raised against the application.
type Ticket struct {
	ID          string       `json:"id" db:"id"`
	Subject     string       `json:"subject" db:"subject"`
	Message     string       `json:"message" db:"message"`
	Status      TicketStatus `json:"status" db:"status"`
	UserID      string       `json:"user_id" db:"user_id"`
	UserName    string       `json:"user_name,omitempty" db:"user_name"`
	DevComments string       `json:"dev_comments,omitempty" db:"dev_comments"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at" db:"updated_at"`
}

// CreateTicketRequest represents a request to raise a ticket.
type CreateTicketRequest struct {
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// UpdateTicketRequest represents a dev-side ticket update: a status
// advance, a comment annotation, or both.
type UpdateTicketRequest struct {
	Status      *TicketStatus `json:"status,omitempty"`
	DevComments *string       `json:"dev_comments,omitempty"`
}
