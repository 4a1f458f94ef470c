package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/fieldverify-platform/caseflow/internal/model"
	"github.com/fieldverify-platform/caseflow/internal/service"
)

// TicketHandler handles helpdesk ticket HTTP requests.
type TicketHandler struct {
	service *service.TicketService
}

// NewTicketHandler creates a new ticket handler.
func NewTicketHandler(svc *service.TicketService) *TicketHandler {
	return &TicketHandler{service: svc}
}

// RegisterRoutes registers ticket routes on the router.
func (h *TicketHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/tickets", h.Create).Methods(http.MethodPost)
	r.HandleFunc("/tickets", h.ListMine).Methods(http.MethodGet)
	r.HandleFunc("/tickets/queue", h.ListAll).Methods(http.MethodGet)
	r.HandleFunc("/tickets/{id}", h.Get).Methods(http.MethodGet)
	r.HandleFunc("/tickets/{id}", h.Update).Methods(http.MethodPatch)
}

// Create handles POST /tickets.
func (h *TicketHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.CreateTicketRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	ticket, err := h.service.CreateTicket(r.Context(), &req, actor)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, ticket)
}

// ListMine handles GET /tickets: the acting user's own tickets.
func (h *TicketHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireUser(w, r)
	if !ok {
		return
	}

	tickets, err := h.service.ListTickets(r.Context(), actor.ID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"tickets": tickets})
}

// ListAll handles GET /tickets/queue: the support queue, open first.
func (h *TicketHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	tickets, err := h.service.ListAllTickets(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"tickets": tickets})
}

// Get handles GET /tickets/{id}.
func (h *TicketHandler) Get(w http.ResponseWriter, r *http.Request) {
	ticket, err := h.service.GetTicket(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ticket)
}

// Update handles PATCH /tickets/{id}: a status advance, a dev comment,
// or both.
func (h *TicketHandler) Update(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}

	var req model.UpdateTicketRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	ticket, err := h.service.UpdateTicket(r.Context(), mux.Vars(r)["id"], &req)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ticket)
}
