package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/fieldverify-platform/caseflow/internal/service"
)

// PlanHandler handles day-plan HTTP requests.
type PlanHandler struct {
	service *service.PlanService
}

// NewPlanHandler creates a new plan handler.
func NewPlanHandler(svc *service.PlanService) *PlanHandler {
	return &PlanHandler{service: svc}
}

// RegisterRoutes registers plan routes on the router.
func (h *PlanHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/plan", h.List).Methods(http.MethodGet)
	r.HandleFunc("/plan", h.Add).Methods(http.MethodPost)
	r.HandleFunc("/plan/order", h.Reorder).Methods(http.MethodPut)
	r.HandleFunc("/plan/{caseId}", h.Remove).Methods(http.MethodDelete)
}

// List handles GET /plan.
func (h *PlanHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireUser(w, r)
	if !ok {
		return
	}

	entries, err := h.service.List(r.Context(), actor.ID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

// Add handles POST /plan. Adding an already-planned case is a no-op.
func (h *PlanHandler) Add(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req struct {
		CaseID string `json:"case_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	entries, err := h.service.Add(r.Context(), actor.ID, req.CaseID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

// Remove handles DELETE /plan/{caseId}. Removing an unplanned case is a
// no-op.
func (h *PlanHandler) Remove(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireUser(w, r)
	if !ok {
		return
	}

	entries, err := h.service.Remove(r.Context(), actor.ID, mux.Vars(r)["caseId"])
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

// Reorder handles PUT /plan/order.
func (h *PlanHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req struct {
		CaseIDs []string `json:"case_ids"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	entries, err := h.service.Reorder(r.Context(), actor.ID, req.CaseIDs)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}
