package handler

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/fieldverify-platform/caseflow/internal/service"
)

// ReportHandler handles daily status report HTTP requests.
type ReportHandler struct {
	service *service.ReportService
}

// NewReportHandler creates a new report handler.
func NewReportHandler(svc *service.ReportService) *ReportHandler {
	return &ReportHandler{service: svc}
}

// RegisterRoutes registers report routes on the router.
func (h *ReportHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/reports/daily/preview", h.Preview).Methods(http.MethodGet)
	r.HandleFunc("/reports/daily", h.Submit).Methods(http.MethodPost)
	r.HandleFunc("/reports/daily", h.History).Methods(http.MethodGet)
}

// Preview handles GET /reports/daily/preview: today's counters without
// persisting anything.
func (h *ReportHandler) Preview(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireUser(w, r)
	if !ok {
		return
	}

	counters, err := h.service.Preview(r.Context(), actor.ID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, counters)
}

// Submit handles POST /reports/daily. A second submission for the same
// day returns a conflict.
func (h *ReportHandler) Submit(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireUser(w, r)
	if !ok {
		return
	}

	report, err := h.service.Submit(r.Context(), actor.ID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, report)
}

// History handles GET /reports/daily.
func (h *ReportHandler) History(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireUser(w, r)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	reports, err := h.service.History(r.Context(), actor.ID, limit)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"reports": reports})
}
