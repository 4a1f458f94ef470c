package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/fieldverify-platform/caseflow/internal/model"
	"github.com/fieldverify-platform/caseflow/internal/service"
)

// MailLogReader lists sent-mail log entries.
type MailLogReader interface {
	ListByCase(ctx context.Context, caseID string) ([]*model.MailLogEntry, error)
	List(ctx context.Context, limit int) ([]*model.MailLogEntry, error)
}

// CaseHandler handles case lifecycle HTTP requests.
type CaseHandler struct {
	service *service.CaseService
	mailLog MailLogReader
}

// NewCaseHandler creates a new case handler.
func NewCaseHandler(svc *service.CaseService, mailLog MailLogReader) *CaseHandler {
	return &CaseHandler{service: svc, mailLog: mailLog}
}

// RegisterRoutes registers case routes on the router.
func (h *CaseHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/cases", h.Create).Methods(http.MethodPost)
	r.HandleFunc("/cases", h.List).Methods(http.MethodGet)
	r.HandleFunc("/cases/{id}", h.Get).Methods(http.MethodGet)
	r.HandleFunc("/cases/{id}", h.Update).Methods(http.MethodPatch)
	r.HandleFunc("/cases/{id}/assign", h.Assign).Methods(http.MethodPost)
	r.HandleFunc("/cases/{id}/submit", h.Submit).Methods(http.MethodPost)
	r.HandleFunc("/cases/{id}/revert", h.Revert).Methods(http.MethodPost)
	r.HandleFunc("/cases/{id}/approve", h.Approve).Methods(http.MethodPost)
	r.HandleFunc("/cases/{id}/confirm-dispatch", h.ConfirmDispatch).Methods(http.MethodPost)
	r.HandleFunc("/cases/{id}/maillog", h.MailTrail).Methods(http.MethodGet)
	r.HandleFunc("/maillog", h.MailLog).Methods(http.MethodGet)
}

// Create handles POST /cases.
func (h *CaseHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.CreateCaseRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	caseObj, err := h.service.CreateCase(r.Context(), &req, actor)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, caseObj)
}

// Get handles GET /cases/{id}.
func (h *CaseHandler) Get(w http.ResponseWriter, r *http.Request) {
	caseObj, err := h.service.GetCase(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, caseObj)
}

// List handles GET /cases with query-string filters.
func (h *CaseHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := parseCaseFilter(r)

	result, err := h.service.ListCases(r.Context(), filter)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Update handles PATCH /cases/{id}.
func (h *CaseHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.UpdateCaseRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	caseObj, err := h.service.UpdateCase(r.Context(), mux.Vars(r)["id"], &req, actor)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, caseObj)
}

// Assign handles POST /cases/{id}/assign.
func (h *CaseHandler) Assign(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req struct {
		AssignedTo string `json:"assigned_to"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	caseObj, err := h.service.AssignCase(r.Context(), mux.Vars(r)["id"], req.AssignedTo, actor)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, caseObj)
}

// Submit handles POST /cases/{id}/submit.
func (h *CaseHandler) Submit(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireUser(w, r)
	if !ok {
		return
	}

	caseObj, err := h.service.SubmitCase(r.Context(), mux.Vars(r)["id"], actor)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, caseObj)
}

// Revert handles POST /cases/{id}/revert.
func (h *CaseHandler) Revert(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.RevertCaseRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	caseObj, err := h.service.RevertCase(r.Context(), mux.Vars(r)["id"], &req, actor)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, caseObj)
}

// Approve handles POST /cases/{id}/approve: runs the dispatch chain and
// either completes the case (delivered) or returns the compose hand-off
// for the client to follow up on.
func (h *CaseHandler) Approve(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.ApproveCaseRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	result, err := h.service.ApproveCase(r.Context(), mux.Vars(r)["id"], &req, actor)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// ConfirmDispatch handles POST /cases/{id}/confirm-dispatch: the user
// confirms a handed-off mail really went out, completing the case.
func (h *CaseHandler) ConfirmDispatch(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.ApproveCaseRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	caseObj, err := h.service.ConfirmDispatch(r.Context(), mux.Vars(r)["id"], &req, actor)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, caseObj)
}

// MailTrail handles GET /cases/{id}/maillog.
func (h *CaseHandler) MailTrail(w http.ResponseWriter, r *http.Request) {
	entries, err := h.mailLog.ListByCase(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

// MailLog handles GET /maillog.
func (h *CaseHandler) MailLog(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := h.mailLog.List(r.Context(), limit)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

func parseCaseFilter(r *http.Request) *model.CaseFilter {
	q := r.URL.Query()

	filter := &model.CaseFilter{
		AssignedTo: q.Get("assigned_to"),
		Search:     q.Get("search"),
		SortBy:     q.Get("sort_by"),
		SortOrder:  q.Get("sort_order"),
	}

	if statuses := q.Get("status"); statuses != "" {
		for _, s := range strings.Split(statuses, ",") {
			if s = strings.TrimSpace(s); s != "" {
				filter.Status = append(filter.Status, model.CaseStatus(s))
			}
		}
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(q.Get("offset")); err == nil {
		filter.Offset = offset
	}

	return filter
}
