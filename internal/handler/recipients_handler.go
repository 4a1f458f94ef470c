package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/fieldverify-platform/caseflow/internal/recipients"
)

// RecipientsHandler serves the approval-mail recipient directory.
type RecipientsHandler struct {
	directory *recipients.Directory
}

// NewRecipientsHandler creates a new recipients handler.
func NewRecipientsHandler(directory *recipients.Directory) *RecipientsHandler {
	return &RecipientsHandler{directory: directory}
}

// RegisterRoutes registers recipient routes on the router.
func (h *RecipientsHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/recipients", h.List).Methods(http.MethodGet)
}

// List handles GET /recipients, optionally narrowed to one client.
func (h *RecipientsHandler) List(w http.ResponseWriter, r *http.Request) {
	var entries []recipients.Recipient
	if client := r.URL.Query().Get("client"); client != "" {
		entries = h.directory.ForClient(client)
	} else {
		entries = h.directory.All()
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"recipients": entries,
		"default":    h.directory.DefaultAddress(),
	})
}
