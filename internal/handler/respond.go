// Package handler provides HTTP handlers for the caseflow API.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/fieldverify-platform/caseflow/internal/apperrors"
	"github.com/fieldverify-platform/caseflow/internal/model"
)

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode response", "error", err)
		}
	}
}

// respondError writes an error response, mapping AppError codes to HTTP
// statuses and hiding internal detail behind a generic message.
func respondError(w http.ResponseWriter, err error) {
	status := apperrors.GetHTTPStatus(err)

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		respondJSON(w, status, map[string]interface{}{"error": appErr})
		return
	}

	slog.Error("unhandled error", "error", err)
	respondJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"code":    apperrors.CodeInternalError,
			"message": "an internal error occurred",
		},
	})
}

// actorFromRequest builds the acting user's identity from the gateway
// headers.
func actorFromRequest(r *http.Request) model.Actor {
	return model.Actor{
		ID:    r.Header.Get("X-User-ID"),
		Name:  r.Header.Get("X-User-Name"),
		Email: r.Header.Get("X-User-Email"),
	}
}

// requireUser extracts the actor and rejects requests with no user
// identity.
func requireUser(w http.ResponseWriter, r *http.Request) (model.Actor, bool) {
	actor := actorFromRequest(r)
	if actor.ID == "" {
		respondError(w, apperrors.New(apperrors.CodeUnauthorized, "user identity is required"))
		return actor, false
	}
	return actor, true
}

// decodeJSON decodes a request body, reporting malformed payloads as
// bad requests.
func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.BadRequest("invalid request body")
	}
	return nil
}
