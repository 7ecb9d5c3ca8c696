package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/claude/liftlog/internal/auth"
	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/overload"
	"github.com/claude/liftlog/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// errorStatus maps domain errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalid),
		errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, auth.ErrInvalidEmail):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, errUnidentified):
		return http.StatusUnauthorized
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrConflict),
		errors.Is(err, storage.ErrSessionCompleted),
		errors.Is(err, auth.ErrEmailTaken):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError reports err to the client. Server-side failures are logged
// and their detail withheld.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		attrs := []any{"method", r.Method, "path", r.URL.Path, "error", err}
		if errors.Is(err, overload.ErrMalformedInput) {
			s.log.Error("recommendation input malformed", attrs...)
		} else {
			s.log.Error("request failed", attrs...)
		}
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

// decodeJSON reads a JSON request body into v, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return false
	}
	return true
}

// pathID returns the {id} URL parameter, writing a 400 unless it is a UUID.
func pathID(w http.ResponseWriter, r *http.Request, what string) (string, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, fmt.Sprintf("invalid %s ID", what))
		return "", false
	}
	return id.String(), true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userFromContext(r))
}
