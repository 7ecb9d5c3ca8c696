package server

import (
	"net/http"
)

const maxImportBytes = 32 << 20

// handleAlphaImport imports an Alpha Progression CSV export for the caller.
// Sessions that fail are reported with a 207 alongside the ones that made it.
func (s *Server) handleAlphaImport(w http.ResponseWriter, r *http.Request) {
	u := userFromContext(r)
	body := http.MaxBytesReader(w, r.Body, maxImportBytes)
	result, err := s.alpha.Ingest(r.Context(), body, u.ID)
	if result == nil {
		s.log.Error("alpha import error", "user_id", u.ID, "error", err)
		badRequest(w, err.Error())
		return
	}
	if result.ExercisesCreated > 0 && s.catalog != nil {
		if rerr := s.catalog.Refresh(r.Context()); rerr != nil {
			s.log.Warn("catalog refresh failed", "error", rerr)
		}
	}
	if err != nil {
		writeJSON(w, http.StatusMultiStatus, map[string]any{
			"result": result,
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, result)
}
