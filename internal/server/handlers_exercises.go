package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/overload"
	"github.com/claude/liftlog/internal/storage"
)

const (
	defaultProgressDays = 30
	maxProgressDays     = 365
)

type createExerciseRequest struct {
	Name         string   `json:"name"`
	Category     string   `json:"category"`
	MuscleGroups []string `json:"muscle_groups"`
	Equipment    *string  `json:"equipment"`
	Instructions *string  `json:"instructions"`
}

type progressResponse struct {
	Exercise *models.Exercise      `json:"exercise"`
	Days     int                   `json:"days"`
	Points   []models.ProgressPoint `json:"points"`
}

func (s *Server) handleListExercises(w http.ResponseWriter, r *http.Request) {
	var (
		exercises []models.Exercise
		err       error
	)
	if s.catalog != nil {
		exercises, err = s.catalog.Exercises(r.Context())
	} else {
		exercises, err = s.store.ListExercises(r.Context())
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, exercises)
}

func (s *Server) handleCreateExercise(w http.ResponseWriter, r *http.Request) {
	var req createExerciseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	e := &models.Exercise{
		Name:         req.Name,
		Category:     req.Category,
		MuscleGroups: req.MuscleGroups,
		Equipment:    req.Equipment,
		Instructions: req.Instructions,
	}
	if err := e.Validate(); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.CreateExercise(r.Context(), e); err != nil {
		s.writeError(w, r, err)
		return
	}
	if s.catalog != nil {
		if err := s.catalog.Refresh(r.Context()); err != nil {
			s.log.Warn("catalog refresh failed", "error", err)
		}
	}
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) exercise(r *http.Request, id string) (*models.Exercise, error) {
	if s.catalog == nil {
		return s.store.GetExercise(r.Context(), id)
	}
	e, ok, err := s.catalog.Exercise(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, storage.ErrNotFound
	}
	return e, nil
}

// handleExerciseProgress returns the caller's per-day averages for one
// exercise over the last ?days= days.
func (s *Server) handleExerciseProgress(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "exercise")
	if !ok {
		return
	}
	days := defaultProgressDays
	if d := r.URL.Query().Get("days"); d != "" {
		parsed, err := strconv.Atoi(d)
		if err != nil || parsed < 1 || parsed > maxProgressDays {
			badRequest(w, "days must be between 1 and "+strconv.Itoa(maxProgressDays))
			return
		}
		days = parsed
	}

	e, err := s.exercise(r, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	since := time.Now().UTC().AddDate(0, 0, -days)
	sets, err := s.store.ListExerciseSetsSince(r.Context(), userFromContext(r).ID, id, since)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, progressResponse{
		Exercise: e,
		Days:     days,
		Points:   overload.DailyProgress(sets),
	})
}
