package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/storage"
	"github.com/google/uuid"
)

type templateExerciseRequest struct {
	ExerciseID   string   `json:"exercise_id"`
	TargetSets   int      `json:"target_sets"`
	TargetReps   int      `json:"target_reps"`
	TargetWeight *float64 `json:"target_weight"`
	RestSeconds  *int     `json:"rest_seconds"`
}

type templateRequest struct {
	Name        string                    `json:"name"`
	Description string                    `json:"description"`
	Exercises   []templateExerciseRequest `json:"exercises"`
}

// template builds a validated template owned by userID, checking that every
// referenced exercise exists.
func (s *Server) template(r *http.Request, req templateRequest, userID string) (*models.WorkoutTemplate, error) {
	t := &models.WorkoutTemplate{
		UserID:      userID,
		Name:        req.Name,
		Description: req.Description,
		Exercises:   make([]models.WorkoutExercise, 0, len(req.Exercises)),
	}
	for i, ex := range req.Exercises {
		if _, err := uuid.Parse(ex.ExerciseID); err != nil {
			return nil, fmt.Errorf("%w: exercise %d: invalid exercise_id", models.ErrInvalid, i)
		}
		if _, err := s.exercise(r, ex.ExerciseID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil, fmt.Errorf("%w: exercise %d: unknown exercise %s", models.ErrInvalid, i, ex.ExerciseID)
			}
			return nil, err
		}
		t.Exercises = append(t.Exercises, models.WorkoutExercise{
			ExerciseID:   ex.ExerciseID,
			TargetSets:   ex.TargetSets,
			TargetReps:   ex.TargetReps,
			TargetWeight: ex.TargetWeight,
			RestSeconds:  ex.RestSeconds,
		})
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.store.ListTemplates(r.Context(), userFromContext(r).ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, templates)
}

func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	t, err := s.template(r, req, userFromContext(r).ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.CreateTemplate(r.Context(), t); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "template")
	if !ok {
		return
	}
	t, err := s.store.GetTemplate(r.Context(), id, userFromContext(r).ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// handleUpdateTemplate replaces a template's name, description and exercise
// list. Exercises kept across the update keep their ids, so logged sets stay
// attached.
func (s *Server) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "template")
	if !ok {
		return
	}
	var req templateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	userID := userFromContext(r).ID
	if _, err := s.store.GetTemplate(r.Context(), id, userID); err != nil {
		s.writeError(w, r, err)
		return
	}
	t, err := s.template(r, req, userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	t.ID = id
	if err := s.store.UpdateTemplate(r.Context(), t); err != nil {
		s.writeError(w, r, err)
		return
	}
	fresh, err := s.store.GetTemplate(r.Context(), id, userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fresh)
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "template")
	if !ok {
		return
	}
	if err := s.store.DeleteTemplate(r.Context(), id, userFromContext(r).ID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
