package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/overload"
	"github.com/google/uuid"
)

type createSessionRequest struct {
	TemplateID *string `json:"template_id"`
	Name       string  `json:"name"`
	Notes      string  `json:"notes"`
}

type createSetRequest struct {
	WorkoutExerciseID string   `json:"workout_exercise_id"`
	SetNumber         int      `json:"set_number"`
	ActualReps        int      `json:"actual_reps"`
	ActualWeight      *float64 `json:"actual_weight"`
	RestSeconds       *int     `json:"rest_seconds"`
	Notes             string   `json:"notes"`
}

type summaryResponse struct {
	Session         *models.WorkoutSession  `json:"session"`
	Summary         models.SessionSummary   `json:"summary"`
	Recommendations []models.Recommendation `json:"recommendations"`
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			badRequest(w, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	sessions, err := s.store.ListSessions(r.Context(), userFromContext(r).ID, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sess := &models.WorkoutSession{
		UserID: userFromContext(r).ID,
		Name:   strings.TrimSpace(req.Name),
		Notes:  req.Notes,
	}
	if req.TemplateID != nil {
		id, err := uuid.Parse(*req.TemplateID)
		if err != nil {
			badRequest(w, "invalid template ID")
			return
		}
		tid := id.String()
		sess.TemplateID = &tid
	} else if sess.Name == "" {
		badRequest(w, "name is required for a session without a template")
		return
	}
	if err := s.store.CreateSession(r.Context(), sess); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

// session loads the {id} session owned by the caller, writing the error
// response itself when that fails.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*models.WorkoutSession, bool) {
	id, ok := pathID(w, r, "session")
	if !ok {
		return nil, false
	}
	sess, err := s.store.GetSession(r.Context(), id, userFromContext(r).ID)
	if err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	return sess, true
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleCompleteSession(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "session")
	if !ok {
		return
	}
	sess, err := s.store.CompleteSession(r.Context(), id, userFromContext(r).ID, time.Now().UTC())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleListSets(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sets, err := s.store.ListSessionSets(r.Context(), sess.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sets)
}

func (s *Server) handleCreateSet(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req createSetRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if _, err := uuid.Parse(req.WorkoutExerciseID); err != nil {
		badRequest(w, "invalid workout_exercise_id")
		return
	}
	set := &models.WorkoutSet{
		SessionID:         sess.ID,
		WorkoutExerciseID: req.WorkoutExerciseID,
		SetNumber:         req.SetNumber,
		ActualReps:        req.ActualReps,
		ActualWeight:      req.ActualWeight,
		RestSeconds:       req.RestSeconds,
		Notes:             req.Notes,
	}
	if err := set.Validate(); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.CreateSet(r.Context(), set); err != nil {
		s.writeError(w, r, err)
		return
	}
	if s.metrics != nil {
		s.metrics.CounterSetsLogged.Inc()
	}
	writeJSON(w, http.StatusCreated, set)
}

// recommend runs the overload engine over a session's sets.
func (s *Server) recommend(r *http.Request, sess *models.WorkoutSession) ([]models.WorkoutSet, []models.Recommendation, error) {
	sets, err := s.store.ListSessionSets(r.Context(), sess.ID)
	if err != nil {
		return nil, nil, err
	}
	recs, err := overload.Recommend(sets)
	if err != nil {
		return nil, nil, fmt.Errorf("session %s: %w", sess.ID, err)
	}
	if s.metrics != nil {
		for _, rec := range recs {
			s.metrics.CounterRecommendations.WithLabelValues(string(rec.Reason)).Inc()
		}
	}
	return sets, recs, nil
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	_, recs, err := s.recommend(r, sess)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleSessionSummary(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sets, recs, err := s.recommend(r, sess)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{
		Session:         sess,
		Summary:         overload.Summarize(*sess, sets),
		Recommendations: recs,
	})
}
