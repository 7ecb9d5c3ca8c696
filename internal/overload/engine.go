// Package overload turns logged sets into progressive-overload
// recommendations and per-session aggregates. Everything here is pure: no
// I/O, no shared state, safe for concurrent use.
package overload

import (
	"errors"
	"fmt"

	"github.com/claude/liftlog/internal/models"
)

// Increment is added to the current weight when every target was met. The
// unit is whatever the sets were logged in.
const Increment = 5.0

// ErrMalformedInput is returned when a set is missing its exercise target or
// exercise reference.
var ErrMalformedInput = errors.New("malformed input")

type group struct {
	exercise *models.Exercise
	target   *models.WorkoutExercise
	sets     []*models.WorkoutSet
}

// Recommend computes one recommendation per distinct exercise in sets.
// Recommendations appear in the order each exercise is first seen. The call
// is all-or-nothing: one malformed set fails the whole batch.
func Recommend(sets []models.WorkoutSet) ([]models.Recommendation, error) {
	groups, err := groupByExercise(sets)
	if err != nil {
		return nil, err
	}

	recs := make([]models.Recommendation, 0, len(groups))
	for _, g := range groups {
		recs = append(recs, recommend(g))
	}
	return recs, nil
}

func groupByExercise(sets []models.WorkoutSet) ([]*group, error) {
	var groups []*group
	index := make(map[string]*group)

	for i := range sets {
		s := &sets[i]
		if err := checkSet(i, s); err != nil {
			return nil, err
		}
		ex := s.WorkoutExercise.Exercise
		g, ok := index[ex.ID]
		if !ok {
			// first target seen for an exercise wins
			g = &group{exercise: ex, target: s.WorkoutExercise}
			index[ex.ID] = g
			groups = append(groups, g)
		}
		g.sets = append(g.sets, s)
	}
	return groups, nil
}

func checkSet(i int, s *models.WorkoutSet) error {
	switch {
	case s.WorkoutExercise == nil:
		return fmt.Errorf("%w: set %d (id %q) has no workout exercise", ErrMalformedInput, i, s.ID)
	case s.WorkoutExercise.Exercise == nil:
		return fmt.Errorf("%w: set %d (id %q) has no exercise", ErrMalformedInput, i, s.ID)
	case s.WorkoutExercise.Exercise.ID == "":
		return fmt.Errorf("%w: set %d (id %q) has an exercise without id", ErrMalformedInput, i, s.ID)
	}
	return nil
}

func recommend(g *group) models.Recommendation {
	var total float64
	met := true
	targetWeight := 0.0
	if g.target.TargetWeight != nil {
		targetWeight = *g.target.TargetWeight
	}

	for _, s := range g.sets {
		w := s.Weight()
		total += w
		if s.ActualReps < g.target.TargetReps || w < targetWeight {
			met = false
		}
	}
	current := total / float64(len(g.sets))

	rec := models.Recommendation{
		ExerciseID:        g.exercise.ID,
		ExerciseName:      g.exercise.Name,
		CurrentWeight:     current,
		RecommendedWeight: current,
		Reason:            models.ReasonTargetFailed,
	}
	if met {
		rec.RecommendedWeight = current + Increment
		rec.Increment = Increment
		rec.Reason = models.ReasonTargetMet
	}
	return rec
}
