package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalid is wrapped by every validation failure in this package.
var ErrInvalid = errors.New("invalid input")

// Template creation defaults.
const (
	DefaultTargetSets  = 3
	DefaultTargetReps  = 10
	DefaultRestSeconds = 60
)

// User is an account holder. PasswordHash never leaves the server.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Exercise is catalog reference data shared by all users.
type Exercise struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Category     string    `json:"category"`
	MuscleGroups []string  `json:"muscle_groups"`
	Equipment    *string   `json:"equipment,omitempty"`
	Instructions *string   `json:"instructions,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Validate checks the fields a caller supplies when creating an exercise.
func (e *Exercise) Validate() error {
	e.Name = strings.TrimSpace(e.Name)
	if e.Name == "" {
		return fmt.Errorf("%w: exercise name is required", ErrInvalid)
	}
	if e.Category == "" {
		e.Category = "other"
	}
	if e.MuscleGroups == nil {
		e.MuscleGroups = []string{}
	}
	return nil
}

// WorkoutTemplate is a reusable plan owned by one user.
type WorkoutTemplate struct {
	ID          string            `json:"id"`
	UserID      string            `json:"user_id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Exercises   []WorkoutExercise `json:"exercises"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Validate applies target defaults and rejects templates that would make
// the recommendation grouping ambiguous (the same exercise listed twice).
func (t *WorkoutTemplate) Validate() error {
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" {
		return fmt.Errorf("%w: template name is required", ErrInvalid)
	}
	seen := make(map[string]bool, len(t.Exercises))
	for i := range t.Exercises {
		we := &t.Exercises[i]
		if we.ExerciseID == "" {
			return fmt.Errorf("%w: exercise %d: exercise_id is required", ErrInvalid, i)
		}
		if seen[we.ExerciseID] {
			return fmt.Errorf("%w: exercise %s listed more than once", ErrInvalid, we.ExerciseID)
		}
		seen[we.ExerciseID] = true

		if we.TargetSets == 0 {
			we.TargetSets = DefaultTargetSets
		}
		if we.TargetReps == 0 {
			we.TargetReps = DefaultTargetReps
		}
		if we.RestSeconds == nil {
			rest := DefaultRestSeconds
			we.RestSeconds = &rest
		}
		we.OrderIndex = i
		if err := we.Validate(); err != nil {
			return fmt.Errorf("exercise %d: %w", i, err)
		}
	}
	return nil
}

// WorkoutExercise is one exercise target inside a template.
type WorkoutExercise struct {
	ID           string    `json:"id"`
	TemplateID   string    `json:"template_id"`
	ExerciseID   string    `json:"exercise_id"`
	Exercise     *Exercise `json:"exercise,omitempty"`
	TargetSets   int       `json:"target_sets"`
	TargetReps   int       `json:"target_reps"`
	TargetWeight *float64  `json:"target_weight,omitempty"`
	RestSeconds  *int      `json:"rest_seconds"`
	OrderIndex   int       `json:"order_index"`
}

// Validate checks target invariants.
func (we *WorkoutExercise) Validate() error {
	if we.TargetSets < 1 {
		return fmt.Errorf("%w: target_sets must be at least 1", ErrInvalid)
	}
	if we.TargetReps < 1 {
		return fmt.Errorf("%w: target_reps must be at least 1", ErrInvalid)
	}
	if we.TargetWeight != nil && *we.TargetWeight < 0 {
		return fmt.Errorf("%w: target_weight must not be negative", ErrInvalid)
	}
	if we.RestSeconds != nil && *we.RestSeconds < 0 {
		return fmt.Errorf("%w: rest_seconds must not be negative", ErrInvalid)
	}
	return nil
}

// WorkoutSession is one performance of a template (or a free session).
type WorkoutSession struct {
	ID          string           `json:"id"`
	UserID      string           `json:"user_id"`
	TemplateID  *string          `json:"template_id,omitempty"`
	Template    *WorkoutTemplate `json:"template,omitempty"`
	Name        string           `json:"name"`
	StartedAt   time.Time        `json:"started_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
	Notes       string           `json:"notes"`
}

// Completed reports whether the session has been finished.
func (s *WorkoutSession) Completed() bool {
	return s.CompletedAt != nil
}

// WorkoutSet is one logged set. WorkoutExercise (and its Exercise) are
// joined in on read.
type WorkoutSet struct {
	ID                string           `json:"id"`
	SessionID         string           `json:"session_id"`
	WorkoutExerciseID string           `json:"workout_exercise_id"`
	WorkoutExercise   *WorkoutExercise `json:"workout_exercise,omitempty"`
	SetNumber         int              `json:"set_number"`
	ActualReps        int              `json:"actual_reps"`
	ActualWeight      *float64         `json:"actual_weight,omitempty"`
	RestSeconds       *int             `json:"rest_seconds,omitempty"`
	Notes             string           `json:"notes"`
	CreatedAt         time.Time        `json:"created_at"`
}

// Validate checks the fields a caller supplies when logging a set.
func (s *WorkoutSet) Validate() error {
	if s.WorkoutExerciseID == "" {
		return fmt.Errorf("%w: workout_exercise_id is required", ErrInvalid)
	}
	if s.SetNumber < 1 {
		return fmt.Errorf("%w: set_number must be at least 1", ErrInvalid)
	}
	if s.ActualReps < 0 {
		return fmt.Errorf("%w: actual_reps must not be negative", ErrInvalid)
	}
	if s.ActualWeight != nil && *s.ActualWeight < 0 {
		return fmt.Errorf("%w: actual_weight must not be negative", ErrInvalid)
	}
	if s.RestSeconds != nil && *s.RestSeconds < 0 {
		return fmt.Errorf("%w: rest_seconds must not be negative", ErrInvalid)
	}
	return nil
}

// Weight returns the logged weight, or 0 for a bodyweight set.
func (s *WorkoutSet) Weight() float64 {
	if s.ActualWeight == nil {
		return 0
	}
	return *s.ActualWeight
}
