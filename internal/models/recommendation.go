package models

import "time"

// Reason explains a recommendation.
type Reason string

const (
	ReasonTargetMet    Reason = "target_met"
	ReasonTargetFailed Reason = "target_failed"
	// ReasonNewExercise is reserved for exercises with no training history.
	// Nothing produces it yet.
	ReasonNewExercise Reason = "new_exercise"
)

// Recommendation is the next-session weight for one exercise. It is computed
// on demand and never stored.
type Recommendation struct {
	ExerciseID        string  `json:"exercise_id"`
	ExerciseName      string  `json:"exercise_name"`
	CurrentWeight     float64 `json:"current_weight"`
	RecommendedWeight float64 `json:"recommended_weight"`
	Increment         float64 `json:"increment"`
	Reason            Reason  `json:"reason"`
}

// SessionSummary aggregates one session's logged sets.
type SessionSummary struct {
	TotalSets       int     `json:"total_sets"`
	TotalVolume     float64 `json:"total_volume"`
	ExerciseCount   int     `json:"exercise_count"`
	DurationSeconds int64   `json:"duration_seconds"`
}

// ProgressPoint is one day of an exercise's history.
type ProgressPoint struct {
	Date      string  `json:"date"`
	AvgWeight float64 `json:"avg_weight"`
	AvgReps   float64 `json:"avg_reps"`
	Sets      int     `json:"sets"`
}

// DayKey formats t as the UTC calendar day used by ProgressPoint.Date.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
