package overload

import (
	"sort"

	"github.com/claude/liftlog/internal/models"
)

// Summarize aggregates a session's sets. Bodyweight sets add no volume.
// Sets without an exercise reference fall back to their workout exercise id
// when counting distinct exercises.
func Summarize(session models.WorkoutSession, sets []models.WorkoutSet) models.SessionSummary {
	sum := models.SessionSummary{TotalSets: len(sets)}

	exercises := make(map[string]struct{})
	for i := range sets {
		s := &sets[i]
		sum.TotalVolume += s.Weight() * float64(s.ActualReps)
		exercises[exerciseKey(s)] = struct{}{}
	}
	sum.ExerciseCount = len(exercises)

	if session.CompletedAt != nil && session.CompletedAt.After(session.StartedAt) {
		sum.DurationSeconds = int64(session.CompletedAt.Sub(session.StartedAt).Seconds())
	}
	return sum
}

func exerciseKey(s *models.WorkoutSet) string {
	if s.WorkoutExercise != nil {
		if s.WorkoutExercise.Exercise != nil && s.WorkoutExercise.Exercise.ID != "" {
			return s.WorkoutExercise.Exercise.ID
		}
		if s.WorkoutExercise.ExerciseID != "" {
			return s.WorkoutExercise.ExerciseID
		}
	}
	return "we:" + s.WorkoutExerciseID
}

// DailyProgress buckets one exercise's sets by UTC day of CreatedAt and
// returns per-day averages, oldest first.
func DailyProgress(sets []models.WorkoutSet) []models.ProgressPoint {
	type acc struct {
		weight, reps float64
		n            int
	}
	days := make(map[string]*acc)
	for i := range sets {
		s := &sets[i]
		key := models.DayKey(s.CreatedAt)
		a, ok := days[key]
		if !ok {
			a = &acc{}
			days[key] = a
		}
		a.weight += s.Weight()
		a.reps += float64(s.ActualReps)
		a.n++
	}

	points := make([]models.ProgressPoint, 0, len(days))
	for day, a := range days {
		points = append(points, models.ProgressPoint{
			Date:      day,
			AvgWeight: a.weight / float64(a.n),
			AvgReps:   a.reps / float64(a.n),
			Sets:      a.n,
		})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date < points[j].Date })
	return points
}
