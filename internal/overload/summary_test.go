package overload

import (
	"testing"
	"time"

	"github.com/claude/liftlog/internal/models"
)

// TestSummarize verifies set count, volume with bodyweight sets contributing
// nothing, distinct exercise count and duration.
func TestSummarize(t *testing.T) {
	bench := target("bench", "Bench Press", 10, ptr(100.0))
	pullup := target("pullup", "Pull Up", 10, nil)

	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(45 * time.Minute)
	session := models.WorkoutSession{StartedAt: start, CompletedAt: &end}

	sets := []models.WorkoutSet{
		set(bench, 1, 10, ptr(100.0)),
		set(bench, 2, 8, ptr(105.0)),
		set(pullup, 1, 12, nil),
	}

	got := Summarize(session, sets)
	if got.TotalSets != 3 {
		t.Errorf("total sets = %d, want 3", got.TotalSets)
	}
	if !approx(got.TotalVolume, 1840) {
		t.Errorf("total volume = %v, want 1840", got.TotalVolume)
	}
	if got.ExerciseCount != 2 {
		t.Errorf("exercise count = %d, want 2", got.ExerciseCount)
	}
	if got.DurationSeconds != 2700 {
		t.Errorf("duration = %d, want 2700", got.DurationSeconds)
	}
}

// TestSummarizeInProgress verifies an unfinished, empty session.
func TestSummarizeInProgress(t *testing.T) {
	got := Summarize(models.WorkoutSession{StartedAt: time.Now()}, nil)
	if got != (models.SessionSummary{}) {
		t.Errorf("Summarize(empty) = %+v, want zero value", got)
	}
}

// TestDailyProgress verifies per-day averages ordered oldest first.
func TestDailyProgress(t *testing.T) {
	we := target("squat", "Squat", 5, ptr(100.0))
	day1 := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	day2 := day1.Add(48 * time.Hour)

	at := func(s models.WorkoutSet, ts time.Time) models.WorkoutSet {
		s.CreatedAt = ts
		return s
	}
	sets := []models.WorkoutSet{
		at(set(we, 1, 5, ptr(110.0)), day2),
		at(set(we, 1, 5, ptr(100.0)), day1),
		at(set(we, 2, 3, ptr(100.0)), day1.Add(10*time.Minute)),
		at(set(we, 2, 4, nil), day2.Add(5*time.Minute)),
	}

	got := DailyProgress(sets)
	if len(got) != 2 {
		t.Fatalf("got %d points, want 2", len(got))
	}
	if got[0].Date != "2026-02-01" || got[1].Date != "2026-02-03" {
		t.Errorf("dates = %s, %s", got[0].Date, got[1].Date)
	}
	if !approx(got[0].AvgWeight, 100) || !approx(got[0].AvgReps, 4) || got[0].Sets != 2 {
		t.Errorf("day1 = %+v", got[0])
	}
	if !approx(got[1].AvgWeight, 55) || !approx(got[1].AvgReps, 4.5) || got[1].Sets != 2 {
		t.Errorf("day2 = %+v", got[1])
	}
}
