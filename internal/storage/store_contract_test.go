package storage

import (
	"context"
	"testing"
	"time"

	"github.com/claude/liftlog/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fptr(f float64) *float64 { return &f }

// storeContract exercises behavior every Store implementation must share.
func storeContract(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	seed := func(t *testing.T, st Store) (*models.User, *models.Exercise, *models.Exercise) {
		u := &models.User{Email: "Lifter@Example.com", FullName: "Lifter"}
		require.NoError(t, st.CreateUser(ctx, u))
		bench := &models.Exercise{Name: "Contract Bench", Category: "strength", MuscleGroups: []string{"chest"}}
		require.NoError(t, st.CreateExercise(ctx, bench))
		row := &models.Exercise{Name: "Contract Row", Category: "strength"}
		require.NoError(t, st.CreateExercise(ctx, row))
		return u, bench, row
	}

	newTemplate := func(t *testing.T, st Store, userID string, exIDs ...string) *models.WorkoutTemplate {
		tpl := &models.WorkoutTemplate{UserID: userID, Name: "Push " + time.Now().Format(time.RFC3339Nano)}
		for _, id := range exIDs {
			tpl.Exercises = append(tpl.Exercises, models.WorkoutExercise{ExerciseID: id, TargetReps: 10, TargetWeight: fptr(100)})
		}
		require.NoError(t, tpl.Validate())
		require.NoError(t, st.CreateTemplate(ctx, tpl))
		return tpl
	}

	t.Run("users", func(t *testing.T) {
		st := newStore(t)
		u, _, _ := seed(t, st)
		assert.Equal(t, "lifter@example.com", u.Email)

		got, err := st.GetUserByEmail(ctx, "LIFTER@example.com")
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)

		err = st.CreateUser(ctx, &models.User{Email: "lifter@example.com"})
		assert.ErrorIs(t, err, ErrConflict)

		_, err = st.GetUserByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("exercises", func(t *testing.T) {
		st := newStore(t)
		_, bench, _ := seed(t, st)

		err := st.CreateExercise(ctx, &models.Exercise{Name: "contract bench", Category: "strength"})
		assert.ErrorIs(t, err, ErrConflict)

		found, err := st.FindExerciseByName(ctx, "CONTRACT BENCH")
		require.NoError(t, err)
		assert.Equal(t, bench.ID, found.ID)

		list, err := st.ListExercises(ctx)
		require.NoError(t, err)
		for i := 1; i < len(list); i++ {
			assert.LessOrEqual(t, list[i-1].Name, list[i].Name)
		}
	})

	t.Run("templates", func(t *testing.T) {
		st := newStore(t)
		u, bench, row := seed(t, st)
		tpl := newTemplate(t, st, u.ID, bench.ID, row.ID)
		require.Len(t, tpl.Exercises, 2)
		assert.Equal(t, bench.ID, tpl.Exercises[0].ExerciseID)
		require.NotNil(t, tpl.Exercises[0].Exercise)
		assert.Equal(t, "Contract Bench", tpl.Exercises[0].Exercise.Name)

		_, err := st.GetTemplate(ctx, tpl.ID, "00000000-0000-4000-8000-000000000000")
		assert.ErrorIs(t, err, ErrNotFound)

		benchTargetID := tpl.Exercises[0].ID
		tpl.Name = "Push Renamed"
		tpl.Exercises = []models.WorkoutExercise{{ExerciseID: bench.ID, TargetReps: 8}}
		require.NoError(t, tpl.Validate())
		require.NoError(t, st.UpdateTemplate(ctx, tpl))

		got, err := st.GetTemplate(ctx, tpl.ID, u.ID)
		require.NoError(t, err)
		assert.Equal(t, "Push Renamed", got.Name)
		require.Len(t, got.Exercises, 1)
		assert.Equal(t, benchTargetID, got.Exercises[0].ID)
		assert.Equal(t, 8, got.Exercises[0].TargetReps)

		require.NoError(t, st.DeleteTemplate(ctx, tpl.ID, u.ID))
		_, err = st.GetTemplate(ctx, tpl.ID, u.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("sessions and sets", func(t *testing.T) {
		st := newStore(t)
		u, bench, row := seed(t, st)
		tpl := newTemplate(t, st, u.ID, bench.ID, row.ID)

		sess := &models.WorkoutSession{UserID: u.ID, TemplateID: &tpl.ID}
		require.NoError(t, st.CreateSession(ctx, sess))
		assert.Equal(t, tpl.Name, sess.Name)
		assert.False(t, sess.StartedAt.IsZero())

		for i, reps := range []int{10, 12} {
			set := &models.WorkoutSet{
				SessionID:         sess.ID,
				WorkoutExerciseID: tpl.Exercises[0].ID,
				SetNumber:         i + 1,
				ActualReps:        reps,
				ActualWeight:      fptr(100 + 5*float64(i)),
			}
			require.NoError(t, st.CreateSet(ctx, set))
			require.NotNil(t, set.WorkoutExercise)
			require.NotNil(t, set.WorkoutExercise.Exercise)
		}

		dup := &models.WorkoutSet{SessionID: sess.ID, WorkoutExerciseID: tpl.Exercises[0].ID, SetNumber: 1, ActualReps: 5}
		assert.ErrorIs(t, st.CreateSet(ctx, dup), ErrConflict)

		sets, err := st.ListSessionSets(ctx, sess.ID)
		require.NoError(t, err)
		require.Len(t, sets, 2)
		assert.Equal(t, bench.ID, sets[0].WorkoutExercise.Exercise.ID)

		progress, err := st.ListExerciseSetsSince(ctx, u.ID, bench.ID, time.Now().Add(-time.Hour))
		require.NoError(t, err)
		assert.Len(t, progress, 2)

		err = st.DeleteTemplate(ctx, tpl.ID, u.ID)
		assert.ErrorIs(t, err, ErrConflict)

		done, err := st.CompleteSession(ctx, sess.ID, u.ID, time.Now())
		require.NoError(t, err)
		assert.True(t, done.Completed())

		_, err = st.CompleteSession(ctx, sess.ID, u.ID, time.Now())
		assert.ErrorIs(t, err, ErrSessionCompleted)

		late := &models.WorkoutSet{SessionID: sess.ID, WorkoutExerciseID: tpl.Exercises[0].ID, SetNumber: 3, ActualReps: 5}
		assert.ErrorIs(t, st.CreateSet(ctx, late), ErrSessionCompleted)

		list, err := st.ListSessions(ctx, u.ID, 0)
		require.NoError(t, err)
		require.Len(t, list, 1)
		require.NotNil(t, list[0].Template)
		assert.Equal(t, tpl.ID, list[0].Template.ID)

		exists, err := st.SessionExists(ctx, u.ID, sess.Name, sess.StartedAt)
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("empty lists", func(t *testing.T) {
		st := newStore(t)
		u, _, _ := seed(t, st)

		templates, err := st.ListTemplates(ctx, u.ID)
		require.NoError(t, err)
		assert.NotNil(t, templates)
		assert.Empty(t, templates)

		sessions, err := st.ListSessions(ctx, u.ID, 0)
		require.NoError(t, err)
		assert.NotNil(t, sessions)
		assert.Empty(t, sessions)
	})

	t.Run("delete session", func(t *testing.T) {
		st := newStore(t)
		u, bench, _ := seed(t, st)
		tpl := newTemplate(t, st, u.ID, bench.ID)

		sess := &models.WorkoutSession{UserID: u.ID, TemplateID: &tpl.ID}
		require.NoError(t, st.CreateSession(ctx, sess))
		set := &models.WorkoutSet{SessionID: sess.ID, WorkoutExerciseID: tpl.Exercises[0].ID, SetNumber: 1, ActualReps: 10}
		require.NoError(t, st.CreateSet(ctx, set))

		other := &models.User{Email: "intruder@example.com"}
		require.NoError(t, st.CreateUser(ctx, other))
		assert.ErrorIs(t, st.DeleteSession(ctx, sess.ID, other.ID), ErrNotFound)

		require.NoError(t, st.DeleteSession(ctx, sess.ID, u.ID))
		_, err := st.GetSession(ctx, sess.ID, u.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		sets, err := st.ListSessionSets(ctx, sess.ID)
		require.NoError(t, err)
		assert.Empty(t, sets)

		exists, err := st.SessionExists(ctx, u.ID, sess.Name, sess.StartedAt)
		require.NoError(t, err)
		assert.False(t, exists)

		// the template is free to go once its only sets are gone
		require.NoError(t, st.DeleteTemplate(ctx, tpl.ID, u.ID))
		assert.ErrorIs(t, st.DeleteSession(ctx, sess.ID, u.ID), ErrNotFound)
	})

	t.Run("foreign workout exercise", func(t *testing.T) {
		st := newStore(t)
		u, bench, _ := seed(t, st)
		other := &models.User{Email: "other@example.com"}
		require.NoError(t, st.CreateUser(ctx, other))
		otherTpl := newTemplate(t, st, other.ID, bench.ID)

		sess := &models.WorkoutSession{UserID: u.ID, Name: "free"}
		require.NoError(t, st.CreateSession(ctx, sess))

		set := &models.WorkoutSet{SessionID: sess.ID, WorkoutExerciseID: otherTpl.Exercises[0].ID, SetNumber: 1, ActualReps: 5}
		assert.ErrorIs(t, st.CreateSet(ctx, set), ErrNotFound)
	})
}
