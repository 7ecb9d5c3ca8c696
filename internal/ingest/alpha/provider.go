package alpha

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/claude/liftlog/internal/ingest"
	"github.com/claude/liftlog/internal/metrics"
	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/storage"
	"go.uber.org/multierr"
)

// ImportedCategory is the category given to exercises first seen in an export.
const ImportedCategory = "imported"

// Store is the subset of storage.Store an import needs.
type Store interface {
	FindExerciseByName(ctx context.Context, name string) (*models.Exercise, error)
	CreateExercise(ctx context.Context, e *models.Exercise) error
	FindTemplateByName(ctx context.Context, name, userID string) (*models.WorkoutTemplate, error)
	CreateTemplate(ctx context.Context, t *models.WorkoutTemplate) error
	UpdateTemplate(ctx context.Context, t *models.WorkoutTemplate) error
	SessionExists(ctx context.Context, userID, name string, startedAt time.Time) (bool, error)
	CreateSession(ctx context.Context, s *models.WorkoutSession) error
	CompleteSession(ctx context.Context, id, userID string, at time.Time) (*models.WorkoutSession, error)
	CreateSet(ctx context.Context, set *models.WorkoutSet) error
	DeleteSession(ctx context.Context, id, userID string) error
}

// Provider turns Alpha Progression exports into templates, sessions and sets.
type Provider struct {
	store   Store
	log     *slog.Logger
	metrics *metrics.Manager
}

// NewProvider creates an import provider. m may be nil.
func NewProvider(store Store, log *slog.Logger, m *metrics.Manager) *Provider {
	return &Provider{store: store, log: log, metrics: m}
}

// Ingest parses an export and stores every session userID does not already
// have. A session that fails is logged and reported in the returned error;
// the others are still imported.
func (p *Provider) Ingest(ctx context.Context, r io.Reader, userID string) (*ingest.Result, error) {
	sessions, err := Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing export: %w", err)
	}

	run := &importRun{Provider: p, userID: userID, result: &ingest.Result{}}
	var errs error
	for _, s := range sessions {
		if err := ctx.Err(); err != nil {
			return run.result, err
		}
		if err := run.session(ctx, s); err != nil {
			p.log.Warn("alpha session import failed", "session", s.Name, "date", s.Date, "error", err)
			errs = multierr.Append(errs, fmt.Errorf("session %q (%s): %w", s.Name, s.Date.Format(time.DateTime), err))
		}
	}

	res := run.result
	res.Message = fmt.Sprintf("imported %d sessions with %d sets, skipped %d",
		res.SessionsImported, res.SetsImported, res.Skipped)
	p.log.Info("alpha import finished",
		"user_id", userID,
		"sessions", res.SessionsImported,
		"sets", res.SetsImported,
		"skipped", res.Skipped,
		"exercises_created", res.ExercisesCreated,
		"templates_created", res.TemplatesCreated)
	return res, errs
}

type importRun struct {
	*Provider
	userID    string
	result    *ingest.Result
	exercises map[string]*models.Exercise
}

func (r *importRun) session(ctx context.Context, s Session) error {
	exists, err := r.store.SessionExists(ctx, r.userID, s.Name, s.Date)
	if err != nil {
		return fmt.Errorf("checking for existing session: %w", err)
	}
	if exists {
		r.result.Skipped++
		return nil
	}

	tpl, err := r.template(ctx, s)
	if err != nil {
		return err
	}
	targets := make(map[string]string, len(tpl.Exercises))
	for _, we := range tpl.Exercises {
		targets[we.ExerciseID] = we.ID
	}

	sess := &models.WorkoutSession{UserID: r.userID, TemplateID: &tpl.ID, Name: s.Name, StartedAt: s.Date}
	if err := r.store.CreateSession(ctx, sess); err != nil {
		return fmt.Errorf("creating session: %w", err)
	}

	sets, err := r.fill(ctx, sess, s, targets)
	if err != nil {
		// A half-written session would be skipped by every later import.
		return multierr.Append(err, r.store.DeleteSession(ctx, sess.ID, r.userID))
	}
	r.result.SetsImported += sets
	r.result.SessionsImported++
	if r.metrics != nil {
		r.metrics.CounterImportedSession.Inc()
	}
	return nil
}

// fill stores the working sets of s under sess and completes it, returning
// the number of sets written.
func (r *importRun) fill(ctx context.Context, sess *models.WorkoutSession, s Session, targets map[string]string) (int, error) {
	// Sets are stamped a second apart so they list in export order.
	at := s.Date
	n := 0
	setNumbers := make(map[string]int)
	for _, ex := range s.Exercises {
		e, err := r.exercise(ctx, ex)
		if err != nil {
			return n, err
		}
		weID := targets[e.ID]
		for _, set := range ex.WorkingSets() {
			setNumbers[weID]++
			ws := &models.WorkoutSet{
				SessionID:         sess.ID,
				WorkoutExerciseID: weID,
				SetNumber:         setNumbers[weID],
				ActualReps:        set.Reps,
				CreatedAt:         at,
			}
			if !set.Bodyweight || set.WeightKg != 0 {
				w := set.WeightKg
				ws.ActualWeight = &w
			}
			if err := r.store.CreateSet(ctx, ws); err != nil {
				return n, fmt.Errorf("creating set %d of %s: %w", ws.SetNumber, ex.Name, err)
			}
			n++
			at = at.Add(time.Second)
		}
	}

	end := s.Date.Add(s.Duration)
	if end.Before(at) {
		end = at
	}
	if _, err := r.store.CompleteSession(ctx, sess.ID, r.userID, end); err != nil {
		return n, fmt.Errorf("completing session: %w", err)
	}
	return n, nil
}

// exercise finds the catalog entry for an export exercise, creating it on
// first sight.
func (r *importRun) exercise(ctx context.Context, ex Exercise) (*models.Exercise, error) {
	if e, ok := r.exercises[ex.Name]; ok {
		return e, nil
	}
	e, err := r.store.FindExerciseByName(ctx, ex.Name)
	if errors.Is(err, storage.ErrNotFound) {
		e = &models.Exercise{Name: ex.Name, Category: ImportedCategory}
		if ex.Equipment != "" {
			equipment := ex.Equipment
			e.Equipment = &equipment
		}
		if err = e.Validate(); err == nil {
			err = r.store.CreateExercise(ctx, e)
		}
		if err == nil {
			r.result.ExercisesCreated++
		}
	}
	if err != nil {
		return nil, fmt.Errorf("exercise %q: %w", ex.Name, err)
	}
	if r.exercises == nil {
		r.exercises = make(map[string]*models.Exercise)
	}
	r.exercises[ex.Name] = e
	return e, nil
}

// template returns the user's template named after s, creating it from s
// when missing and appending exercises the template does not have yet.
// Targets come from the first occurrence and carry no weight target.
func (r *importRun) template(ctx context.Context, s Session) (*models.WorkoutTemplate, error) {
	tpl, err := r.store.FindTemplateByName(ctx, s.Name, r.userID)
	created := false
	if errors.Is(err, storage.ErrNotFound) {
		tpl, err = &models.WorkoutTemplate{UserID: r.userID, Name: s.Name}, nil
		created = true
	}
	if err != nil {
		return nil, fmt.Errorf("looking up template: %w", err)
	}

	have := make(map[string]bool, len(tpl.Exercises))
	for _, we := range tpl.Exercises {
		have[we.ExerciseID] = true
	}
	changed := false
	for _, ex := range s.Exercises {
		e, err := r.exercise(ctx, ex)
		if err != nil {
			return nil, err
		}
		if have[e.ID] {
			continue
		}
		have[e.ID] = true
		changed = true
		tpl.Exercises = append(tpl.Exercises, models.WorkoutExercise{
			ExerciseID: e.ID,
			TargetSets: len(ex.WorkingSets()),
			TargetReps: ex.TargetReps,
		})
	}

	if err := tpl.Validate(); err != nil {
		return nil, fmt.Errorf("template %q: %w", s.Name, err)
	}
	switch {
	case created:
		if err := r.store.CreateTemplate(ctx, tpl); err != nil {
			return nil, fmt.Errorf("creating template: %w", err)
		}
		r.result.TemplatesCreated++
	case changed:
		if err := r.store.UpdateTemplate(ctx, tpl); err != nil {
			return nil, fmt.Errorf("updating template: %w", err)
		}
	}
	return tpl, nil
}
