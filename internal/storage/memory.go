package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/claude/liftlog/internal/models"
	"github.com/google/uuid"
)

// Memory is an in-process Store. It backs the "memory" database driver and
// the server tests. Returned values are copies; callers may mutate them.
type Memory struct {
	mu sync.RWMutex

	users     map[string]models.User
	emails    map[string]string
	exercises map[string]models.Exercise
	templates map[string]models.WorkoutTemplate
	targets   map[string]models.WorkoutExercise
	sessions  map[string]models.WorkoutSession
	sets      map[string]models.WorkoutSet

	// Now is the clock used for created_at columns.
	Now func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		users:     make(map[string]models.User),
		emails:    make(map[string]string),
		exercises: make(map[string]models.Exercise),
		templates: make(map[string]models.WorkoutTemplate),
		targets:   make(map[string]models.WorkoutExercise),
		sessions:  make(map[string]models.WorkoutSession),
		sets:      make(map[string]models.WorkoutSet),
		Now:       func() time.Time { return time.Now().UTC() },
	}
}

func (m *Memory) CreateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	email := strings.ToLower(u.Email)
	if _, ok := m.emails[email]; ok {
		return fmt.Errorf("creating user: %w", ErrConflict)
	}
	u.ID = uuid.NewString()
	u.Email = email
	u.CreatedAt = m.Now()
	m.users[u.ID] = *u
	m.emails[email] = u.ID
	return nil
}

func (m *Memory) GetUser(_ context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *Memory) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.emails[strings.ToLower(email)]
	if !ok {
		return nil, ErrNotFound
	}
	u := m.users[id]
	return &u, nil
}

func (m *Memory) ListExercises(_ context.Context) ([]models.Exercise, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Exercise, 0, len(m.exercises))
	for _, e := range m.exercises {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) GetExercise(_ context.Context, id string) (*models.Exercise, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.exercises[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &e, nil
}

func (m *Memory) FindExerciseByName(_ context.Context, name string) (*models.Exercise, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, e := range m.exercises {
		if strings.EqualFold(e.Name, name) {
			return &e, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) CreateExercise(_ context.Context, e *models.Exercise) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.exercises {
		if strings.EqualFold(existing.Name, e.Name) {
			return fmt.Errorf("creating exercise %q: %w", e.Name, ErrConflict)
		}
	}
	e.ID = uuid.NewString()
	e.CreatedAt = m.Now()
	m.exercises[e.ID] = *e
	return nil
}

// template returns a copy of t with exercises joined. Caller holds mu.
func (m *Memory) template(t models.WorkoutTemplate) models.WorkoutTemplate {
	var exercises []models.WorkoutExercise
	for _, we := range m.targets {
		if we.TemplateID == t.ID {
			exercises = append(exercises, m.target(we))
		}
	}
	sort.Slice(exercises, func(i, j int) bool { return exercises[i].OrderIndex < exercises[j].OrderIndex })
	if exercises == nil {
		exercises = []models.WorkoutExercise{}
	}
	t.Exercises = exercises
	return t
}

// target returns we with its exercise joined. Caller holds mu.
func (m *Memory) target(we models.WorkoutExercise) models.WorkoutExercise {
	if e, ok := m.exercises[we.ExerciseID]; ok {
		we.Exercise = &e
	}
	return we
}

func (m *Memory) ListTemplates(_ context.Context, userID string) ([]models.WorkoutTemplate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []models.WorkoutTemplate{}
	for _, t := range m.templates {
		if t.UserID == userID {
			out = append(out, m.template(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) GetTemplate(_ context.Context, id, userID string) (*models.WorkoutTemplate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.templates[id]
	if !ok || t.UserID != userID {
		return nil, ErrNotFound
	}
	t = m.template(t)
	return &t, nil
}

func (m *Memory) FindTemplateByName(_ context.Context, name, userID string) (*models.WorkoutTemplate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, t := range m.templates {
		if t.UserID == userID && t.Name == name {
			t = m.template(t)
			return &t, nil
		}
	}
	return nil, ErrNotFound
}

// putTargets inserts or updates t's exercises keyed by exercise id and drops
// the ones no longer listed. Caller holds mu.
func (m *Memory) putTargets(t *models.WorkoutTemplate) error {
	existing := make(map[string]models.WorkoutExercise)
	for id, we := range m.targets {
		if we.TemplateID == t.ID {
			existing[we.ExerciseID] = m.targets[id]
		}
	}

	keep := make(map[string]bool, len(t.Exercises))
	for i := range t.Exercises {
		we := &t.Exercises[i]
		if _, ok := m.exercises[we.ExerciseID]; !ok {
			return fmt.Errorf("exercise %s: %w", we.ExerciseID, ErrNotFound)
		}
		keep[we.ExerciseID] = true
	}
	for exID, we := range existing {
		if !keep[exID] && m.targetHasSets(we.ID) {
			return fmt.Errorf("removing exercise %s with logged sets: %w", exID, ErrConflict)
		}
	}

	for exID, we := range existing {
		if !keep[exID] {
			delete(m.targets, we.ID)
		}
	}
	for i := range t.Exercises {
		we := &t.Exercises[i]
		we.TemplateID = t.ID
		if prev, ok := existing[we.ExerciseID]; ok {
			we.ID = prev.ID
		} else {
			we.ID = uuid.NewString()
		}
		stored := *we
		stored.Exercise = nil
		m.targets[we.ID] = stored
		*we = m.target(stored)
	}
	return nil
}

func (m *Memory) targetHasSets(targetID string) bool {
	for _, s := range m.sets {
		if s.WorkoutExerciseID == targetID {
			return true
		}
	}
	return false
}

func (m *Memory) CreateTemplate(_ context.Context, t *models.WorkoutTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t.ID = uuid.NewString()
	t.CreatedAt = m.Now()
	t.UpdatedAt = t.CreatedAt
	if err := m.putTargets(t); err != nil {
		return fmt.Errorf("creating template: %w", err)
	}
	stored := *t
	stored.Exercises = nil
	m.templates[t.ID] = stored
	return nil
}

func (m *Memory) UpdateTemplate(_ context.Context, t *models.WorkoutTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.templates[t.ID]
	if !ok || cur.UserID != t.UserID {
		return ErrNotFound
	}
	if err := m.putTargets(t); err != nil {
		return fmt.Errorf("updating template: %w", err)
	}
	t.CreatedAt = cur.CreatedAt
	t.UpdatedAt = m.Now()
	stored := *t
	stored.Exercises = nil
	m.templates[t.ID] = stored
	return nil
}

func (m *Memory) DeleteTemplate(_ context.Context, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.templates[id]
	if !ok || t.UserID != userID {
		return ErrNotFound
	}
	for _, we := range m.targets {
		if we.TemplateID == id && m.targetHasSets(we.ID) {
			return fmt.Errorf("deleting template with logged sets: %w", ErrConflict)
		}
	}
	for weID, we := range m.targets {
		if we.TemplateID == id {
			delete(m.targets, weID)
		}
	}
	for sid, s := range m.sessions {
		if s.TemplateID != nil && *s.TemplateID == id {
			s.TemplateID = nil
			m.sessions[sid] = s
		}
	}
	delete(m.templates, id)
	return nil
}

// session returns s with its template joined. Caller holds mu.
func (m *Memory) session(s models.WorkoutSession) models.WorkoutSession {
	if s.TemplateID != nil {
		if t, ok := m.templates[*s.TemplateID]; ok {
			t = m.template(t)
			s.Template = &t
		}
	}
	return s
}

func (m *Memory) ListSessions(_ context.Context, userID string, limit int) ([]models.WorkoutSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []models.WorkoutSession{}
	for _, s := range m.sessions {
		if s.UserID == userID {
			out = append(out, m.session(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit = clampLimit(limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) GetSession(_ context.Context, id, userID string) (*models.WorkoutSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok || s.UserID != userID {
		return nil, ErrNotFound
	}
	s = m.session(s)
	return &s, nil
}

func (m *Memory) SessionExists(_ context.Context, userID, name string, startedAt time.Time) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, s := range m.sessions {
		if s.UserID == userID && s.Name == name && s.StartedAt.Equal(startedAt) {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) CreateSession(_ context.Context, s *models.WorkoutSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s.TemplateID != nil {
		t, ok := m.templates[*s.TemplateID]
		if !ok || t.UserID != s.UserID {
			return fmt.Errorf("template %s: %w", *s.TemplateID, ErrNotFound)
		}
		if s.Name == "" {
			s.Name = t.Name
		}
	}
	s.ID = uuid.NewString()
	if s.StartedAt.IsZero() {
		s.StartedAt = m.Now()
	}
	stored := *s
	stored.Template = nil
	m.sessions[s.ID] = stored
	*s = m.session(stored)
	return nil
}

func (m *Memory) CompleteSession(_ context.Context, id, userID string, at time.Time) (*models.WorkoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok || s.UserID != userID {
		return nil, ErrNotFound
	}
	if s.CompletedAt != nil {
		return nil, ErrSessionCompleted
	}
	s.CompletedAt = &at
	m.sessions[id] = s
	s = m.session(s)
	return &s, nil
}

func (m *Memory) DeleteSession(_ context.Context, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok || s.UserID != userID {
		return ErrNotFound
	}
	for setID, set := range m.sets {
		if set.SessionID == id {
			delete(m.sets, setID)
		}
	}
	delete(m.sessions, id)
	return nil
}

func (m *Memory) ListSessionSets(_ context.Context, sessionID string) ([]models.WorkoutSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []models.WorkoutSet{}
	for _, s := range m.sets {
		if s.SessionID == sessionID {
			out = append(out, m.set(s))
		}
	}
	sortSets(out)
	return out, nil
}

// set returns s with its workout exercise joined. Caller holds mu.
func (m *Memory) set(s models.WorkoutSet) models.WorkoutSet {
	if we, ok := m.targets[s.WorkoutExerciseID]; ok {
		we = m.target(we)
		s.WorkoutExercise = &we
	}
	return s
}

func sortSets(sets []models.WorkoutSet) {
	sort.SliceStable(sets, func(i, j int) bool {
		if !sets[i].CreatedAt.Equal(sets[j].CreatedAt) {
			return sets[i].CreatedAt.Before(sets[j].CreatedAt)
		}
		if sets[i].SetNumber != sets[j].SetNumber {
			return sets[i].SetNumber < sets[j].SetNumber
		}
		return sets[i].ID < sets[j].ID
	})
}

func (m *Memory) CreateSet(_ context.Context, set *models.WorkoutSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[set.SessionID]
	if !ok {
		return fmt.Errorf("session %s: %w", set.SessionID, ErrNotFound)
	}
	if sess.CompletedAt != nil {
		return ErrSessionCompleted
	}
	we, ok := m.targets[set.WorkoutExerciseID]
	if !ok {
		return fmt.Errorf("workout exercise %s: %w", set.WorkoutExerciseID, ErrNotFound)
	}
	if t := m.templates[we.TemplateID]; t.UserID != sess.UserID ||
		(sess.TemplateID != nil && *sess.TemplateID != we.TemplateID) {
		return fmt.Errorf("workout exercise %s: %w", set.WorkoutExerciseID, ErrNotFound)
	}
	for _, s := range m.sets {
		if s.SessionID == set.SessionID && s.WorkoutExerciseID == set.WorkoutExerciseID && s.SetNumber == set.SetNumber {
			return fmt.Errorf("set %d: %w", set.SetNumber, ErrConflict)
		}
	}

	set.ID = uuid.NewString()
	if set.CreatedAt.IsZero() {
		set.CreatedAt = m.Now()
	}
	stored := *set
	stored.WorkoutExercise = nil
	m.sets[set.ID] = stored
	*set = m.set(stored)
	return nil
}

func (m *Memory) ListExerciseSetsSince(_ context.Context, userID, exerciseID string, since time.Time) ([]models.WorkoutSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []models.WorkoutSet{}
	for _, s := range m.sets {
		we, ok := m.targets[s.WorkoutExerciseID]
		if !ok || we.ExerciseID != exerciseID || s.CreatedAt.Before(since) {
			continue
		}
		if sess, ok := m.sessions[s.SessionID]; !ok || sess.UserID != userID {
			continue
		}
		out = append(out, m.set(s))
	}
	sortSets(out)
	return out, nil
}
