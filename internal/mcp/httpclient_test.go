package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/claude/liftlog/internal/models"
)

// newTestServer creates an httptest server that routes requests to handler functions
// keyed by path. Verifies the HTTP client sends correct paths and query params.
func newTestServer(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := handlers[r.URL.Path]
		if !ok {
			t.Errorf("unexpected request path: %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
}

func writeTestJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Fatal(err)
	}
}

// TestBearerToken verifies every request carries the configured token.
func TestBearerToken(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/exercises": func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("Authorization"); got != "Bearer tok123" {
				t.Errorf("Authorization = %q, want Bearer tok123", got)
			}
			writeTestJSON(t, w, []models.Exercise{{ID: "e1", Name: "Bench Press"}})
		},
	})
	defer ts.Close()

	client := NewHTTPClient(ts.URL+"/", "tok123")
	exercises, err := client.ListExercises(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(exercises) != 1 || exercises[0].Name != "Bench Press" {
		t.Errorf("exercises = %+v", exercises)
	}
}

// TestNoTokenNoHeader verifies an empty token sends no Authorization header.
func TestNoTokenNoHeader(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/templates": func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("Authorization"); got != "" {
				t.Errorf("Authorization = %q, want empty", got)
			}
			writeTestJSON(t, w, []models.WorkoutTemplate{})
		},
	})
	defer ts.Close()

	if _, err := NewHTTPClient(ts.URL, "").ListTemplates(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// TestListSessionsParams verifies the limit query param.
func TestListSessionsParams(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/sessions": func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("limit"); got != "5" {
				t.Errorf("limit=%q, want 5", got)
			}
			writeTestJSON(t, w, []models.WorkoutSession{
				{ID: "s1", Name: "Push", StartedAt: time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)},
			})
		},
	})
	defer ts.Close()

	sessions, err := NewHTTPClient(ts.URL, "t").ListSessions(context.Background(), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sessions) != 1 || sessions[0].ID != "s1" {
		t.Errorf("sessions = %+v", sessions)
	}
}

// TestSessionAndSets verifies session and set paths.
func TestSessionAndSets(t *testing.T) {
	w := 100.0
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/sessions/s1": func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, models.WorkoutSession{ID: "s1", Name: "Push"})
		},
		"/api/v1/sessions/s1/sets": func(rw http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, rw, []models.WorkoutSet{{ID: "x", SessionID: "s1", SetNumber: 1, ActualReps: 10, ActualWeight: &w}})
		},
	})
	defer ts.Close()

	client := NewHTTPClient(ts.URL, "t")
	sess, err := client.GetSession(context.Background(), "s1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if sess.Name != "Push" {
		t.Errorf("name = %q, want Push", sess.Name)
	}
	sets, err := client.ListSessionSets(context.Background(), "s1")
	if err != nil {
		t.Fatalf("ListSessionSets: %v", err)
	}
	if len(sets) != 1 || *sets[0].ActualWeight != 100 {
		t.Errorf("sets = %+v", sets)
	}
}

// TestExerciseProgressParams verifies the days param and that only the
// points are returned.
func TestExerciseProgressParams(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/exercises/e1/progress": func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("days"); got != "14" {
				t.Errorf("days=%q, want 14", got)
			}
			writeTestJSON(t, w, map[string]any{
				"days":   14,
				"points": []models.ProgressPoint{{Date: "2026-01-01", AvgWeight: 100, AvgReps: 10, Sets: 3}},
			})
		},
	})
	defer ts.Close()

	points, err := NewHTTPClient(ts.URL, "t").ExerciseProgress(context.Background(), "e1", 14)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(points) != 1 || points[0].Sets != 3 {
		t.Errorf("points = %+v", points)
	}
}

// TestHTTPError verifies non-200 responses surface the status and body.
func TestHTTPError(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/sessions/missing": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		},
	})
	defer ts.Close()

	_, err := NewHTTPClient(ts.URL, "t").GetSession(context.Background(), "missing")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "404") || !strings.Contains(err.Error(), "not found") {
		t.Errorf("error = %v, want status and body", err)
	}
}
