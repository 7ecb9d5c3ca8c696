package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/claude/liftlog/internal/auth"
	"github.com/claude/liftlog/internal/cache"
	"github.com/claude/liftlog/internal/config"
	"github.com/claude/liftlog/internal/ingest/alpha"
	"github.com/claude/liftlog/internal/logging"
	"github.com/claude/liftlog/internal/metrics"
	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"golang.org/x/crypto/bcrypt"
)

type testEnv struct {
	srv     *Server
	store   *storage.Memory
	auth    *auth.Service
	broker  *auth.Broker
	metrics *metrics.Manager
	reg     *prometheus.Registry
}

// newTestEnv builds a token-mode server over the memory store with a real
// auth service. mutate may adjust the dependencies before the server is built.
func newTestEnv(t *testing.T, mutate ...func(*Deps)) *testEnv {
	t.Helper()
	log := logging.Discard()
	st := storage.NewMemory()
	broker := auth.NewBroker()
	t.Cleanup(broker.Close)
	svc := auth.NewService(st, auth.NewMemorySessions(time.Hour), broker, bcrypt.MinCost, log)
	m, reg := metrics.NewTestManagerAndRegistry()

	d := Deps{
		Store:    st,
		Auth:     svc,
		Catalog:  cache.NewCatalog(st, 1, time.Minute, log),
		Alpha:    alpha.NewProvider(st, log, m),
		Metrics:  m,
		Gatherer: reg,
		AuthMode: config.AuthToken,
		DevEmail: "dev@liftlog.local",
		Log:      log,
	}
	for _, fn := range mutate {
		fn(&d)
	}
	return &testEnv{srv: New(d), store: st, auth: svc, broker: broker, metrics: m, reg: reg}
}

// do sends a request through the router. body may be nil, a string (sent
// verbatim) or any value (JSON encoded).
func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("encoding body: %v", err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

// login signs up and signs in a fresh user, returning the bearer token.
func (e *testEnv) login(t *testing.T, email string) (string, *models.User) {
	t.Helper()
	ctx := context.Background()
	if _, err := e.auth.SignUp(ctx, email, "correct horse", "Test User"); err != nil {
		t.Fatalf("sign up: %v", err)
	}
	token, u, err := e.auth.SignIn(ctx, email, "correct horse")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	return token, u
}

func (e *testEnv) exercise(t *testing.T, name string) *models.Exercise {
	t.Helper()
	ex := &models.Exercise{Name: name, Category: "strength"}
	if err := ex.Validate(); err != nil {
		t.Fatal(err)
	}
	if err := e.store.CreateExercise(context.Background(), ex); err != nil {
		t.Fatalf("creating exercise: %v", err)
	}
	return ex
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode error: %v (body %q)", err, rec.Body.String())
	}
	return v
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, want, rec.Body.String())
	}
}

func fptr(f float64) *float64 { return &f }

func testutilCount(t *testing.T, env *testEnv, reason string) float64 {
	t.Helper()
	return testutil.ToFloat64(env.metrics.CounterRecommendations.WithLabelValues(reason))
}
