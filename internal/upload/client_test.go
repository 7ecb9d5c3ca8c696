package upload

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/claude/liftlog/internal/ingest"
)

func newTestClient(url string) *Client {
	c := NewClient(url+"/", "tok")
	c.Backoff = func(int) time.Duration { return time.Millisecond }
	return c
}

// TestSendAlphaCSV verifies the request shape and result decoding.
func TestSendAlphaCSV(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/import/alpha" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != "csv" {
			t.Errorf("body = %q, want csv", body)
		}
		_ = json.NewEncoder(w).Encode(ingest.Result{SessionsImported: 2, SetsImported: 20})
	}))
	defer ts.Close()

	res, err := newTestClient(ts.URL).SendAlphaCSV(context.Background(), []byte("csv"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.SessionsImported != 2 || res.SetsImported != 20 {
		t.Errorf("result = %+v", res)
	}
}

// TestSendRetriesServerErrors verifies 5xx responses are retried.
func TestSendRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(ingest.Result{SessionsImported: 1})
	}))
	defer ts.Close()

	res, err := newTestClient(ts.URL).SendAlphaCSV(context.Background(), []byte("csv"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.SessionsImported != 1 || calls.Load() != 3 {
		t.Errorf("result = %+v after %d calls", res, calls.Load())
	}
}

// TestSendGivesUp verifies the error after the last attempt.
func TestSendGivesUp(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer ts.Close()

	_, err := newTestClient(ts.URL).SendAlphaCSV(context.Background(), []byte("csv"))
	if err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != maxAttempts {
		t.Errorf("calls = %d, want %d", calls.Load(), maxAttempts)
	}
}

// TestSendNoRetryOnClientError verifies 4xx responses fail at once.
func TestSendNoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":"line 2: set data without exercise"}`, http.StatusBadRequest)
	}))
	defer ts.Close()

	_, err := newTestClient(ts.URL).SendAlphaCSV(context.Background(), []byte("csv"))
	if err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

// TestSendPartial verifies a 207 yields both the result and ErrPartial.
func TestSendPartial(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusMultiStatus)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"result": ingest.Result{SessionsImported: 1},
			"error":  "session Legs: boom",
		})
	}))
	defer ts.Close()

	res, err := newTestClient(ts.URL).SendAlphaCSV(context.Background(), []byte("csv"))
	if !errors.Is(err, ErrPartial) {
		t.Fatalf("err = %v, want ErrPartial", err)
	}
	if res == nil || res.SessionsImported != 1 {
		t.Errorf("result = %+v", res)
	}
}
