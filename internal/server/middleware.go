package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/claude/liftlog/internal/config"
	"github.com/claude/liftlog/internal/metrics"
	"github.com/claude/liftlog/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis_rate/v9"
)

type ctxKey int

const userKey ctxKey = iota

var errUnidentified = errors.New("caller could not be identified")

// RequestLogging returns middleware that logs each request.
func RequestLogging(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			log.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"duration", time.Since(start).String(),
			)
		})
	}
}

// RequestMetrics counts requests by method and status and observes their
// duration by route pattern. A nil manager disables it.
func RequestMetrics(m *metrics.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			m.GaugeRequestsInFlight.Inc()
			defer m.GaugeRequestsInFlight.Dec()

			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)

			route := "unmatched"
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			m.CounterRequests.WithLabelValues(r.Method, strconv.Itoa(sw.status)).Inc()
			m.HistRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		})
	}
}

// Recoverer turns a handler panic into a 500 and counts it.
func Recoverer(log *slog.Logger, m *metrics.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				if m != nil {
					m.CounterPanics.Inc()
				}
				log.Error("handler panic", "method", r.Method, "path", r.URL.Path, "panic", fmt.Sprint(rec))
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// CORS adds permissive CORS headers for local development.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RateLimit allows perMin requests per minute per client address under key.
func RateLimit(limiter RateLimiter, key string, perMin int, m *metrics.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := limiter.Allow(r.Context(), key+":"+clientIP(r), redis_rate.PerMinute(perMin))
			if err != nil {
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "rate limit internal error"})
				return
			}
			if res.Allowed > 0 {
				next.ServeHTTP(w, r)
				return
			}
			if m != nil {
				m.CounterRateLimited.Inc()
			}
			retry := int(res.RetryAfter.Round(time.Second) / time.Second)
			w.Header().Set("Retry-After", strconv.Itoa(max(retry, 1)))
			writeJSON(w, http.StatusTooManyRequests, map[string]string{
				"error": fmt.Sprintf("retry after %.0f seconds", res.RetryAfter.Seconds()),
			})
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// identity resolves the calling user according to the auth mode and stores
// it in the request context.
func (s *Server) identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, err := s.resolveUser(r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), userKey, u)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) resolveUser(r *http.Request) (*models.User, error) {
	ctx := r.Context()
	switch s.mode {
	case config.AuthDev:
		return s.auth.EnsureUser(ctx, s.devEmail, "Local Dev User")
	case config.AuthTailscale:
		if s.tailscale == nil {
			return nil, errUnidentified
		}
		who, err := s.tailscale.WhoIs(ctx, r.RemoteAddr)
		if err != nil || who == nil || who.UserProfile == nil {
			s.log.Warn("tailscale whois failed", "remote_addr", r.RemoteAddr, "error", err)
			return nil, errUnidentified
		}
		return s.auth.EnsureUser(ctx, who.UserProfile.LoginName, who.UserProfile.DisplayName)
	default:
		return s.auth.CurrentUser(ctx, bearerToken(r))
	}
}

// bearerToken reads the Authorization header, falling back to the token
// query parameter for websocket clients that cannot set headers.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

// userFromContext returns the user stored by the identity middleware.
func userFromContext(r *http.Request) *models.User {
	u, _ := r.Context().Value(userKey).(*models.User)
	return u
}

// statusWriter wraps ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack lets websocket upgrades pass through the wrapper.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	w.status = http.StatusSwitchingProtocols
	return http.NewResponseController(w.ResponseWriter).Hijack()
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
