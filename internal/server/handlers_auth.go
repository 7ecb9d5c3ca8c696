package server

import (
	"context"
	"net/http"
	"time"

	"github.com/claude/liftlog/internal/models"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const eventWriteTimeout = 5 * time.Second

type signUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signInResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	u, err := s.auth.SignUp(r.Context(), req.Email, req.Password, req.FullName)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	token, u, err := s.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, signInResponse{Token: token, User: u})
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.SignOut(r.Context(), bearerToken(r)); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAuthEvents streams the caller's sign-in and sign-out events as JSON
// websocket frames until either side goes away.
func (s *Server) handleAuthEvents(w http.ResponseWriter, r *http.Request) {
	broker := s.auth.Events()
	if broker == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "event stream unavailable"})
		return
	}
	u := userFromContext(r)

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		s.log.Warn("websocket accept failed", "user_id", u.ID, "error", err)
		return
	}
	defer conn.CloseNow()

	events, unsubscribe := broker.Subscribe(u.ID)
	defer unsubscribe()

	// Clients never send; CloseRead handles pings and notices the close.
	ctx := conn.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "server shutting down")
				return
			}
			wctx, cancel := context.WithTimeout(ctx, eventWriteTimeout)
			err := wsjson.Write(wctx, conn, e)
			cancel()
			if err != nil {
				s.log.Debug("websocket write failed", "user_id", u.ID, "error", err)
				return
			}
		}
	}
}
