package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/storage"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrWeakPassword       = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

const tokenBytes = 32

// UserStore is the subset of storage.Store the auth service needs.
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// Service signs users up, in and out, and resolves bearer tokens.
type Service struct {
	users      UserStore
	sessions   SessionStore
	events     *Broker
	bcryptCost int
	log        *slog.Logger

	// ability to inject the token generator (for tests)
	RandStringFunc func() (string, error)
	Now            func() time.Time
}

// NewService wires an auth service. events may be nil.
func NewService(users UserStore, sessions SessionStore, events *Broker, bcryptCost int, log *slog.Logger) *Service {
	return &Service{
		users:          users,
		sessions:       sessions,
		events:         events,
		bcryptCost:     bcryptCost,
		log:            log,
		RandStringFunc: randomToken,
		Now:            time.Now,
	}
}

func randomToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// SignUp registers a new user with a password.
func (s *Service) SignUp(ctx context.Context, email, password, fullName string) (*models.User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if len(password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}

	hash, err := HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	u := &models.User{Email: email, FullName: strings.TrimSpace(fullName), PasswordHash: hash}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}
	s.log.Info("user signed up", "user_id", u.ID)
	return u, nil
}

// SignIn checks credentials and opens a session, returning its token.
func (s *Service) SignIn(ctx context.Context, email, password string) (string, *models.User, error) {
	u, err := s.users.GetUserByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, fmt.Errorf("looking up user: %w", err)
	}
	if !CheckPassword(u.PasswordHash, password) {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.RandStringFunc()
	if err != nil {
		return "", nil, err
	}
	if err := s.sessions.Create(ctx, token, u.ID); err != nil {
		return "", nil, err
	}
	s.publish(EventSignedIn, u.ID)
	return token, u, nil
}

// SignOut revokes token. Unknown tokens report ErrInvalidToken.
func (s *Service) SignOut(ctx context.Context, token string) error {
	userID, err := s.sessions.Delete(ctx, token)
	if errors.Is(err, ErrSessionNotFound) {
		return ErrInvalidToken
	}
	if err != nil {
		return err
	}
	s.publish(EventSignedOut, userID)
	return nil
}

// CurrentUser resolves a bearer token to its user.
func (s *Service) CurrentUser(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	userID, err := s.sessions.Lookup(ctx, token)
	if errors.Is(err, ErrSessionNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	u, err := s.users.GetUser(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("loading user: %w", err)
	}
	return u, nil
}

// EnsureUser returns the user with email, creating a password-less account
// on first sight. Used for identities vouched for by the network (tailscale)
// or by configuration (dev mode).
func (s *Service) EnsureUser(ctx context.Context, email, fullName string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.users.GetUserByEmail(ctx, email)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	u = &models.User{Email: email, FullName: fullName}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			// lost a race with a concurrent first request
			return s.users.GetUserByEmail(ctx, email)
		}
		return nil, fmt.Errorf("provisioning user: %w", err)
	}
	s.log.Info("user provisioned", "user_id", u.ID, "email", email)
	return u, nil
}

// Events returns the broker that receives sign-in and sign-out events.
func (s *Service) Events() *Broker {
	return s.events
}

func (s *Service) publish(t EventType, userID string) {
	if s.events == nil {
		return
	}
	s.events.Publish(Event{Type: t, UserID: userID, At: s.Now().UTC()})
}
