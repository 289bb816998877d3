package app

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"lingo-quiz-service/internal/auth"
	"lingo-quiz-service/internal/domain"
)

// DefaultSessionTTL is how long a login stays valid when no TTL is configured.
const DefaultSessionTTL = 24 * time.Hour

// AuthService registers accounts and maps session tokens to users.
type AuthService struct {
	users    UserRepository
	sessions SessionRepository
	ttl      time.Duration
	now      func() time.Time
}

func NewAuthService(users UserRepository, sessions SessionRepository, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &AuthService{users: users, sessions: sessions, ttl: ttl, now: time.Now}
}

// SessionTTL is the lifetime of sessions issued by this service.
func (s *AuthService) SessionTTL() time.Duration {
	return s.ttl
}

// Register creates an account with empty progress and opens a session for it.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (domain.User, string, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))

	if username == "" {
		return domain.User{}, "", domain.Invalid("username", "is required")
	}
	if email == "" {
		return domain.User{}, "", domain.Invalid("email", "is required")
	}
	if password == "" {
		return domain.User{}, "", domain.Invalid("password", "is required")
	}
	if n := utf8.RuneCountInString(username); n < 3 || n > 30 {
		return domain.User{}, "", domain.Invalid("username", "must be 3-30 characters")
	}
	if !strings.Contains(email, "@") {
		return domain.User{}, "", domain.Invalid("email", "is not a valid address")
	}
	if len(password) < auth.MinPasswordLength {
		return domain.User{}, "", domain.Invalid("password", "must be at least 6 characters long")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, "", err
	}
	user := domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
		Level:        LevelFor(0),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return domain.User{}, "", err
	}

	token, err := s.openSession(ctx, user.ID)
	if err != nil {
		return domain.User{}, "", err
	}
	return user, token, nil
}

// Login checks credentials and opens a session.
func (s *AuthService) Login(ctx context.Context, email, password string) (domain.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return domain.User{}, "", domain.Invalid("email", "email and password are required")
	}

	user, err := s.users.FindUserByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		return domain.User{}, "", domain.ErrInvalidCredentials
	}
	if err != nil {
		return domain.User{}, "", err
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return domain.User{}, "", domain.ErrInvalidCredentials
	}

	token, err := s.openSession(ctx, user.ID)
	if err != nil {
		return domain.User{}, "", err
	}
	return user, token, nil
}

// Logout ends a session. Unknown tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessions.Delete(ctx, token)
}

// Authenticate resolves a session token to a user id.
func (s *AuthService) Authenticate(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", domain.ErrUnauthenticated
	}
	return s.sessions.Lookup(ctx, token)
}

// CurrentUser resolves a session token to the full account.
func (s *AuthService) CurrentUser(ctx context.Context, token string) (domain.User, error) {
	userID, err := s.Authenticate(ctx, token)
	if err != nil {
		return domain.User{}, err
	}
	return s.users.GetUser(ctx, userID)
}

func (s *AuthService) openSession(ctx context.Context, userID string) (string, error) {
	token, err := auth.NewToken()
	if err != nil {
		return "", err
	}
	if err := s.sessions.Create(ctx, token, userID, s.ttl); err != nil {
		return "", err
	}
	return token, nil
}
