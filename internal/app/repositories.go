package app

import (
	"context"
	"time"

	"lingo-quiz-service/internal/domain"
)

// UserRepository stores accounts.
type UserRepository interface {
	// CreateUser returns domain.ErrEmailTaken or domain.ErrUsernameTaken on conflicts.
	CreateUser(ctx context.Context, user domain.User) error
	GetUser(ctx context.Context, userID string) (domain.User, error)
	FindUserByEmail(ctx context.Context, email string) (domain.User, error)
}

// ProgressStore persists users, their aggregates and the attempt log (in-memory, SQLite, Postgres).
type ProgressStore interface {
	UserRepository
	// ApplyAttempt loads the attempt's user, runs mutate on it and persists the
	// updated user together with the attempt as one atomic unit. Concurrent
	// calls for the same user are serialized; other users are not blocked.
	ApplyAttempt(ctx context.Context, attempt domain.Attempt, mutate func(*domain.User)) (domain.User, error)
	// ListAttempts returns attempts newest first.
	ListAttempts(ctx context.Context, userID string, q domain.HistoryQuery) ([]domain.Attempt, error)
	// WeakAreas returns per-item aggregates ordered like RankWeakAreas.
	WeakAreas(ctx context.Context, userID string, q domain.WeakAreaQuery) ([]domain.WeakArea, error)
}

// SessionRepository maps opaque session tokens to user ids (in-memory, Redis).
type SessionRepository interface {
	Create(ctx context.Context, token, userID string, ttl time.Duration) error
	// Lookup returns domain.ErrUnauthenticated for unknown or expired tokens.
	Lookup(ctx context.Context, token string) (string, error)
	Delete(ctx context.Context, token string) error
}

// ContentRepository loads challenge sets (from cache/backing store).
type ContentRepository interface {
	GetChallengeSet(ctx context.Context, t domain.ChallengeType) (domain.ChallengeSet, error)
}

// AnswerKey resolves the canonical answers of a quiz item. A prompt may have
// more than one accepted answer; an unknown prompt yields none.
type AnswerKey interface {
	CanonicalAnswers(ctx context.Context, t domain.ChallengeType, prompt string) ([]string, error)
}
