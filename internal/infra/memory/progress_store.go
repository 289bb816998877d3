package memory

import (
	"context"
	"sort"
	"sync"

	"lingo-quiz-service/internal/app"
	"lingo-quiz-service/internal/domain"
)

// ProgressStore is an in-memory implementation of app.ProgressStore.
// Each user has its own lock, so submissions for different users never wait on each other.
type ProgressStore struct {
	mu        sync.RWMutex
	users     map[string]*userEntry
	emails    map[string]string
	usernames map[string]string
}

type userEntry struct {
	mu       sync.RWMutex
	user     domain.User
	attempts []domain.Attempt
}

func NewProgressStore() *ProgressStore {
	return &ProgressStore{
		users:     make(map[string]*userEntry),
		emails:    make(map[string]string),
		usernames: make(map[string]string),
	}
}

func (s *ProgressStore) CreateUser(_ context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.emails[user.Email]; ok {
		return domain.ErrEmailTaken
	}
	if _, ok := s.usernames[user.Username]; ok {
		return domain.ErrUsernameTaken
	}
	s.users[user.ID] = &userEntry{user: user.Clone()}
	s.emails[user.Email] = user.ID
	s.usernames[user.Username] = user.ID
	return nil
}

func (s *ProgressStore) GetUser(_ context.Context, userID string) (domain.User, error) {
	entry, ok := s.entry(userID)
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	entry.mu.RLock()
	defer entry.mu.RUnlock()
	return entry.user.Clone(), nil
}

func (s *ProgressStore) FindUserByEmail(ctx context.Context, email string) (domain.User, error) {
	s.mu.RLock()
	userID, ok := s.emails[email]
	s.mu.RUnlock()
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return s.GetUser(ctx, userID)
}

func (s *ProgressStore) ApplyAttempt(ctx context.Context, attempt domain.Attempt, mutate func(*domain.User)) (domain.User, error) {
	if err := ctx.Err(); err != nil {
		return domain.User{}, err
	}
	entry, ok := s.entry(attempt.UserID)
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	// Mutate a copy and swap it in, so readers never observe a half-applied update.
	updated := entry.user.Clone()
	mutate(&updated)
	entry.user = updated
	entry.attempts = append(entry.attempts, attempt)
	return updated.Clone(), nil
}

func (s *ProgressStore) ListAttempts(_ context.Context, userID string, q domain.HistoryQuery) ([]domain.Attempt, error) {
	attempts, ok := s.attemptsOf(userID)
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	// Reverse first so attempts sharing a timestamp stay newest first.
	for i, j := 0, len(attempts)-1; i < j; i, j = i+1, j-1 {
		attempts[i], attempts[j] = attempts[j], attempts[i]
	}
	sort.SliceStable(attempts, func(i, j int) bool {
		return attempts[i].AttemptedAt.After(attempts[j].AttemptedAt)
	})

	out := make([]domain.Attempt, 0, len(attempts))
	for _, a := range attempts {
		if q.Type != "" && a.ChallengeType != q.Type {
			continue
		}
		out = append(out, a)
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

func (s *ProgressStore) WeakAreas(_ context.Context, userID string, q domain.WeakAreaQuery) ([]domain.WeakArea, error) {
	attempts, ok := s.attemptsOf(userID)
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return app.RankWeakAreas(attempts, q), nil
}

func (s *ProgressStore) entry(userID string) (*userEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.users[userID]
	return entry, ok
}

// attemptsOf copies the attempt log, newest last.
func (s *ProgressStore) attemptsOf(userID string) ([]domain.Attempt, bool) {
	entry, ok := s.entry(userID)
	if !ok {
		return nil, false
	}
	entry.mu.RLock()
	defer entry.mu.RUnlock()
	return append([]domain.Attempt(nil), entry.attempts...), true
}
