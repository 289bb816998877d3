package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"lingo-quiz-service/internal/domain"
)

// SessionStore keeps login sessions in Redis so every instance behind a
// load balancer accepts the same tokens. Expiry is delegated to key TTLs.
type SessionStore struct {
	client *redis.Client
}

func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client}
}

func (s *SessionStore) Create(ctx context.Context, token, userID string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.key(token), userID, ttl).Err(); err != nil {
		return domain.Persistence("create session", err)
	}
	return nil
}

func (s *SessionStore) Lookup(ctx context.Context, token string) (string, error) {
	userID, err := s.client.Get(ctx, s.key(token)).Result()
	if errors.Is(err, redis.Nil) {
		return "", domain.ErrUnauthenticated
	}
	if err != nil {
		return "", domain.Persistence("lookup session", err)
	}
	return userID, nil
}

func (s *SessionStore) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, s.key(token)).Err(); err != nil {
		return domain.Persistence("delete session", err)
	}
	return nil
}

func (s *SessionStore) key(token string) string {
	return "sid:" + token
}
