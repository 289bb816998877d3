package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"lingo-quiz-service/internal/domain"
)

// ContentLoader fetches challenge sets from a backing store (files, Postgres).
type ContentLoader interface {
	LoadChallengeSet(ctx context.Context, t domain.ChallengeType) (domain.ChallengeSet, error)
}

// ContentRepository caches challenge sets with TTL to avoid repeated loads.
type ContentRepository struct {
	loader ContentLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.RWMutex
	rnd   *rand.Rand
	cache map[domain.ChallengeType]cachedSet
}

type cachedSet struct {
	set       domain.ChallengeSet
	expiresAt time.Time
}

func NewContentRepository(loader ContentLoader, ttl time.Duration) *ContentRepository {
	return &ContentRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[domain.ChallengeType]cachedSet),
	}
}

func (r *ContentRepository) GetChallengeSet(ctx context.Context, t domain.ChallengeType) (domain.ChallengeSet, error) {
	if set, ok := r.cached(t); ok {
		return set, nil
	}

	result, err, _ := r.sf.Do(string(t), func() (interface{}, error) {
		if set, ok := r.cached(t); ok {
			return set, nil
		}

		set, err := r.loader.LoadChallengeSet(ctx, t)
		if err != nil {
			return domain.ChallengeSet{}, err
		}

		r.mu.Lock()
		r.cache[t] = cachedSet{
			set:       set,
			expiresAt: r.clock().Add(r.ttlWithJitterLocked()),
		}
		r.mu.Unlock()
		return set, nil
	})
	if err != nil {
		return domain.ChallengeSet{}, err
	}
	return result.(domain.ChallengeSet), nil
}

// Invalidate drops every cached set so the next read reloads.
func (r *ContentRepository) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = make(map[domain.ChallengeType]cachedSet)
}

func (r *ContentRepository) cached(t domain.ChallengeType) (domain.ChallengeSet, bool) {
	now := r.clock()
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[t]
	if !ok || !entry.expiresAt.After(now) {
		return domain.ChallengeSet{}, false
	}
	return entry.set, true
}

func (r *ContentRepository) ttlWithJitterLocked() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
