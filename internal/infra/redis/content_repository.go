package redis

import (
	"context"
	"encoding/json"
	"log"
	"math/rand"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
	"lingo-quiz-service/internal/domain"
)

// ContentLoader fetches challenge sets from a backing store (files, Postgres).
type ContentLoader interface {
	LoadChallengeSet(ctx context.Context, t domain.ChallengeType) (domain.ChallengeSet, error)
}

// ContentRepository caches challenge sets in Redis (hash per type) and falls back to a loader on cache miss.
// Items are stored as: HSET challenge:{type}:items {index} {json item}
type ContentRepository struct {
	client *redis.Client
	loader ContentLoader
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewContentRepository(client *redis.Client, loader ContentLoader, ttl time.Duration) *ContentRepository {
	return &ContentRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *ContentRepository) GetChallengeSet(ctx context.Context, t domain.ChallengeType) (domain.ChallengeSet, error) {
	if set, ok := r.fromCache(ctx, t); ok {
		return set, nil
	}

	result, err, _ := r.sf.Do(string(t), func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if set, ok := r.fromCache(ctx, t); ok {
			return set, nil
		}

		set, err := r.loader.LoadChallengeSet(ctx, t)
		if err != nil {
			return domain.ChallengeSet{}, err
		}
		r.store(ctx, set)
		return set, nil
	})
	if err != nil {
		return domain.ChallengeSet{}, err
	}
	return result.(domain.ChallengeSet), nil
}

// Invalidate removes the cached set for t, e.g. after an import.
func (r *ContentRepository) Invalidate(ctx context.Context, t domain.ChallengeType) error {
	return r.client.Del(ctx, r.itemsKey(t)).Err()
}

func (r *ContentRepository) fromCache(ctx context.Context, t domain.ChallengeType) (domain.ChallengeSet, bool) {
	fields, err := r.client.HGetAll(ctx, r.itemsKey(t)).Result()
	if err != nil || len(fields) == 0 {
		return domain.ChallengeSet{}, false
	}
	set, err := buildSetFromCache(t, fields)
	if err != nil {
		log.Printf("discarding corrupt %s cache: %v", t, err)
		return domain.ChallengeSet{}, false
	}
	return set, true
}

func (r *ContentRepository) store(ctx context.Context, set domain.ChallengeSet) {
	if len(set.Items) == 0 {
		return
	}
	key := r.itemsKey(set.Type)
	pipe := r.client.Pipeline()
	pipe.Del(ctx, key)
	for i, item := range set.Items {
		data, err := json.Marshal(item)
		if err != nil {
			return
		}
		pipe.HSet(ctx, key, strconv.Itoa(i), data)
	}
	if ttl := r.ttlWithJitter(); ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		// best-effort; the loaded set is still served
		log.Printf("cache %s content: %v", set.Type, err)
	}
}

func (r *ContentRepository) itemsKey(t domain.ChallengeType) string {
	return "challenge:" + string(t) + ":items"
}

func buildSetFromCache(t domain.ChallengeType, fields map[string]string) (domain.ChallengeSet, error) {
	type indexed struct {
		pos  int
		item domain.ChallengeItem
	}
	entries := make([]indexed, 0, len(fields))
	for field, raw := range fields {
		pos, err := strconv.Atoi(field)
		if err != nil {
			return domain.ChallengeSet{}, err
		}
		var item domain.ChallengeItem
		if err := json.Unmarshal([]byte(raw), &item); err != nil {
			return domain.ChallengeSet{}, err
		}
		entries = append(entries, indexed{pos: pos, item: item})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].pos < entries[j].pos })

	items := make([]domain.ChallengeItem, len(entries))
	for i, e := range entries {
		items[i] = e.item
	}
	return domain.ChallengeSet{Type: t, Items: items}, nil
}

func (r *ContentRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
