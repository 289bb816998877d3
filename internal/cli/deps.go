package cli

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"lingo-quiz-service/internal/app"
	"lingo-quiz-service/internal/config"
	"lingo-quiz-service/internal/content"
	"lingo-quiz-service/internal/infra/memory"
	pgstore "lingo-quiz-service/internal/infra/postgres"
	redisstore "lingo-quiz-service/internal/infra/redis"
	"lingo-quiz-service/internal/infra/sqlite"
)

// deps holds the wired services and the resources they depend on.
type deps struct {
	cfg      config.Config
	pool     *pgxpool.Pool
	redis    *redis.Client
	store    app.ProgressStore
	sessions app.SessionRepository

	// memSessions is set when sessions live in process and need sweeping.
	memSessions *memory.SessionStore
	feed        *app.ProgressFeed
	content     *app.ContentService
	auth        *app.AuthService
	progress    *app.ProgressService
	closers     []func()
}

func (d *deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

func buildDeps(ctx context.Context, cfg config.Config) (*deps, error) {
	d := &deps{cfg: cfg, feed: app.NewProgressFeed()}
	if err := d.connect(ctx); err != nil {
		d.Close()
		return nil, err
	}
	if err := d.openStore(); err != nil {
		d.Close()
		return nil, err
	}

	if d.redis != nil {
		d.sessions = redisstore.NewSessionStore(d.redis)
	} else {
		d.memSessions = memory.NewSessionStore()
		d.sessions = d.memSessions
	}

	contentTTL := config.TTLDuration(cfg.Content.TTL, 10*time.Minute)
	loader := d.contentLoader()
	var contentRepo app.ContentRepository
	if d.redis != nil {
		contentRepo = redisstore.NewContentRepository(d.redis, loader, contentTTL)
	} else {
		contentRepo = memory.NewContentRepository(loader, contentTTL)
	}
	d.content = app.NewContentService(contentRepo)

	loc, err := cfg.Location()
	if err != nil {
		d.Close()
		return nil, err
	}
	d.auth = app.NewAuthService(d.store, d.sessions, config.TTLDuration(cfg.Auth.SessionTTL, app.DefaultSessionTTL))
	d.progress = app.NewProgressService(d.store, d.content, d.feed, app.ProgressOptions{
		Location:               loc,
		TrustClientCorrectness: cfg.Progress.TrustClientCorrectness,
	})
	return d, nil
}

func (d *deps) connect(ctx context.Context) error {
	if d.cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, d.cfg.Postgres.URL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		d.pool = pool
		d.closers = append(d.closers, pool.Close)
	}
	if d.cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     d.cfg.Redis.Addr,
			Password: d.cfg.Redis.Password,
			DB:       d.cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return fmt.Errorf("connect redis: %w", err)
		}
		d.redis = client
		d.closers = append(d.closers, func() { _ = client.Close() })
	}
	return nil
}

func (d *deps) openStore() error {
	switch d.cfg.Storage.Driver {
	case config.DriverPostgres:
		d.store = pgstore.NewProgressStore(d.pool)
	case config.DriverSQLite:
		store, err := sqlite.Open(d.cfg.SQLite.Path)
		if err != nil {
			return err
		}
		d.store = store
		d.closers = append(d.closers, func() { _ = store.Close() })
	default:
		log.Printf("using in-memory progress store; data is lost on restart")
		d.store = memory.NewProgressStore()
	}
	return nil
}

func (d *deps) contentLoader() memory.ContentLoader {
	switch {
	case d.cfg.Content.Source == "postgres" && d.pool != nil:
		return pgstore.NewContentLoader(d.pool)
	case d.cfg.Content.Dir != "":
		return content.NewDirLoader(d.cfg.Content.Dir)
	default:
		return content.NewEmbeddedLoader()
	}
}
