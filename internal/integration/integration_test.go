package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	"lingo-quiz-service/internal/app"
	"lingo-quiz-service/internal/domain"
	pgstore "lingo-quiz-service/internal/infra/postgres"
	pgmigrations "lingo-quiz-service/internal/infra/postgres/migrations"
	redisstore "lingo-quiz-service/internal/infra/redis"
)

type stack struct {
	pool    *pgxpool.Pool
	redis   *goredis.Client
	auth    *app.AuthService
	content *app.ContentService
	service *app.ProgressService
}

func TestProgressEndToEnd(t *testing.T) {
	ctx := context.Background()
	s := newStack(t, ctx)

	user, token, err := s.auth.Register(ctx, "ana", "Ana@Example.com", "secret1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	userID, err := s.auth.Authenticate(ctx, token)
	if err != nil || userID != user.ID {
		t.Fatalf("authenticate: id=%q err=%v", userID, err)
	}
	if _, _, err := s.auth.Register(ctx, "bia", "ana@example.com", "secret1"); !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected email taken, got %v", err)
	}
	if _, _, err := s.auth.Register(ctx, "ana", "other@example.com", "secret1"); !errors.Is(err, domain.ErrUsernameTaken) {
		t.Fatalf("expected username taken, got %v", err)
	}

	item, err := s.content.Random(ctx, domain.ChallengeWord)
	if err != nil {
		t.Fatalf("random: %v", err)
	}
	if item.Prompt == "" || item.Answer == "" {
		t.Fatalf("unexpected item %+v", item)
	}

	// The client claims every answer is right; the server grades against challenge_items.
	for _, sub := range []domain.AttemptSubmission{
		submission("maison", "casa"),
		submission("eau", "agua"),
		submission("lait", "vinho"),
	} {
		if _, err := s.service.RecordAttempt(ctx, user.ID, sub); err != nil {
			t.Fatalf("submit %s: %v", sub.ChallengeID, err)
		}
	}

	report, err := s.service.GetProgress(ctx, user.ID)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	w := report.Word
	if w.TotalAttempts != 3 || w.CorrectAnswers != 2 || w.Accuracy != 67 || w.Streak != 0 || w.CompletedChallenges != 2 {
		t.Fatalf("unexpected word stats %+v", w)
	}
	if report.TotalScore != 20 || report.Level != 1 {
		t.Fatalf("expected score 20 level 1, got %d/%d", report.TotalScore, report.Level)
	}

	history, err := s.service.GetHistory(ctx, user.ID, domain.HistoryQuery{Type: domain.ChallengeWord})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 3 || history[0].ChallengeID != "lait" || history[0].Correct {
		t.Fatalf("unexpected history %+v", history)
	}

	if err := s.auth.Logout(ctx, token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := s.auth.Authenticate(ctx, token); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated after logout, got %v", err)
	}
}

func TestConcurrentSubmissionsEndToEnd(t *testing.T) {
	ctx := context.Background()
	s := newStack(t, ctx)

	user, _, err := s.auth.Register(ctx, "carla", "carla@example.com", "secret1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	const n = 25
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			answer := "casa"
			if i%5 == 0 {
				answer = "porta"
			}
			if _, err := s.service.RecordAttempt(ctx, user.ID, submission("maison", answer)); err != nil {
				t.Errorf("submit: %v", err)
			}
		}(i)
	}
	wg.Wait()

	report, err := s.service.GetProgress(ctx, user.ID)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if report.Word.TotalAttempts != n || report.Word.CorrectAnswers != 20 || report.TotalScore != 20*app.PointsPerCorrect {
		t.Fatalf("lost updates: %+v score=%d", report.Word, report.TotalScore)
	}
	if report.Word.CompletedChallenges != 1 {
		t.Fatalf("expected one completed item, got %d", report.Word.CompletedChallenges)
	}

	weak, err := s.service.GetWeakAreas(ctx, user.ID)
	if err != nil {
		t.Fatalf("weak areas: %v", err)
	}
	if len(weak) != 1 || weak[0].TotalAttempts != n || weak[0].CorrectAttempts != 20 {
		t.Fatalf("unexpected weak areas %+v", weak)
	}
}

func TestContentImportInvalidatesCache(t *testing.T) {
	ctx := context.Background()
	s := newStack(t, ctx)

	loader := pgstore.NewContentLoader(s.pool)
	cache := redisstore.NewContentRepository(s.redis, loader, time.Minute)
	if _, err := cache.GetChallengeSet(ctx, domain.ChallengeIdiom); err != nil {
		t.Fatalf("warm cache: %v", err)
	}

	replacement := domain.ChallengeSet{Type: domain.ChallengeIdiom, Items: []domain.ChallengeItem{
		{Prompt: "coûter les yeux de la tête", Answer: "custar os olhos da cara"},
	}}
	if _, err := loader.ReplaceChallengeSet(ctx, replacement); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if err := cache.Invalidate(ctx, domain.ChallengeIdiom); err != nil {
		t.Fatalf("invalidate: %v", err)
	}

	set, err := cache.GetChallengeSet(ctx, domain.ChallengeIdiom)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(set.Items) != 1 || set.Items[0].Answer != "custar os olhos da cara" {
		t.Fatalf("expected the imported set, got %+v", set.Items)
	}
}

func newStack(t *testing.T, ctx context.Context) *stack {
	t.Helper()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	t.Cleanup(pgCleanup)
	redisURL, redisCleanup := startRedis(t, ctx)
	t.Cleanup(redisCleanup)

	runMigrations(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	t.Cleanup(pool.Close)

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	t.Cleanup(func() { _ = redisClient.Close() })

	loader := pgstore.NewContentLoader(pool)
	for _, set := range sampleContent() {
		if _, err := loader.ReplaceChallengeSet(ctx, set); err != nil {
			t.Fatalf("seed %s: %v", set.Type, err)
		}
	}

	store := pgstore.NewProgressStore(pool)
	content := app.NewContentService(redisstore.NewContentRepository(redisClient, loader, 5*time.Minute))
	return &stack{
		pool:    pool,
		redis:   redisClient,
		auth:    app.NewAuthService(store, redisstore.NewSessionStore(redisClient), time.Hour),
		content: content,
		service: app.NewProgressService(store, content, app.NewProgressFeed(), app.ProgressOptions{}),
	}
}

func submission(id, answer string) domain.AttemptSubmission {
	claimed := true
	return domain.AttemptSubmission{
		ChallengeID:   id,
		ChallengeType: string(domain.ChallengeWord),
		Correct:       &claimed,
		UserAnswer:    answer,
		CorrectAnswer: answer,
	}
}

func sampleContent() []domain.ChallengeSet {
	return []domain.ChallengeSet{
		{Type: domain.ChallengeWord, Items: []domain.ChallengeItem{
			{Prompt: "maison", Answer: "casa"},
			{Prompt: "eau", Answer: "água"},
			{Prompt: "lait", Answer: "leite"},
		}},
		{Type: domain.ChallengeIdiom, Items: []domain.ChallengeItem{
			{Prompt: "avoir le cafard", Answer: "estar na fossa"},
		}},
		{Type: domain.ChallengeVerb, Items: []domain.ChallengeItem{
			{Prompt: "parler", Answer: "falar", Present: []string{"falo", "falas", "fala", "falamos", "falais", "falam"}},
		}},
	}
}

func runMigrations(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "lingo", "POSTGRES_PASSWORD": "lingopass", "POSTGRES_DB": "lingo"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://lingo:lingopass@%s:%s/lingo?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(opts), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
