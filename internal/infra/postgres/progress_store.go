package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"lingo-quiz-service/internal/domain"
)

const uniqueViolation = "23505"

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

// ProgressStore persists users, per-type aggregates and attempts in Postgres.
// ApplyAttempt locks the user row, so submissions for one user are serialized
// while other users proceed in parallel.
type ProgressStore struct {
	pool *pgxpool.Pool
}

func NewProgressStore(pool *pgxpool.Pool) *ProgressStore {
	return &ProgressStore{pool: pool}
}

func (s *ProgressStore) CreateUser(ctx context.Context, user domain.User) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Persistence("begin create user", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO users (id, username, email, password_hash, created_at, total_score, level)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		user.ID, user.Username, user.Email, user.PasswordHash, user.CreatedAt, user.TotalScore, user.Level)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			if pgErr.ConstraintName == "users_username_key" {
				return domain.ErrUsernameTaken
			}
			return domain.ErrEmailTaken
		}
		return domain.Persistence("insert user", err)
	}
	if err := saveProgress(ctx, tx, user); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Persistence("commit create user", err)
	}
	return nil
}

func (s *ProgressStore) GetUser(ctx context.Context, userID string) (domain.User, error) {
	return loadUser(ctx, s.pool, `WHERE id = $1`, userID)
}

func (s *ProgressStore) FindUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return loadUser(ctx, s.pool, `WHERE email = $1`, email)
}

func (s *ProgressStore) ApplyAttempt(ctx context.Context, attempt domain.Attempt, mutate func(*domain.User)) (domain.User, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return domain.User{}, domain.Persistence("begin apply attempt", err)
	}
	defer tx.Rollback(ctx)

	user, err := loadUser(ctx, tx, `WHERE id = $1 FOR UPDATE`, attempt.UserID)
	if err != nil {
		return domain.User{}, err
	}
	mutate(&user)

	if _, err := tx.Exec(ctx,
		`UPDATE users SET total_score = $2, level = $3 WHERE id = $1`,
		user.ID, user.TotalScore, user.Level); err != nil {
		return domain.User{}, domain.Persistence("update user", err)
	}
	if err := saveProgress(ctx, tx, user); err != nil {
		return domain.User{}, err
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO challenge_attempts
		   (id, user_id, challenge_id, challenge_type, correct, user_answer, correct_answer, time_spent_ms, attempted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		attempt.ID, attempt.UserID, attempt.ChallengeID, string(attempt.ChallengeType), attempt.Correct,
		attempt.UserAnswer, attempt.CorrectAnswer, attempt.TimeSpent, attempt.AttemptedAt); err != nil {
		return domain.User{}, domain.Persistence("insert attempt", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.User{}, domain.Persistence("commit apply attempt", err)
	}
	return user, nil
}

func (s *ProgressStore) ListAttempts(ctx context.Context, userID string, q domain.HistoryQuery) ([]domain.Attempt, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, challenge_id, challenge_type, correct, user_answer, correct_answer, time_spent_ms, attempted_at
		 FROM challenge_attempts
		 WHERE user_id = $1 AND ($2::text = '' OR challenge_type = $2::text)
		 ORDER BY attempted_at DESC, id DESC
		 LIMIT $3`,
		userID, string(q.Type), q.Limit)
	if err != nil {
		return nil, domain.Persistence("list attempts", err)
	}
	defer rows.Close()

	var attempts []domain.Attempt
	for rows.Next() {
		var (
			a   domain.Attempt
			typ string
		)
		if err := rows.Scan(&a.ID, &a.UserID, &a.ChallengeID, &typ, &a.Correct,
			&a.UserAnswer, &a.CorrectAnswer, &a.TimeSpent, &a.AttemptedAt); err != nil {
			return nil, domain.Persistence("scan attempt", err)
		}
		a.ChallengeType = domain.ChallengeType(typ)
		a.AttemptedAt = a.AttemptedAt.UTC()
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Persistence("list attempts", err)
	}
	return attempts, nil
}

func (s *ProgressStore) WeakAreas(ctx context.Context, userID string, q domain.WeakAreaQuery) ([]domain.WeakArea, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT challenge_id, challenge_type, COUNT(*) AS total,
		        COUNT(*) FILTER (WHERE correct) AS correct_count,
		        MAX(attempted_at) AS last_attempt
		 FROM challenge_attempts
		 WHERE user_id = $1
		 GROUP BY challenge_id, challenge_type
		 HAVING COUNT(*) >= $2
		 ORDER BY (COUNT(*) FILTER (WHERE correct))::float8 / COUNT(*) ASC,
		          COUNT(*) DESC, challenge_id COLLATE "C", challenge_type
		 LIMIT $3`,
		userID, q.MinAttempts, q.Limit)
	if err != nil {
		return nil, domain.Persistence("weak areas", err)
	}
	defer rows.Close()

	var areas []domain.WeakArea
	for rows.Next() {
		var (
			w            domain.WeakArea
			typ          string
			total, right int64
		)
		if err := rows.Scan(&w.ChallengeID, &typ, &total, &right, &w.LastAttempt); err != nil {
			return nil, domain.Persistence("scan weak area", err)
		}
		w.ChallengeType = domain.ChallengeType(typ)
		w.TotalAttempts = int(total)
		w.CorrectAttempts = int(right)
		w.SuccessRate = float64(right) / float64(total) * 100
		w.LastAttempt = w.LastAttempt.UTC()
		areas = append(areas, w)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Persistence("weak areas", err)
	}
	return areas, nil
}

func loadUser(ctx context.Context, q querier, where string, arg interface{}) (domain.User, error) {
	var u domain.User
	err := q.QueryRow(ctx,
		`SELECT id, username, email, password_hash, created_at, total_score, level FROM users `+where, arg).
		Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.TotalScore, &u.Level)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, domain.Persistence("load user", err)
	}
	u.CreatedAt = u.CreatedAt.UTC()

	rows, err := q.Query(ctx,
		`SELECT challenge_type, total_attempts, correct_answers, streak, last_attempt_date, completed_challenges
		 FROM challenge_progress WHERE user_id = $1`, u.ID)
	if err != nil {
		return domain.User{}, domain.Persistence("load progress", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			typ  string
			p    domain.ChallengeProgress
			last *time.Time
		)
		if err := rows.Scan(&typ, &p.TotalAttempts, &p.CorrectAnswers, &p.Streak, &last, &p.CompletedChallenges); err != nil {
			return domain.User{}, domain.Persistence("scan progress", err)
		}
		if last != nil {
			utc := last.UTC()
			p.LastAttemptDate = &utc
		}
		if target := u.Progress.For(domain.ChallengeType(typ)); target != nil {
			*target = p
		}
	}
	if err := rows.Err(); err != nil {
		return domain.User{}, domain.Persistence("load progress", err)
	}
	return u, nil
}

func saveProgress(ctx context.Context, tx pgx.Tx, u domain.User) error {
	batch := &pgx.Batch{}
	for _, t := range domain.ChallengeTypes {
		p := u.Progress.For(t)
		completed := p.CompletedChallenges
		if completed == nil {
			completed = []string{}
		}
		batch.Queue(
			`INSERT INTO challenge_progress
			   (user_id, challenge_type, total_attempts, correct_answers, streak, last_attempt_date, completed_challenges)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 ON CONFLICT (user_id, challenge_type) DO UPDATE SET
			   total_attempts = EXCLUDED.total_attempts,
			   correct_answers = EXCLUDED.correct_answers,
			   streak = EXCLUDED.streak,
			   last_attempt_date = EXCLUDED.last_attempt_date,
			   completed_challenges = EXCLUDED.completed_challenges`,
			u.ID, string(t), p.TotalAttempts, p.CorrectAnswers, p.Streak, p.LastAttemptDate, completed)
	}
	results := tx.SendBatch(ctx, batch)
	for range domain.ChallengeTypes {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return domain.Persistence("save progress", err)
		}
	}
	if err := results.Close(); err != nil {
		return domain.Persistence("save progress", err)
	}
	return nil
}
