// Package sqlite is a single-file progress store for local runs and small deployments.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"lingo-quiz-service/internal/domain"

	_ "modernc.org/sqlite" // SQLite driver.
)

// timeLayout is fixed-width so text timestamps sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// ProgressStore implements app.ProgressStore on SQLite. A single connection
// serializes writers, and each submission runs in its own transaction.
type ProgressStore struct {
	db *sqlx.DB
}

type userRow struct {
	ID           string `db:"id"`
	Username     string `db:"username"`
	Email        string `db:"email"`
	PasswordHash string `db:"password_hash"`
	CreatedAt    string `db:"created_at"`
	TotalScore   int    `db:"total_score"`
	Level        int    `db:"level"`
}

type progressRow struct {
	ChallengeType   string         `db:"challenge_type"`
	TotalAttempts   int            `db:"total_attempts"`
	CorrectAnswers  int            `db:"correct_answers"`
	Streak          int            `db:"streak"`
	LastAttemptDate sql.NullString `db:"last_attempt_date"`
}

type completedRow struct {
	ChallengeType string `db:"challenge_type"`
	ChallengeID   string `db:"challenge_id"`
}

type attemptRow struct {
	ID            string        `db:"id"`
	UserID        string        `db:"user_id"`
	ChallengeID   string        `db:"challenge_id"`
	ChallengeType string        `db:"challenge_type"`
	Correct       bool          `db:"correct"`
	UserAnswer    string        `db:"user_answer"`
	CorrectAnswer string        `db:"correct_answer"`
	TimeSpent     sql.NullInt64 `db:"time_spent_ms"`
	AttemptedAt   string        `db:"attempted_at"`
}

type weakAreaRow struct {
	ChallengeID   string `db:"challenge_id"`
	ChallengeType string `db:"challenge_type"`
	Total         int    `db:"total"`
	Correct       int    `db:"correct_count"`
	LastAttempt   string `db:"last_attempt"`
}

// Open opens or creates the database at path and applies the schema.
func Open(path string) (*ProgressStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}
	return &ProgressStore{db: db}, nil
}

func (s *ProgressStore) Close() error {
	return s.db.Close()
}

func (s *ProgressStore) CreateUser(ctx context.Context, user domain.User) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.Persistence("begin create user", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password_hash, created_at, total_score, level)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Username, user.Email, user.PasswordHash, formatTime(user.CreatedAt), user.TotalScore, user.Level)
	if err != nil {
		switch msg := err.Error(); {
		case strings.Contains(msg, "UNIQUE constraint failed: users.email"):
			return domain.ErrEmailTaken
		case strings.Contains(msg, "UNIQUE constraint failed: users.username"):
			return domain.ErrUsernameTaken
		}
		return domain.Persistence("insert user", err)
	}
	if err := saveProgress(ctx, tx, user, nil); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return domain.Persistence("commit create user", err)
	}
	return nil
}

func (s *ProgressStore) GetUser(ctx context.Context, userID string) (domain.User, error) {
	return loadUser(ctx, s.db, `id = ?`, userID)
}

func (s *ProgressStore) FindUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return loadUser(ctx, s.db, `email = ?`, email)
}

func (s *ProgressStore) ApplyAttempt(ctx context.Context, attempt domain.Attempt, mutate func(*domain.User)) (domain.User, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.User{}, domain.Persistence("begin apply attempt", err)
	}
	defer tx.Rollback()

	user, err := loadUser(ctx, tx, `id = ?`, attempt.UserID)
	if err != nil {
		return domain.User{}, err
	}
	stored := completedCounts(user)
	mutate(&user)

	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET total_score = ?, level = ? WHERE id = ?`,
		user.TotalScore, user.Level, user.ID); err != nil {
		return domain.User{}, domain.Persistence("update user", err)
	}
	if err := saveProgress(ctx, tx, user, stored); err != nil {
		return domain.User{}, err
	}

	row := attemptRow{
		ID:            attempt.ID,
		UserID:        attempt.UserID,
		ChallengeID:   attempt.ChallengeID,
		ChallengeType: string(attempt.ChallengeType),
		Correct:       attempt.Correct,
		UserAnswer:    attempt.UserAnswer,
		CorrectAnswer: attempt.CorrectAnswer,
		AttemptedAt:   formatTime(attempt.AttemptedAt),
	}
	if attempt.TimeSpent != nil {
		row.TimeSpent = sql.NullInt64{Int64: *attempt.TimeSpent, Valid: true}
	}
	if _, err := tx.NamedExecContext(ctx,
		`INSERT INTO challenge_attempts
		   (id, user_id, challenge_id, challenge_type, correct, user_answer, correct_answer, time_spent_ms, attempted_at)
		 VALUES (:id, :user_id, :challenge_id, :challenge_type, :correct, :user_answer, :correct_answer, :time_spent_ms, :attempted_at)`,
		row); err != nil {
		return domain.User{}, domain.Persistence("insert attempt", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.User{}, domain.Persistence("commit apply attempt", err)
	}
	return user, nil
}

func (s *ProgressStore) ListAttempts(ctx context.Context, userID string, q domain.HistoryQuery) ([]domain.Attempt, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = -1
	}
	var rows []attemptRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, user_id, challenge_id, challenge_type, correct, user_answer, correct_answer, time_spent_ms, attempted_at
		 FROM challenge_attempts
		 WHERE user_id = ? AND (? = '' OR challenge_type = ?)
		 ORDER BY attempted_at DESC, rowid DESC
		 LIMIT ?`,
		userID, string(q.Type), string(q.Type), limit)
	if err != nil {
		return nil, domain.Persistence("list attempts", err)
	}

	attempts := make([]domain.Attempt, 0, len(rows))
	for _, r := range rows {
		at, err := parseTime(r.AttemptedAt)
		if err != nil {
			return nil, domain.Persistence("parse attempt time", err)
		}
		a := domain.Attempt{
			ID:            r.ID,
			UserID:        r.UserID,
			ChallengeID:   r.ChallengeID,
			ChallengeType: domain.ChallengeType(r.ChallengeType),
			Correct:       r.Correct,
			UserAnswer:    r.UserAnswer,
			CorrectAnswer: r.CorrectAnswer,
			AttemptedAt:   at,
		}
		if r.TimeSpent.Valid {
			spent := r.TimeSpent.Int64
			a.TimeSpent = &spent
		}
		attempts = append(attempts, a)
	}
	return attempts, nil
}

func (s *ProgressStore) WeakAreas(ctx context.Context, userID string, q domain.WeakAreaQuery) ([]domain.WeakArea, error) {
	var rows []weakAreaRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT challenge_id, challenge_type, COUNT(*) AS total,
		        SUM(correct) AS correct_count, MAX(attempted_at) AS last_attempt
		 FROM challenge_attempts
		 WHERE user_id = ?
		 GROUP BY challenge_id, challenge_type
		 HAVING COUNT(*) >= ?
		 ORDER BY CAST(SUM(correct) AS REAL) / COUNT(*) ASC, COUNT(*) DESC, challenge_id, challenge_type
		 LIMIT ?`,
		userID, q.MinAttempts, q.Limit)
	if err != nil {
		return nil, domain.Persistence("weak areas", err)
	}

	areas := make([]domain.WeakArea, 0, len(rows))
	for _, r := range rows {
		last, err := parseTime(r.LastAttempt)
		if err != nil {
			return nil, domain.Persistence("parse attempt time", err)
		}
		areas = append(areas, domain.WeakArea{
			ChallengeID:     r.ChallengeID,
			ChallengeType:   domain.ChallengeType(r.ChallengeType),
			TotalAttempts:   r.Total,
			CorrectAttempts: r.Correct,
			SuccessRate:     float64(r.Correct) / float64(r.Total) * 100,
			LastAttempt:     last,
		})
	}
	return areas, nil
}

func loadUser(ctx context.Context, q sqlx.QueryerContext, where string, arg interface{}) (domain.User, error) {
	var row userRow
	err := sqlx.GetContext(ctx, q, &row,
		`SELECT id, username, email, password_hash, created_at, total_score, level FROM users WHERE `+where, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, domain.Persistence("load user", err)
	}
	created, err := parseTime(row.CreatedAt)
	if err != nil {
		return domain.User{}, domain.Persistence("parse created_at", err)
	}
	u := domain.User{
		ID:           row.ID,
		Username:     row.Username,
		Email:        row.Email,
		PasswordHash: row.PasswordHash,
		CreatedAt:    created,
		TotalScore:   row.TotalScore,
		Level:        row.Level,
	}

	var progress []progressRow
	if err := sqlx.SelectContext(ctx, q, &progress,
		`SELECT challenge_type, total_attempts, correct_answers, streak, last_attempt_date
		 FROM challenge_progress WHERE user_id = ?`, u.ID); err != nil {
		return domain.User{}, domain.Persistence("load progress", err)
	}
	for _, r := range progress {
		p := u.Progress.For(domain.ChallengeType(r.ChallengeType))
		if p == nil {
			continue
		}
		p.TotalAttempts = r.TotalAttempts
		p.CorrectAnswers = r.CorrectAnswers
		p.Streak = r.Streak
		if r.LastAttemptDate.Valid {
			last, err := parseTime(r.LastAttemptDate.String)
			if err != nil {
				return domain.User{}, domain.Persistence("parse last_attempt_date", err)
			}
			p.LastAttemptDate = &last
		}
	}

	var completed []completedRow
	if err := sqlx.SelectContext(ctx, q, &completed,
		`SELECT challenge_type, challenge_id FROM completed_challenges WHERE user_id = ? ORDER BY rowid`, u.ID); err != nil {
		return domain.User{}, domain.Persistence("load completed", err)
	}
	for _, r := range completed {
		if p := u.Progress.For(domain.ChallengeType(r.ChallengeType)); p != nil {
			p.CompletedChallenges = append(p.CompletedChallenges, r.ChallengeID)
		}
	}
	return u, nil
}

// completedCounts records how many completed items of each type are already stored.
func completedCounts(u domain.User) map[domain.ChallengeType]int {
	counts := make(map[domain.ChallengeType]int, len(domain.ChallengeTypes))
	for _, t := range domain.ChallengeTypes {
		counts[t] = len(u.Progress.For(t).CompletedChallenges)
	}
	return counts
}

// saveProgress upserts the aggregates and inserts the completed items past
// stored[t]. The completed set is append-only, so earlier rows already exist.
func saveProgress(ctx context.Context, tx *sqlx.Tx, u domain.User, stored map[domain.ChallengeType]int) error {
	for _, t := range domain.ChallengeTypes {
		p := u.Progress.For(t)
		var last sql.NullString
		if p.LastAttemptDate != nil {
			last = sql.NullString{String: formatTime(*p.LastAttemptDate), Valid: true}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO challenge_progress (user_id, challenge_type, total_attempts, correct_answers, streak, last_attempt_date)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT (user_id, challenge_type) DO UPDATE SET
			   total_attempts = excluded.total_attempts,
			   correct_answers = excluded.correct_answers,
			   streak = excluded.streak,
			   last_attempt_date = excluded.last_attempt_date`,
			u.ID, string(t), p.TotalAttempts, p.CorrectAnswers, p.Streak, last); err != nil {
			return domain.Persistence("save progress", err)
		}
		for _, id := range p.CompletedChallenges[min(stored[t], len(p.CompletedChallenges)):] {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO completed_challenges (user_id, challenge_type, challenge_id) VALUES (?, ?, ?)`,
				u.ID, string(t), id); err != nil {
				return domain.Persistence("save completed", err)
			}
		}
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}
