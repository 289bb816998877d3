package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"lingo-quiz-service/internal/domain"
)

// ContentLoader loads challenge items from the challenge_items table.
type ContentLoader struct {
	pool *pgxpool.Pool
}

func NewContentLoader(pool *pgxpool.Pool) *ContentLoader {
	return &ContentLoader{pool: pool}
}

func (l *ContentLoader) LoadChallengeSet(ctx context.Context, t domain.ChallengeType) (domain.ChallengeSet, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT prompt, answer, present FROM challenge_items WHERE challenge_type = $1 ORDER BY position`,
		string(t))
	if err != nil {
		return domain.ChallengeSet{}, fmt.Errorf("load %s items: %w", t, err)
	}
	defer rows.Close()

	set := domain.ChallengeSet{Type: t}
	for rows.Next() {
		var item domain.ChallengeItem
		if err := rows.Scan(&item.Prompt, &item.Answer, &item.Present); err != nil {
			return domain.ChallengeSet{}, fmt.Errorf("scan %s item: %w", t, err)
		}
		if len(item.Present) == 0 {
			item.Present = nil
		}
		set.Items = append(set.Items, item)
	}
	if err := rows.Err(); err != nil {
		return domain.ChallengeSet{}, fmt.Errorf("load %s items: %w", t, err)
	}
	if len(set.Items) == 0 {
		return domain.ChallengeSet{}, fmt.Errorf("%s: %w", t, domain.ErrContentNotFound)
	}
	return set, nil
}

// ReplaceChallengeSet swaps the stored items of one type for set.Items in a single transaction.
func (l *ContentLoader) ReplaceChallengeSet(ctx context.Context, set domain.ChallengeSet) (int, error) {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin replace: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM challenge_items WHERE challenge_type = $1`, string(set.Type)); err != nil {
		return 0, fmt.Errorf("clear %s items: %w", set.Type, err)
	}

	rows := make([][]interface{}, 0, len(set.Items))
	for i, item := range set.Items {
		present := item.Present
		if present == nil {
			present = []string{}
		}
		rows = append(rows, []interface{}{string(set.Type), i, item.Prompt, item.Answer, present})
	}
	n, err := tx.CopyFrom(ctx,
		pgx.Identifier{"challenge_items"},
		[]string{"challenge_type", "position", "prompt", "answer", "present"},
		pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("copy %s items: %w", set.Type, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit replace: %w", err)
	}
	return int(n), nil
}
