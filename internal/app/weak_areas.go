package app

import (
	"sort"

	"lingo-quiz-service/internal/domain"
)

const (
	// DefaultWeakAreaMinAttempts is the minimum number of attempts before an item can be weak.
	DefaultWeakAreaMinAttempts = 2
	// DefaultWeakAreaLimit caps the weak-area list.
	DefaultWeakAreaLimit = 10
)

// RankWeakAreas groups attempts by (challengeId, challengeType) and returns
// the groups with the lowest success rate first. Stores without a query
// engine use it directly; the SQL stores mirror its ordering.
func RankWeakAreas(attempts []domain.Attempt, q domain.WeakAreaQuery) []domain.WeakArea {
	q = normalizeWeakAreaQuery(q)

	type key struct {
		id  string
		typ domain.ChallengeType
	}
	groups := make(map[key]*domain.WeakArea)
	for _, a := range attempts {
		k := key{id: a.ChallengeID, typ: a.ChallengeType}
		g, ok := groups[k]
		if !ok {
			g = &domain.WeakArea{ChallengeID: a.ChallengeID, ChallengeType: a.ChallengeType}
			groups[k] = g
		}
		g.TotalAttempts++
		if a.Correct {
			g.CorrectAttempts++
		}
		if a.AttemptedAt.After(g.LastAttempt) {
			g.LastAttempt = a.AttemptedAt
		}
	}

	out := make([]domain.WeakArea, 0, len(groups))
	for _, g := range groups {
		if g.TotalAttempts < q.MinAttempts {
			continue
		}
		g.SuccessRate = float64(g.CorrectAttempts) / float64(g.TotalAttempts) * 100
		out = append(out, *g)
	}
	SortWeakAreas(out)
	if len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

// SortWeakAreas orders by success rate ascending, then more attempts, then id and type.
func SortWeakAreas(areas []domain.WeakArea) {
	sort.Slice(areas, func(i, j int) bool {
		a, b := areas[i], areas[j]
		if a.SuccessRate != b.SuccessRate {
			return a.SuccessRate < b.SuccessRate
		}
		if a.TotalAttempts != b.TotalAttempts {
			return a.TotalAttempts > b.TotalAttempts
		}
		if a.ChallengeID != b.ChallengeID {
			return a.ChallengeID < b.ChallengeID
		}
		return a.ChallengeType < b.ChallengeType
	})
}

func normalizeWeakAreaQuery(q domain.WeakAreaQuery) domain.WeakAreaQuery {
	if q.MinAttempts <= 0 {
		q.MinAttempts = DefaultWeakAreaMinAttempts
	}
	if q.Limit <= 0 {
		q.Limit = DefaultWeakAreaLimit
	}
	return q
}
