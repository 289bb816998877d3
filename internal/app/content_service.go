package app

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"lingo-quiz-service/internal/domain"
	"lingo-quiz-service/internal/normalize"
)

// ContentService serves random quiz items and canonical answers.
type ContentService struct {
	repo ContentRepository

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewContentService(repo ContentRepository) *ContentService {
	return &ContentService{
		repo: repo,
		rnd:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Random returns one item of type t. Repeats are possible; no history is kept.
func (s *ContentService) Random(ctx context.Context, t domain.ChallengeType) (domain.ChallengeItem, error) {
	if !t.Valid() {
		return domain.ChallengeItem{}, domain.Invalid("challengeType", "must be one of word, idiom, verb")
	}
	set, err := s.repo.GetChallengeSet(ctx, t)
	if err != nil {
		return domain.ChallengeItem{}, err
	}
	if len(set.Items) == 0 {
		return domain.ChallengeItem{}, domain.ErrContentNotFound
	}
	s.mu.Lock()
	i := s.rnd.Intn(len(set.Items))
	s.mu.Unlock()
	return set.Items[i], nil
}

// CanonicalAnswers returns every answer recorded for prompt. Prompts are
// matched by normalized form, so accents and case in the item id do not matter.
func (s *ContentService) CanonicalAnswers(ctx context.Context, t domain.ChallengeType, prompt string) ([]string, error) {
	set, err := s.repo.GetChallengeSet(ctx, t)
	if err != nil {
		return nil, err
	}
	want := normalize.String(prompt)
	var answers []string
	for _, item := range set.Items {
		if normalize.String(item.Prompt) == want {
			answers = append(answers, item.Answer)
		}
	}
	return answers, nil
}
