package app

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"lingo-quiz-service/internal/domain"
	"lingo-quiz-service/internal/normalize"
)

const (
	// DefaultHistoryLimit is used when a history query has no positive limit.
	DefaultHistoryLimit = 20
	// MaxHistoryLimit caps a single history page.
	MaxHistoryLimit = 100
)

// ProgressOptions tunes the progress engine.
type ProgressOptions struct {
	// Location defines calendar days for streaks. Defaults to UTC.
	Location *time.Location
	// TrustClientCorrectness accepts the client's correct flag instead of re-grading.
	TrustClientCorrectness bool
	// Now overrides the clock, for deterministic tests.
	Now func() time.Time
}

// ProgressService contains the progress tracking and scoring use cases.
type ProgressService struct {
	store   ProgressStore
	answers AnswerKey
	feed    *ProgressFeed
	opts    ProgressOptions
}

// NewProgressService wires the engine. answers and feed may be nil.
func NewProgressService(store ProgressStore, answers AnswerKey, feed *ProgressFeed, opts ProgressOptions) *ProgressService {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &ProgressService{store: store, answers: answers, feed: feed, opts: opts}
}

// RecordAttempt grades a submission and folds it into the user's progress atomically.
func (s *ProgressService) RecordAttempt(ctx context.Context, userID string, sub domain.AttemptSubmission) (domain.ProgressSnapshot, error) {
	if userID == "" {
		return domain.ProgressSnapshot{}, domain.ErrUnauthenticated
	}
	challengeType, err := validateSubmission(sub)
	if err != nil {
		return domain.ProgressSnapshot{}, err
	}

	correct, key := s.grade(ctx, challengeType, sub)

	attempt := domain.Attempt{
		ID:            uuid.NewString(),
		UserID:        userID,
		ChallengeID:   sub.ChallengeID,
		ChallengeType: challengeType,
		Correct:       correct,
		UserAnswer:    sub.UserAnswer,
		CorrectAnswer: key,
		TimeSpent:     sub.TimeSpent,
		AttemptedAt:   s.opts.Now(),
	}

	user, err := s.store.ApplyAttempt(ctx, attempt, func(u *domain.User) {
		applyAttempt(u, attempt, s.opts.Location)
	})
	if err != nil {
		return domain.ProgressSnapshot{}, err
	}

	snapshot := snapshotFor(user, challengeType, correct)
	if s.feed != nil {
		s.feed.Publish(userID, snapshot)
	}
	return snapshot, nil
}

// grade decides correctness on the server unless the client flag is trusted.
// It also returns the answer key the decision was made against.
func (s *ProgressService) grade(ctx context.Context, t domain.ChallengeType, sub domain.AttemptSubmission) (bool, string) {
	if s.opts.TrustClientCorrectness {
		return *sub.Correct, sub.CorrectAnswer
	}
	if s.answers != nil {
		answers, err := s.answers.CanonicalAnswers(ctx, t, sub.ChallengeID)
		if err != nil {
			// Content outages must not block progress; grade against the submitted answer.
			log.Printf("canonical answer lookup failed for %s %q: %v", t, sub.ChallengeID, err)
		}
		if len(answers) > 0 {
			for _, answer := range answers {
				if normalize.Equal(sub.UserAnswer, answer) {
					return true, answer
				}
			}
			return false, answers[0]
		}
	}
	return normalize.Equal(sub.UserAnswer, sub.CorrectAnswer), sub.CorrectAnswer
}

// GetProgress returns the user's score, level and per-type statistics.
func (s *ProgressService) GetProgress(ctx context.Context, userID string) (domain.ProgressReport, error) {
	if userID == "" {
		return domain.ProgressReport{}, domain.ErrUnauthenticated
	}
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return domain.ProgressReport{}, err
	}
	return BuildReport(user), nil
}

// GetHistory returns the user's attempts newest first.
func (s *ProgressService) GetHistory(ctx context.Context, userID string, q domain.HistoryQuery) ([]domain.Attempt, error) {
	if userID == "" {
		return nil, domain.ErrUnauthenticated
	}
	// Unknown types are rejected rather than silently widened to all types.
	if q.Type != "" && !q.Type.Valid() {
		return nil, domain.Invalid("type", "must be one of word, idiom, verb")
	}
	if q.Limit <= 0 {
		q.Limit = DefaultHistoryLimit
	}
	if q.Limit > MaxHistoryLimit {
		q.Limit = MaxHistoryLimit
	}
	return s.store.ListAttempts(ctx, userID, q)
}

// GetWeakAreas returns the items with the lowest success rate.
func (s *ProgressService) GetWeakAreas(ctx context.Context, userID string) ([]domain.WeakArea, error) {
	if userID == "" {
		return nil, domain.ErrUnauthenticated
	}
	return s.store.WeakAreas(ctx, userID, normalizeWeakAreaQuery(domain.WeakAreaQuery{}))
}

func validateSubmission(sub domain.AttemptSubmission) (domain.ChallengeType, error) {
	if strings.TrimSpace(sub.ChallengeID) == "" {
		return "", domain.Invalid("challengeId", "is required")
	}
	challengeType, err := domain.ParseChallengeType(sub.ChallengeType)
	if err != nil {
		return "", err
	}
	if sub.Correct == nil {
		return "", domain.Invalid("correct", "must be a boolean")
	}
	if strings.TrimSpace(sub.UserAnswer) == "" {
		return "", domain.Invalid("userAnswer", "is required")
	}
	if strings.TrimSpace(sub.CorrectAnswer) == "" {
		return "", domain.Invalid("correctAnswer", "is required")
	}
	if sub.TimeSpent != nil && *sub.TimeSpent < 0 {
		return "", domain.Invalid("timeSpent", "must not be negative")
	}
	return challengeType, nil
}
