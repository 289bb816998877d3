package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"lingo-quiz-service/internal/domain"
)

func TestProgressStoreRejectsDuplicateAccounts(t *testing.T) {
	ctx := context.Background()
	store := NewProgressStore()

	if err := store.CreateUser(ctx, domain.User{ID: "u1", Username: "ana", Email: "ana@example.com", Level: 1}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.CreateUser(ctx, domain.User{ID: "u2", Username: "bia", Email: "ana@example.com"}); err != domain.ErrEmailTaken {
		t.Fatalf("expected email taken, got %v", err)
	}
	if err := store.CreateUser(ctx, domain.User{ID: "u3", Username: "ana", Email: "other@example.com"}); err != domain.ErrUsernameTaken {
		t.Fatalf("expected username taken, got %v", err)
	}

	user, err := store.FindUserByEmail(ctx, "ana@example.com")
	if err != nil || user.ID != "u1" {
		t.Fatalf("expected u1 by email, got %+v err=%v", user, err)
	}
}

func TestProgressStoreApplyAttemptIsolatesCopies(t *testing.T) {
	ctx := context.Background()
	store := NewProgressStore()
	_ = store.CreateUser(ctx, domain.User{ID: "u1", Username: "ana", Email: "ana@example.com"})

	updated, err := store.ApplyAttempt(ctx, attemptFor("u1", "eau", true, time.Now()), func(u *domain.User) {
		u.Progress.Word.TotalAttempts++
		u.Progress.Word.MarkCompleted("eau")
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	updated.Progress.Word.CompletedChallenges[0] = "tampered"

	stored, _ := store.GetUser(ctx, "u1")
	if stored.Progress.Word.CompletedChallenges[0] != "eau" {
		t.Fatalf("store state leaked through returned copy")
	}
}

func TestProgressStoreApplyAttemptUnknownUser(t *testing.T) {
	store := NewProgressStore()
	_, err := store.ApplyAttempt(context.Background(), attemptFor("ghost", "eau", true, time.Now()), func(*domain.User) {})
	if err != domain.ErrUserNotFound {
		t.Fatalf("expected user not found, got %v", err)
	}
}

func TestProgressStoreConcurrentApplyLosesNothing(t *testing.T) {
	ctx := context.Background()
	store := NewProgressStore()
	_ = store.CreateUser(ctx, domain.User{ID: "u1", Username: "ana", Email: "ana@example.com"})

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.ApplyAttempt(ctx, attemptFor("u1", "eau", true, time.Now()), func(u *domain.User) {
				u.Progress.Word.TotalAttempts++
			})
			if err != nil {
				t.Errorf("apply: %v", err)
			}
		}()
	}
	wg.Wait()

	user, _ := store.GetUser(ctx, "u1")
	if user.Progress.Word.TotalAttempts != n {
		t.Fatalf("expected %d attempts, got %d", n, user.Progress.Word.TotalAttempts)
	}
	history, _ := store.ListAttempts(ctx, "u1", domain.HistoryQuery{Limit: 1000})
	if len(history) != n {
		t.Fatalf("expected %d logged attempts, got %d", n, len(history))
	}
}

func TestProgressStoreListAttemptsNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewProgressStore()
	_ = store.CreateUser(ctx, domain.User{ID: "u1", Username: "ana", Email: "ana@example.com"})

	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	noop := func(*domain.User) {}
	_, _ = store.ApplyAttempt(ctx, attemptFor("u1", "eau", true, base), noop)
	idiom := attemptFor("u1", "poser un lapin", false, base.Add(time.Minute))
	idiom.ChallengeType = domain.ChallengeIdiom
	_, _ = store.ApplyAttempt(ctx, idiom, noop)
	_, _ = store.ApplyAttempt(ctx, attemptFor("u1", "maison", true, base.Add(2*time.Minute)), noop)

	all, _ := store.ListAttempts(ctx, "u1", domain.HistoryQuery{Limit: 20})
	if len(all) != 3 || all[0].ChallengeID != "maison" || all[2].ChallengeID != "eau" {
		t.Fatalf("expected newest first, got %+v", all)
	}

	words, _ := store.ListAttempts(ctx, "u1", domain.HistoryQuery{Type: domain.ChallengeWord, Limit: 1})
	if len(words) != 1 || words[0].ChallengeID != "maison" {
		t.Fatalf("expected latest word only, got %+v", words)
	}
}

func TestProgressStoreWeakAreas(t *testing.T) {
	ctx := context.Background()
	store := NewProgressStore()
	_ = store.CreateUser(ctx, domain.User{ID: "u1", Username: "ana", Email: "ana@example.com"})

	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	noop := func(*domain.User) {}
	for i, correct := range []bool{false, false, true} {
		_, _ = store.ApplyAttempt(ctx, attemptFor("u1", "eau", correct, base.Add(time.Duration(i)*time.Minute)), noop)
	}
	_, _ = store.ApplyAttempt(ctx, attemptFor("u1", "maison", true, base), noop)

	areas, err := store.WeakAreas(ctx, "u1", domain.WeakAreaQuery{})
	if err != nil {
		t.Fatalf("weak areas: %v", err)
	}
	if len(areas) != 1 || areas[0].ChallengeID != "eau" || areas[0].TotalAttempts != 3 || areas[0].CorrectAttempts != 1 {
		t.Fatalf("unexpected weak areas %+v", areas)
	}
	if !areas[0].LastAttempt.Equal(base.Add(2 * time.Minute)) {
		t.Fatalf("expected last attempt timestamp, got %v", areas[0].LastAttempt)
	}
}

func attemptFor(userID, challengeID string, correct bool, at time.Time) domain.Attempt {
	return domain.Attempt{
		ID:            challengeID + at.String(),
		UserID:        userID,
		ChallengeID:   challengeID,
		ChallengeType: domain.ChallengeWord,
		Correct:       correct,
		UserAnswer:    "answer",
		CorrectAnswer: "answer",
		AttemptedAt:   at,
	}
}
