package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"lingo-quiz-service/internal/app"
	"lingo-quiz-service/internal/domain"
)

func TestProgressStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	created := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	user := domain.User{ID: "u1", Username: "ana", Email: "ana@example.com", PasswordHash: "hash", CreatedAt: created, Level: 1}
	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := store.FindUserByEmail(ctx, "ana@example.com")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.ID != "u1" || got.PasswordHash != "hash" || !got.CreatedAt.Equal(created) || got.Level != 1 {
		t.Fatalf("unexpected user %+v", got)
	}
	if _, err := store.GetUser(ctx, "ghost"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestProgressStoreDuplicates(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	seed(t, store, "u1", "ana", "ana@example.com")

	err := store.CreateUser(ctx, domain.User{ID: "u2", Username: "bia", Email: "ana@example.com", CreatedAt: time.Now()})
	if !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected email taken, got %v", err)
	}
	err = store.CreateUser(ctx, domain.User{ID: "u3", Username: "ana", Email: "other@example.com", CreatedAt: time.Now()})
	if !errors.Is(err, domain.ErrUsernameTaken) {
		t.Fatalf("expected username taken, got %v", err)
	}
}

func TestProgressStoreScenario(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	seed(t, store, "u1", "ana", "ana@example.com")

	now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	service := app.NewProgressService(store, nil, nil, app.ProgressOptions{
		Now: func() time.Time {
			now = now.Add(time.Second)
			return now
		},
	})

	for _, sub := range []domain.AttemptSubmission{
		submission("maison", "casa", "casa"),
		submission("eau", "água", "agua"),
		submission("lait", "vinho", "leite"),
	} {
		if _, err := service.RecordAttempt(ctx, "u1", sub); err != nil {
			t.Fatalf("submit %s: %v", sub.ChallengeID, err)
		}
	}

	report, err := service.GetProgress(ctx, "u1")
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
	if w.LastAttemptDate == nil || !w.LastAttemptDate.Equal(now) {
		t.Fatalf("expected last attempt %v, got %v", now, w.LastAttemptDate)
	}

	history, err := service.GetHistory(ctx, "u1", domain.HistoryQuery{Type: domain.ChallengeWord, Limit: 2})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 || history[0].ChallengeID != "lait" || history[1].ChallengeID != "eau" {
		t.Fatalf("expected newest first, got %+v", history)
	}
	if history[0].Correct || history[0].UserAnswer != "vinho" {
		t.Fatalf("unexpected stored attempt %+v", history[0])
	}

	idioms, _ := service.GetHistory(ctx, "u1", domain.HistoryQuery{Type: domain.ChallengeIdiom})
	if len(idioms) != 0 {
		t.Fatalf("expected no idiom attempts, got %d", len(idioms))
	}
}

func TestProgressStoreConcurrentSubmissions(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	seed(t, store, "u1", "ana", "ana@example.com")
	service := app.NewProgressService(store, nil, nil, app.ProgressOptions{})

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := service.RecordAttempt(ctx, "u1", submission("maison", "casa", "casa")); err != nil {
				t.Errorf("submit: %v", err)
			}
		}()
	}
	wg.Wait()

	report, _ := service.GetProgress(ctx, "u1")
	if report.Word.TotalAttempts != n || report.TotalScore != n*app.PointsPerCorrect {
		t.Fatalf("lost updates: %+v score=%d", report.Word, report.TotalScore)
	}
	if report.Word.CompletedChallenges != 1 {
		t.Fatalf("expected one completed item, got %d", report.Word.CompletedChallenges)
	}
}

func TestProgressStoreWeakAreas(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	seed(t, store, "u1", "ana", "ana@example.com")

	base := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	results := []struct {
		id      string
		correct bool
	}{
		{id: "maison", correct: true},
		{id: "maison", correct: true},
		{id: "eau", correct: false},
		{id: "eau", correct: true},
		{id: "lait", correct: false},
		{id: "lait", correct: false},
		{id: "lait", correct: true},
		{id: "lait", correct: true},
		{id: "chat", correct: false},
	}
	for i, r := range results {
		attempt := domain.Attempt{
			ID:            r.id + "-" + strconv.Itoa(i),
			UserID:        "u1",
			ChallengeID:   r.id,
			ChallengeType: domain.ChallengeWord,
			Correct:       r.correct,
			UserAnswer:    "x",
			CorrectAnswer: "x",
			AttemptedAt:   base.Add(time.Duration(i) * time.Minute),
		}
		if _, err := store.ApplyAttempt(ctx, attempt, func(*domain.User) {}); err != nil {
			t.Fatalf("apply: %v", err)
		}
	}

	areas, err := store.WeakAreas(ctx, "u1", domain.WeakAreaQuery{MinAttempts: 2, Limit: 10})
	if err != nil {
		t.Fatalf("weak areas: %v", err)
	}
	want := []string{"lait", "eau", "maison"}
	if len(areas) != len(want) {
		t.Fatalf("expected %d areas, got %+v", len(want), areas)
	}
	for i, id := range want {
		if areas[i].ChallengeID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, areas[i].ChallengeID)
		}
	}
	if areas[0].SuccessRate != 50 || areas[0].TotalAttempts != 4 {
		t.Fatalf("unexpected lait aggregate %+v", areas[0])
	}
	if !areas[0].LastAttempt.Equal(base.Add(7 * time.Minute)) {
		t.Fatalf("expected last lait attempt, got %v", areas[0].LastAttempt)
	}
}

func TestApplyAttemptFailureLeavesNoPartialState(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	seed(t, store, "u1", "ana", "ana@example.com")

	credit := func(id string) func(*domain.User) {
		return func(u *domain.User) {
			u.Progress.Word.TotalAttempts++
			u.Progress.Word.CorrectAnswers++
			u.Progress.Word.MarkCompleted(id)
			u.TotalScore += app.PointsPerCorrect
		}
	}
	attempt := domain.Attempt{
		ID: "a1", UserID: "u1", ChallengeID: "maison", ChallengeType: domain.ChallengeWord,
		Correct: true, UserAnswer: "casa", CorrectAnswer: "casa", AttemptedAt: time.Now(),
	}
	if _, err := store.ApplyAttempt(ctx, attempt, credit("maison")); err != nil {
		t.Fatalf("first apply: %v", err)
	}

	// Reusing the attempt id fails on insert, after the aggregates were already written in the tx.
	attempt.ChallengeID = "eau"
	if _, err := store.ApplyAttempt(ctx, attempt, credit("eau")); !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("expected persistence failure, got %v", err)
	}

	user, err := store.GetUser(ctx, "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	w := user.Progress.Word
	if w.TotalAttempts != 1 || w.CorrectAnswers != 1 || user.TotalScore != app.PointsPerCorrect {
		t.Fatalf("expected rolled back aggregates, got %+v score=%d", w, user.TotalScore)
	}
	if len(w.CompletedChallenges) != 1 || w.CompletedChallenges[0] != "maison" {
		t.Fatalf("expected only maison completed, got %v", w.CompletedChallenges)
	}
	history, _ := store.ListAttempts(ctx, "u1", domain.HistoryQuery{Limit: 10})
	if len(history) != 1 {
		t.Fatalf("expected one stored attempt, got %d", len(history))
	}
}

func TestApplyAttemptAppendsCompletedItems(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	seed(t, store, "u1", "ana", "ana@example.com")

	for i, id := range []string{"maison", "eau", "maison", "lait"} {
		id := id
		attempt := domain.Attempt{
			ID: "a" + strconv.Itoa(i), UserID: "u1", ChallengeID: id, ChallengeType: domain.ChallengeWord,
			Correct: true, UserAnswer: "x", CorrectAnswer: "x", AttemptedAt: time.Now(),
		}
		if _, err := store.ApplyAttempt(ctx, attempt, func(u *domain.User) {
			u.Progress.Word.MarkCompleted(id)
		}); err != nil {
			t.Fatalf("apply %s: %v", id, err)
		}
	}

	user, err := store.GetUser(ctx, "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	got := user.Progress.Word.CompletedChallenges
	want := []string{"maison", "eau", "lait"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}

	var rows int
	if err := store.db.GetContext(ctx, &rows, `SELECT COUNT(*) FROM completed_challenges WHERE user_id = ?`, "u1"); err != nil {
		t.Fatalf("count: %v", err)
	}
	if rows != len(want) {
		t.Fatalf("expected %d completed rows, got %d", len(want), rows)
	}
}

func TestProgressStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "progress.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	seed(t, store, "u1", "ana", "ana@example.com")
	_, err = store.ApplyAttempt(ctx, domain.Attempt{
		ID: "a1", UserID: "u1", ChallengeID: "parler", ChallengeType: domain.ChallengeVerb,
		Correct: true, UserAnswer: "falar", CorrectAnswer: "falar", AttemptedAt: time.Now(),
	}, func(u *domain.User) {
		u.Progress.Verb.TotalAttempts++
		u.Progress.Verb.MarkCompleted("parler")
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	_ = store.Close()

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	user, err := reopened.GetUser(ctx, "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if user.Progress.Verb.TotalAttempts != 1 || !user.Progress.Verb.HasCompleted("parler") {
		t.Fatalf("expected persisted verb progress, got %+v", user.Progress.Verb)
	}
}

func openTestStore(t *testing.T) *ProgressStore {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "progress.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seed(t *testing.T, store *ProgressStore, id, username, email string) {
	t.Helper()
	err := store.CreateUser(context.Background(), domain.User{
		ID:        id,
		Username:  username,
		Email:     email,
		CreatedAt: time.Now(),
		Level:     1,
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func submission(id, answer, expected string) domain.AttemptSubmission {
	correct := answer == expected
	return domain.AttemptSubmission{
		ChallengeID:   id,
		ChallengeType: string(domain.ChallengeWord),
		Correct:       &correct,
		UserAnswer:    answer,
		CorrectAnswer: expected,
	}
}
