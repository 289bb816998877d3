package app

import "lingo-quiz-service/internal/domain"

// Accuracy is correct/total as a percentage rounded half up; 0 when total is 0.
func Accuracy(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return (correct*200 + total) / (2 * total)
}

// StatsFor builds the display view of one aggregate.
func StatsFor(p domain.ChallengeProgress) domain.ChallengeStats {
	return domain.ChallengeStats{
		TotalAttempts:       p.TotalAttempts,
		CorrectAnswers:      p.CorrectAnswers,
		Accuracy:            Accuracy(p.CorrectAnswers, p.TotalAttempts),
		Streak:              p.Streak,
		CompletedChallenges: len(p.CompletedChallenges),
		LastAttemptDate:     p.LastAttemptDate,
	}
}

// BuildReport derives the full progress report for a user.
func BuildReport(u domain.User) domain.ProgressReport {
	return domain.ProgressReport{
		TotalScore: u.TotalScore,
		Level:      u.Level,
		Word:       StatsFor(u.Progress.Word),
		Idiom:      StatsFor(u.Progress.Idiom),
		Verb:       StatsFor(u.Progress.Verb),
	}
}

func snapshotFor(u domain.User, t domain.ChallengeType, correct bool) domain.ProgressSnapshot {
	p := u.Progress.For(t)
	return domain.ProgressSnapshot{
		UserID:        u.ID,
		Correct:       correct,
		ChallengeType: t,
		TotalScore:    u.TotalScore,
		Level:         u.Level,
		Challenge: domain.ChallengeSnapshot{
			TotalAttempts:  p.TotalAttempts,
			CorrectAnswers: p.CorrectAnswers,
			Accuracy:       Accuracy(p.CorrectAnswers, p.TotalAttempts),
			Streak:         p.Streak,
		},
	}
}
