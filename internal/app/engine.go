package app

import (
	"time"

	"lingo-quiz-service/internal/domain"
)

const (
	// PointsPerCorrect is the fixed reward for a correct answer.
	PointsPerCorrect = 10
	// PointsPerLevel is the score needed to advance one level.
	PointsPerLevel = 100
)

// LevelFor derives the user level from the total score.
func LevelFor(totalScore int) int {
	if totalScore < 0 {
		totalScore = 0
	}
	return totalScore/PointsPerLevel + 1
}

// applyAttempt folds one graded attempt into the user's aggregates.
// The attempt timestamp is the "now" used for streak computation.
func applyAttempt(u *domain.User, a domain.Attempt, loc *time.Location) {
	p := u.Progress.For(a.ChallengeType)
	if p == nil {
		return
	}
	now := a.AttemptedAt

	p.TotalAttempts++
	if a.Correct {
		p.CorrectAnswers++
		u.TotalScore += PointsPerCorrect
		p.Streak = nextStreak(p.Streak, p.LastAttemptDate, now, loc)
		p.MarkCompleted(a.ChallengeID)
	} else {
		p.Streak = 0
	}
	p.LastAttemptDate = &now
	u.Level = LevelFor(u.TotalScore)
}

// nextStreak returns the streak after a correct answer at now.
func nextStreak(streak int, last *time.Time, now time.Time, loc *time.Location) int {
	if last == nil {
		return 1
	}
	switch diff := dayDiff(*last, now, loc); {
	case diff == 1:
		return streak + 1
	case diff > 1:
		return 1
	default:
		// Same calendar day, or a clock that moved backwards: today is already credited.
		return streak
	}
}

// dayDiff counts calendar days from a to b in loc.
func dayDiff(a, b time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}
	return int(calendarDay(b, loc).Sub(calendarDay(a, loc)) / (24 * time.Hour))
}

// calendarDay maps t to midnight UTC of its date in loc, so DST never skews the difference.
func calendarDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
