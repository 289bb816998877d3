package domain

import (
	"strings"
	"time"
)

// ChallengeType is a category of quiz content with its own progress aggregate.
type ChallengeType string

const (
	ChallengeWord  ChallengeType = "word"
	ChallengeIdiom ChallengeType = "idiom"
	ChallengeVerb  ChallengeType = "verb"
)

// ChallengeTypes lists every recognized challenge type in display order.
var ChallengeTypes = []ChallengeType{ChallengeWord, ChallengeIdiom, ChallengeVerb}

// ParseChallengeType validates a raw challenge type.
func ParseChallengeType(raw string) (ChallengeType, error) {
	t := ChallengeType(strings.TrimSpace(raw))
	if !t.Valid() {
		if raw == "" {
			return "", Invalid("challengeType", "is required")
		}
		return "", Invalid("challengeType", "must be one of word, idiom, verb")
	}
	return t, nil
}

func (t ChallengeType) Valid() bool {
	switch t {
	case ChallengeWord, ChallengeIdiom, ChallengeVerb:
		return true
	}
	return false
}

// ChallengeProgress is the per-type aggregate embedded in a user.
type ChallengeProgress struct {
	TotalAttempts       int        `json:"totalAttempts"`
	CorrectAnswers      int        `json:"correctAnswers"`
	Streak              int        `json:"streak"`
	LastAttemptDate     *time.Time `json:"lastAttemptDate,omitempty"`
	CompletedChallenges []string   `json:"completedChallenges"`
}

// HasCompleted reports whether challengeID was ever answered correctly.
func (p *ChallengeProgress) HasCompleted(challengeID string) bool {
	for _, id := range p.CompletedChallenges {
		if id == challengeID {
			return true
		}
	}
	return false
}

// MarkCompleted adds challengeID to the completed set if absent.
func (p *ChallengeProgress) MarkCompleted(challengeID string) bool {
	if p.HasCompleted(challengeID) {
		return false
	}
	p.CompletedChallenges = append(p.CompletedChallenges, challengeID)
	return true
}

func (p ChallengeProgress) clone() ChallengeProgress {
	out := p
	if p.LastAttemptDate != nil {
		last := *p.LastAttemptDate
		out.LastAttemptDate = &last
	}
	out.CompletedChallenges = append([]string(nil), p.CompletedChallenges...)
	return out
}

// ProgressSet holds exactly one aggregate per challenge type.
type ProgressSet struct {
	Word  ChallengeProgress `json:"word"`
	Idiom ChallengeProgress `json:"idiom"`
	Verb  ChallengeProgress `json:"verb"`
}

// For returns the aggregate for t, or nil for an unknown type.
func (s *ProgressSet) For(t ChallengeType) *ChallengeProgress {
	switch t {
	case ChallengeWord:
		return &s.Word
	case ChallengeIdiom:
		return &s.Idiom
	case ChallengeVerb:
		return &s.Verb
	}
	return nil
}

// User is an account with its score and progress aggregates.
type User struct {
	ID           string      `json:"id"`
	Username     string      `json:"username"`
	Email        string      `json:"email"`
	PasswordHash string      `json:"-"`
	CreatedAt    time.Time   `json:"createdAt"`
	TotalScore   int         `json:"totalScore"`
	Level        int         `json:"level"`
	Progress     ProgressSet `json:"-"`
}

// Clone returns a deep copy so callers cannot mutate shared state.
func (u User) Clone() User {
	out := u
	out.Progress = ProgressSet{
		Word:  u.Progress.Word.clone(),
		Idiom: u.Progress.Idiom.clone(),
		Verb:  u.Progress.Verb.clone(),
	}
	return out
}

// PublicUser is the account view returned by auth endpoints.
type PublicUser struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	CreatedAt  time.Time `json:"createdAt"`
	TotalScore int       `json:"totalScore"`
	Level      int       `json:"level"`
}

func (u User) Public() PublicUser {
	return PublicUser{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		CreatedAt:  u.CreatedAt,
		TotalScore: u.TotalScore,
		Level:      u.Level,
	}
}

// Attempt is an immutable record of one graded submission.
type Attempt struct {
	ID            string        `json:"id"`
	UserID        string        `json:"userId"`
	ChallengeID   string        `json:"challengeId"`
	ChallengeType ChallengeType `json:"challengeType"`
	Correct       bool          `json:"correct"`
	UserAnswer    string        `json:"userAnswer"`
	CorrectAnswer string        `json:"correctAnswer"`
	TimeSpent     *int64        `json:"timeSpent,omitempty"` // milliseconds
	AttemptedAt   time.Time     `json:"attemptedAt"`
}

// AttemptSubmission is the raw client input for an attempt.
// Correct is a pointer so a missing flag can be told apart from false.
type AttemptSubmission struct {
	ChallengeID   string `json:"challengeId"`
	ChallengeType string `json:"challengeType"`
	Correct       *bool  `json:"correct"`
	UserAnswer    string `json:"userAnswer"`
	CorrectAnswer string `json:"correctAnswer"`
	TimeSpent     *int64 `json:"timeSpent,omitempty"`
}

// ChallengeSnapshot summarizes one aggregate right after an update.
type ChallengeSnapshot struct {
	TotalAttempts  int `json:"totalAttempts"`
	CorrectAnswers int `json:"correctAnswers"`
	Accuracy       int `json:"accuracy"`
	Streak         int `json:"streak"`
}

// ProgressSnapshot is the result of recording an attempt.
type ProgressSnapshot struct {
	UserID        string            `json:"-"`
	Correct       bool              `json:"correct"`
	ChallengeType ChallengeType     `json:"challengeType"`
	TotalScore    int               `json:"totalScore"`
	Level         int               `json:"level"`
	Challenge     ChallengeSnapshot `json:"challenge"`
}

// ChallengeStats is the display view of one aggregate.
type ChallengeStats struct {
	TotalAttempts       int        `json:"totalAttempts"`
	CorrectAnswers      int        `json:"correctAnswers"`
	Accuracy            int        `json:"accuracy"`
	Streak              int        `json:"streak"`
	CompletedChallenges int        `json:"completedChallenges"`
	LastAttemptDate     *time.Time `json:"lastAttemptDate,omitempty"`
}

// ProgressReport is the full per-user progress view.
type ProgressReport struct {
	TotalScore int            `json:"totalScore"`
	Level      int            `json:"level"`
	Word       ChallengeStats `json:"word"`
	Idiom      ChallengeStats `json:"idiom"`
	Verb       ChallengeStats `json:"verb"`
}

// HistoryQuery filters the attempt log. An empty Type means all types.
type HistoryQuery struct {
	Type  ChallengeType
	Limit int
}

// WeakAreaQuery bounds weak-area aggregation.
type WeakAreaQuery struct {
	MinAttempts int
	Limit       int
}

// WeakArea is a quiz item with a comparatively low success rate.
type WeakArea struct {
	ChallengeID     string        `json:"challengeId"`
	ChallengeType   ChallengeType `json:"challengeType"`
	TotalAttempts   int           `json:"totalAttempts"`
	CorrectAttempts int           `json:"correctAttempts"`
	SuccessRate     float64       `json:"successRate"`
	LastAttempt     time.Time     `json:"lastAttempt"`
}

// ChallengeItem is one quiz question. JSON keys follow the content datasets.
type ChallengeItem struct {
	Prompt  string   `json:"francais"`
	Answer  string   `json:"port"`
	Present []string `json:"present,omitempty"` // verb conjugations
}

// ChallengeSet is the full content list for one challenge type.
type ChallengeSet struct {
	Type  ChallengeType   `json:"type"`
	Items []ChallengeItem `json:"items"`
}
