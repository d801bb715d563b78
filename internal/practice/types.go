package practice

import (
	"strings"
	"time"
)

type QuestionType string

const (
	QuestionTypeBehavioral   QuestionType = "behavioral"
	QuestionTypeTechnical    QuestionType = "technical"
	QuestionTypeCoding       QuestionType = "coding"
	QuestionTypeSystemDesign QuestionType = "system-design"
)

var questionTypes = []QuestionType{
	QuestionTypeBehavioral,
	QuestionTypeTechnical,
	QuestionTypeCoding,
	QuestionTypeSystemDesign,
}

func (t QuestionType) IsValid() bool {
	for _, candidate := range questionTypes {
		if t == candidate {
			return true
		}
	}
	return false
}

func ParseQuestionType(value string) (QuestionType, bool) {
	t := QuestionType(strings.ToLower(strings.TrimSpace(value)))
	return t, t.IsValid()
}

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

func (d Difficulty) IsValid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

func ParseDifficulty(value string) (Difficulty, bool) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(value)))
	return d, d.IsValid()
}

type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCompleted SessionStatus = "completed"
)

// Question is immutable once issued to a client.
type Question struct {
	ID                string       `json:"id"`
	Text              string       `json:"text"`
	Type              QuestionType `json:"type"`
	Difficulty        Difficulty   `json:"difficulty"`
	ExpectedDuration  int          `json:"expectedDuration"`
	FollowUpQuestions []string     `json:"followUpQuestions,omitempty"`
}

// Session tracks one practice attempt.
type Session struct {
	SessionID  string        `json:"sessionId"`
	UserID     string        `json:"userId"`
	Type       QuestionType  `json:"type"`
	Difficulty Difficulty    `json:"difficulty"`
	Role       *string       `json:"role,omitempty"`
	Questions  []Question    `json:"questions"`
	Responses  []Response    `json:"responses"`
	StartTime  time.Time     `json:"startTime"`
	EndTime    *time.Time    `json:"endTime,omitempty"`
	Status     SessionStatus `json:"status"`
}

// HasQuestion reports whether questionID was issued in this session.
func (s *Session) HasQuestion(questionID string) bool {
	for _, q := range s.Questions {
		if q.ID == questionID {
			return true
		}
	}
	return false
}

// Response correlates one answer to one question within one session.
type Response struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"sessionId"`
	QuestionID  string    `json:"questionId"`
	Answer      string    `json:"answer"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// GenerateParams is the validated input to GenerateQuestions.
type GenerateParams struct {
	Type       string
	Difficulty string
	Count      int
	Role       string
}

// SubmitParams is the input to SubmitResponse.
type SubmitParams struct {
	SessionID  string
	QuestionID string
	Answer     string
}

// HistoryPage is one page of a user's sessions.
type HistoryPage struct {
	Sessions []Session
	Page     int
	Limit    int
	Total    int
}
