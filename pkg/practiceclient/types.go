package practiceclient

import "time"

// Question mirrors the server's question schema.
type Question struct {
	ID                string   `json:"id"`
	Text              string   `json:"text"`
	Type              string   `json:"type"`
	Difficulty        string   `json:"difficulty"`
	ExpectedDuration  int      `json:"expectedDuration"`
	FollowUpQuestions []string `json:"followUpQuestions,omitempty"`
}

// Session mirrors the server's session schema.
type Session struct {
	SessionID  string     `json:"sessionId"`
	UserID     string     `json:"userId"`
	Type       string     `json:"type"`
	Difficulty string     `json:"difficulty"`
	Role       *string    `json:"role,omitempty"`
	Questions  []Question `json:"questions"`
	Responses  []Response `json:"responses"`
	StartTime  time.Time  `json:"startTime"`
	EndTime    *time.Time `json:"endTime,omitempty"`
	Status     string     `json:"status"`
}

// Response is one submitted answer.
type Response struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"sessionId"`
	QuestionID  string    `json:"questionId"`
	Answer      string    `json:"answer"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// GenerateQuestionsRequest is the body of POST /practice/questions.
type GenerateQuestionsRequest struct {
	Type       string `json:"type"`
	Difficulty string `json:"difficulty"`
	Count      int    `json:"count"`
	Role       string `json:"role,omitempty"`
}

// SubmitResponseRequest is the body of POST /practice/response.
type SubmitResponseRequest struct {
	SessionID  string `json:"sessionId"`
	QuestionID string `json:"questionId"`
	Answer     string `json:"answer"`
}
