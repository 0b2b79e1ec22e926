package models

// ── Request Types ────────────────────────────────────────

type StartSessionRequest struct {
	Count   int            `json:"count"`
	Systems []string       `json:"systems,omitempty"`
	Mode    Mode           `json:"mode"`
	Filters []StatusFilter `json:"filters,omitempty"`
}

type SubmitAnswerRequest struct {
	QuestionID string `json:"question_id"`
	Option     string `json:"option"`
}

type ConfidenceRequest struct {
	Level Confidence `json:"level"`
}

type MarkRequest struct {
	Marked bool `json:"marked"`
}

// ── Response Types ────────────────────────────────────────

// SessionQuestionView is the current question as shown to the user. The
// correct answer is never included; it only surfaces through feedback.
type SessionQuestionView struct {
	ID       string   `json:"id"`
	System   string   `json:"system"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Answered bool     `json:"answered"`
	Answer   string   `json:"answer,omitempty"` // the user's prior submission, if any
}

// FeedbackView is returned after an answer is submitted. Explanation is
// populated in reading mode only.
type FeedbackView struct {
	Correct       bool   `json:"correct"`
	CorrectAnswer string `json:"correct_answer,omitempty"`
	Explanation   string `json:"explanation,omitempty"`
	Marked        bool   `json:"marked"`
}

type SessionView struct {
	Mode             Mode                 `json:"mode"`
	Index            int                  `json:"index"`
	Total            int                  `json:"total"`
	ElapsedSeconds   int                  `json:"elapsed_seconds"`
	RemainingSeconds *int                 `json:"remaining_seconds,omitempty"`
	Over             bool                 `json:"over"`
	Question         *SessionQuestionView `json:"question,omitempty"`
	Feedback         *FeedbackView        `json:"feedback,omitempty"`
}

type SummaryView struct {
	Score      int     `json:"score"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}
