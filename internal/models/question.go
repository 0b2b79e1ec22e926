package models

import "time"

type Mode string

const (
	ModeReading Mode = "reading"
	ModeTest    Mode = "test"
)

var ValidModes = map[Mode]bool{
	ModeReading: true,
	ModeTest:    true,
}

type StatusFilter string

const (
	FilterUnused    StatusFilter = "unused"
	FilterIncorrect StatusFilter = "incorrect"
	FilterMarked    StatusFilter = "marked"
)

var ValidStatusFilters = map[StatusFilter]bool{
	FilterUnused:    true,
	FilterIncorrect: true,
	FilterMarked:    true,
}

type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

var ValidConfidences = map[Confidence]bool{
	ConfidenceLow:    true,
	ConfidenceMedium: true,
	ConfidenceHigh:   true,
}

type DraftStatus string

const (
	DraftPending  DraftStatus = "pending"
	DraftApproved DraftStatus = "approved"
	DraftRejected DraftStatus = "rejected"
)

// ── Core Structs ───────────────────────────────────────

// Question is a catalog entry. Immutable once the catalog is loaded.
type Question struct {
	ID          string   `json:"id"`
	System      string   `json:"system"`
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	Answer      string   `json:"answer"`
	Explanation string   `json:"explanation"`
}

// DraftQuestion is a generated question awaiting review. Drafts never enter
// the live catalog directly; approved drafts are picked up at the next
// process start.
type DraftQuestion struct {
	ID         int64       `json:"id"`
	Question   Question    `json:"question"`
	Status     DraftStatus `json:"status"`
	ModelUsed  string      `json:"model_used,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	ReviewedAt *time.Time  `json:"reviewed_at,omitempty"`
}

// ── Import Types ───────────────────────────────────────

type ImportRequest struct {
	Questions []Question `json:"questions"`
}

type ImportResult struct {
	TotalQuestions    int      `json:"total_questions"`
	ImportedQuestions int      `json:"imported_questions"`
	SkippedQuestions  int      `json:"skipped_questions"`
	Errors            []string `json:"errors"`
}

// ── Generation Types ───────────────────────────────────

type GenerateRequest struct {
	System string `json:"system"`
	Count  int    `json:"count"`
}

type GenerateResponse struct {
	Drafts       []DraftQuestion `json:"drafts"`
	ModelUsed    string          `json:"model_used"`
	PromptTokens int             `json:"prompt_tokens"`
	OutputTokens int             `json:"output_tokens"`
}

type DraftReviewRequest struct {
	Action string `json:"action"` // "approve" or "reject"
}
