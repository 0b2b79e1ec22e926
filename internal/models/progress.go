package models

// QuestionStats accumulates per-question results across all sessions.
// Counters only ever increase; they are never reset.
type QuestionStats struct {
	Attempts  int    `json:"attempts"`
	Correct   int    `json:"correct"`
	Incorrect int    `json:"incorrect"`
	LastSeen  string `json:"last_seen"` // RFC 3339
}

// ProgressDocument is the wire layout of a user's progress record. The set
// fields are serialized as ordered lists; duplicates and order carry no
// meaning. This is the only place sets appear as slices — everything
// in-memory uses real set types.
type ProgressDocument struct {
	Attempted  []string                 `json:"attempted"`
	Correct    []string                 `json:"correct"`
	Incorrect  []string                 `json:"incorrect"`
	Marked     []string                 `json:"marked"`
	Confidence map[string]Confidence    `json:"confidence"`
	Stats      map[string]QuestionStats `json:"stats"`
}

// ── Response Types ────────────────────────────────────────

type ProgressStatsResponse struct {
	TotalQuestions  int                   `json:"total_questions"`
	Attempted       int                   `json:"attempted"`
	Correct         int                   `json:"correct"`
	Incorrect       int                   `json:"incorrect"`
	Marked          int                   `json:"marked"`
	OverallAccuracy float64               `json:"overall_accuracy"`
	Systems         map[string]SystemStat `json:"systems"`
}

type SystemStat struct {
	Total     int     `json:"total"`
	Attempted int     `json:"attempted"`
	Correct   int     `json:"correct"`
	Accuracy  float64 `json:"accuracy"`
}
