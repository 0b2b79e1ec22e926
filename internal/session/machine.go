package session

import (
	"errors"
	"time"

	"github.com/usmle-prep/backend/internal/models"
)

// SecondsPerQuestion is the test-mode time budget per selected question.
const SecondsPerQuestion = 90

var (
	ErrSessionOver    = errors.New("session is over")
	ErrSessionNotOver = errors.New("session is not over yet")
	ErrWrongQuestion  = errors.New("submitted question is not the current question")
	ErrInvalidOption  = errors.New("submitted option is not among the question's options")
	ErrNoFeedback     = errors.New("no answer submitted for the current question")
)

// Session is one run through a fixed list of working questions. It is a plain
// value driven by explicit transitions; the service owns the single live
// instance per user. Submitted answers are scored and persisted immediately —
// abandoning a session loses nothing that was submitted.
type Session struct {
	Mode         models.Mode
	Questions    []models.Question
	Index        int
	TimeLimit    time.Duration // zero when untimed
	StartTime    time.Time
	Answers      map[string]string
	ShowFeedback bool
	Over         bool
}

// Start validates nothing itself — the question list must come from Select.
// Test mode gets a global budget of 90 seconds per question; reading mode is
// untimed.
func Start(questions []models.Question, mode models.Mode, now time.Time) *Session {
	var limit time.Duration
	if mode == models.ModeTest {
		limit = time.Duration(SecondsPerQuestion*len(questions)) * time.Second
	}
	return &Session{
		Mode:      mode,
		Questions: questions,
		StartTime: now,
		TimeLimit: limit,
		Answers:   make(map[string]string),
	}
}

// Current returns the question awaiting an answer or showing feedback.
func (s *Session) Current() (models.Question, bool) {
	if s.Over || s.Index >= len(s.Questions) {
		return models.Question{}, false
	}
	return s.Questions[s.Index], true
}

// Timed reports whether the session has a global time budget.
func (s *Session) Timed() bool {
	return s.TimeLimit > 0
}

func (s *Session) Elapsed(now time.Time) time.Duration {
	return now.Sub(s.StartTime)
}

// Remaining returns the time left on a timed session, floored at zero. The
// second result is false for untimed sessions.
func (s *Session) Remaining(now time.Time) (time.Duration, bool) {
	if !s.Timed() {
		return 0, false
	}
	remaining := s.TimeLimit - s.Elapsed(now)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true
}

// CheckTimeout force-ends a timed session whose budget is spent. It is polled
// on every interaction tick rather than scheduled; hitting exactly zero ends
// the session. Any unsubmitted in-flight answer is discarded with the
// transition. Returns true if the session ended on this check.
func (s *Session) CheckTimeout(now time.Time) bool {
	if s.Over {
		return false
	}
	if remaining, ok := s.Remaining(now); ok && remaining == 0 {
		s.Over = true
		s.ShowFeedback = false
		return true
	}
	return false
}

// Submit records an answer for the current question and reports correctness.
// The option must be one of the question's options; anything else is an
// integrity error and mutates nothing. Resubmitting before advancing
// overwrites the prior answer.
func (s *Session) Submit(qid, option string, now time.Time) (bool, error) {
	if s.CheckTimeout(now) || s.Over {
		return false, ErrSessionOver
	}

	q, ok := s.Current()
	if !ok {
		return false, ErrSessionOver
	}
	if q.ID != qid {
		return false, ErrWrongQuestion
	}
	if !containsOption(q.Options, option) {
		return false, ErrInvalidOption
	}

	s.Answers[qid] = option
	s.ShowFeedback = true
	return option == q.Answer, nil
}

// Advance moves past the feedback for the current question. Off the end of
// the list the session becomes terminal.
func (s *Session) Advance(now time.Time) error {
	if s.CheckTimeout(now) || s.Over {
		return ErrSessionOver
	}
	if !s.ShowFeedback {
		return ErrNoFeedback
	}

	s.Index++
	s.ShowFeedback = false
	if s.Index >= len(s.Questions) {
		s.Over = true
	}
	return nil
}

// Summary scores the finished session. Every selected question counts in the
// denominator — unanswered questions (timeout, abandonment) score as wrong.
// An empty session reports 0%, never a division by zero.
func (s *Session) Summary() models.SummaryView {
	score := 0
	for _, q := range s.Questions {
		if answer, ok := s.Answers[q.ID]; ok && answer == q.Answer {
			score++
		}
	}

	total := len(s.Questions)
	percentage := 0.0
	if total > 0 {
		percentage = float64(score) / float64(total) * 100
	}

	return models.SummaryView{Score: score, Total: total, Percentage: percentage}
}

func containsOption(options []string, option string) bool {
	for _, o := range options {
		if o == option {
			return true
		}
	}
	return false
}
