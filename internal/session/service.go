package session

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/usmle-prep/backend/internal/catalog"
	"github.com/usmle-prep/backend/internal/models"
	"github.com/usmle-prep/backend/internal/progress"
)

var ErrNoSession = errors.New("no active session")

// ProgressStore is the persistence boundary for user progress records.
// Satisfied by *progress.Store; tests use an in-memory fake.
type ProgressStore interface {
	Load(username string) (*progress.Record, error)
	Save(username string, rec *progress.Record) error
}

// Service owns one live session and one loaded progress record per user.
// Every user action is a discrete synchronous operation; the mutex serializes
// them within this process. Two simultaneous logins for the same username are
// last-writer-wins at the store — out of scope to prevent.
type Service struct {
	catalog *catalog.Catalog
	store   ProgressStore

	mu    sync.Mutex
	users map[string]*userState
	rng   *rand.Rand
	now   func() time.Time
}

type userState struct {
	record  *progress.Record
	session *Session
}

func NewService(cat *catalog.Catalog, store ProgressStore) *Service {
	return &Service{
		catalog: cat,
		store:   store,
		users:   make(map[string]*userState),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		now:     time.Now,
	}
}

// ensureUser loads the user's progress record on first touch after login.
func (s *Service) ensureUser(username string) (*userState, error) {
	if st, ok := s.users[username]; ok {
		return st, nil
	}
	rec, err := s.store.Load(username)
	if err != nil {
		return nil, err
	}
	st := &userState{record: rec}
	s.users[username] = st
	return st, nil
}

// StartSession selects questions and starts a fresh session. On a selection
// failure the user's existing session, if any, is left untouched.
func (s *Service) StartSession(username string, req models.StartSessionRequest) (*models.SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.ensureUser(username)
	if err != nil {
		return nil, err
	}

	questions, err := Select(s.catalog, st.record, req.Systems, req.Filters, req.Count, s.rng)
	if err != nil {
		return nil, err
	}

	st.session = Start(questions, req.Mode, s.now())
	return s.buildView(st), nil
}

// View reports the current session state. Like every interaction tick it
// first polls the timeout.
func (s *Service) View(username string) (*models.SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.activeSession(username)
	if err != nil {
		return nil, err
	}
	if st.session.CheckTimeout(s.now()) {
		if err := s.store.Save(username, st.record); err != nil {
			return nil, err
		}
	}
	return s.buildView(st), nil
}

// SubmitAnswer scores the answer, applies it to the progress record, and
// persists the record before returning. The in-session answer map is
// overwritten on resubmission; the per-question stats only accumulate.
func (s *Service) SubmitAnswer(username string, req models.SubmitAnswerRequest) (*models.SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.activeSession(username)
	if err != nil {
		return nil, err
	}

	now := s.now()
	correct, err := st.session.Submit(req.QuestionID, req.Option, now)
	if err != nil {
		return nil, err
	}

	st.record.RecordAnswer(req.QuestionID, correct, now)
	if err := s.store.Save(username, st.record); err != nil {
		return nil, err
	}
	return s.buildView(st), nil
}

// SetConfidence stores the user's confidence for the question whose feedback
// is showing. Valid only in the feedback sub-state; no session transition.
func (s *Service) SetConfidence(username string, level models.Confidence) (*models.SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, q, err := s.feedbackQuestion(username)
	if err != nil {
		return nil, err
	}

	st.record.SetConfidence(q.ID, level)
	if err := s.store.Save(username, st.record); err != nil {
		return nil, err
	}
	return s.buildView(st), nil
}

// SetMarked toggles review-mark membership for the question whose feedback is
// showing. Set semantics — repeating a mark is a no-op.
func (s *Service) SetMarked(username string, marked bool) (*models.SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, q, err := s.feedbackQuestion(username)
	if err != nil {
		return nil, err
	}

	st.record.SetMarked(q.ID, marked)
	if err := s.store.Save(username, st.record); err != nil {
		return nil, err
	}
	return s.buildView(st), nil
}

// Advance moves to the next question, or ends the session after the last
// one. Completion triggers a final progress write-back.
func (s *Service) Advance(username string) (*models.SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.activeSession(username)
	if err != nil {
		return nil, err
	}

	if err := st.session.Advance(s.now()); err != nil {
		return nil, err
	}
	if st.session.Over {
		if err := s.store.Save(username, st.record); err != nil {
			return nil, err
		}
	}
	return s.buildView(st), nil
}

// Summary reports the score of a finished session.
func (s *Service) Summary(username string) (*models.SummaryView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.activeSession(username)
	if err != nil {
		return nil, err
	}
	if st.session.CheckTimeout(s.now()) {
		if err := s.store.Save(username, st.record); err != nil {
			return nil, err
		}
	}
	if !st.session.Over {
		return nil, ErrSessionNotOver
	}

	summary := st.session.Summary()
	return &summary, nil
}

// Abandon discards the session. Everything submitted was already persisted;
// only unsubmitted in-flight answers are lost. The record is saved once more
// on the way out, mirroring the logout write-back.
func (s *Service) Abandon(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.users[username]
	if !ok || st.session == nil {
		return ErrNoSession
	}
	st.session = nil
	return s.store.Save(username, st.record)
}

// Progress returns the user's persisted-layout progress document.
func (s *Service) Progress(username string) (*models.ProgressDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.ensureUser(username)
	if err != nil {
		return nil, err
	}
	doc := st.record.ToDocument()
	return &doc, nil
}

// Stats rolls the progress record up against the catalog, overall and per
// system.
func (s *Service) Stats(username string) (*models.ProgressStatsResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.ensureUser(username)
	if err != nil {
		return nil, err
	}
	return buildStats(s.catalog, st.record), nil
}

// ── Internals ────────────────────────────────────────────

func (s *Service) activeSession(username string) (*userState, error) {
	st, err := s.ensureUser(username)
	if err != nil {
		return nil, err
	}
	if st.session == nil {
		return nil, ErrNoSession
	}
	return st, nil
}

// feedbackQuestion resolves the question whose feedback is currently showing,
// polling the timeout first like every other tick.
func (s *Service) feedbackQuestion(username string) (*userState, models.Question, error) {
	st, err := s.activeSession(username)
	if err != nil {
		return nil, models.Question{}, err
	}
	if st.session.CheckTimeout(s.now()) {
		if err := s.store.Save(username, st.record); err != nil {
			return nil, models.Question{}, err
		}
	}
	if st.session.Over {
		return nil, models.Question{}, ErrSessionOver
	}
	if !st.session.ShowFeedback {
		return nil, models.Question{}, ErrNoFeedback
	}
	q, ok := st.session.Current()
	if !ok {
		return nil, models.Question{}, ErrSessionOver
	}
	return st, q, nil
}

func (s *Service) buildView(st *userState) *models.SessionView {
	sess := st.session
	now := s.now()

	view := &models.SessionView{
		Mode:           sess.Mode,
		Index:          sess.Index,
		Total:          len(sess.Questions),
		ElapsedSeconds: int(sess.Elapsed(now).Seconds()),
		Over:           sess.Over,
	}
	if remaining, ok := sess.Remaining(now); ok {
		secs := int(remaining.Seconds())
		view.RemainingSeconds = &secs
	}

	q, ok := sess.Current()
	if !ok {
		return view
	}

	answer, answered := sess.Answers[q.ID]
	view.Question = &models.SessionQuestionView{
		ID:       q.ID,
		System:   q.System,
		Question: q.Question,
		Options:  q.Options,
		Answered: answered,
		Answer:   answer,
	}

	if sess.ShowFeedback && answered {
		feedback := &models.FeedbackView{
			Correct: answer == q.Answer,
			Marked:  st.record.Marked[q.ID],
		}
		// Reading mode reveals the answer and explanation; test mode never does.
		if sess.Mode == models.ModeReading {
			feedback.CorrectAnswer = q.Answer
			feedback.Explanation = q.Explanation
		}
		view.Feedback = feedback
	}

	return view
}

func buildStats(cat *catalog.Catalog, rec *progress.Record) *models.ProgressStatsResponse {
	resp := &models.ProgressStatsResponse{
		TotalQuestions: cat.Len(),
		Attempted:      len(rec.Attempted),
		Correct:        len(rec.Correct),
		Incorrect:      len(rec.Incorrect),
		Marked:         len(rec.Marked),
		Systems:        make(map[string]models.SystemStat),
	}
	if resp.Attempted > 0 {
		resp.OverallAccuracy = float64(resp.Correct) / float64(resp.Attempted) * 100
	}

	for _, q := range cat.Questions() {
		stat := resp.Systems[q.System]
		stat.Total++
		if rec.Attempted[q.ID] {
			stat.Attempted++
		}
		if rec.Correct[q.ID] {
			stat.Correct++
		}
		resp.Systems[q.System] = stat
	}
	for system, stat := range resp.Systems {
		if stat.Attempted > 0 {
			stat.Accuracy = float64(stat.Correct) / float64(stat.Attempted) * 100
			resp.Systems[system] = stat
		}
	}

	return resp
}
