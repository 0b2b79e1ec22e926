package session

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/usmle-prep/backend/internal/models"
	"github.com/usmle-prep/backend/internal/progress"
)

// fakeStore is an in-memory ProgressStore that counts writes.
type fakeStore struct {
	docs  map[string]models.ProgressDocument
	saves int
	fail  bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{docs: make(map[string]models.ProgressDocument)}
}

func (f *fakeStore) Load(username string) (*progress.Record, error) {
	if f.fail {
		return nil, errors.New("store unavailable")
	}
	doc, ok := f.docs[username]
	if !ok {
		return progress.NewRecord(), nil
	}
	return progress.FromDocument(doc), nil
}

func (f *fakeStore) Save(username string, rec *progress.Record) error {
	if f.fail {
		return errors.New("store unavailable")
	}
	f.docs[username] = rec.ToDocument()
	f.saves++
	return nil
}

func newTestService(t *testing.T, questions int) (*Service, *fakeStore, *fakeClock) {
	t.Helper()
	store := newFakeStore()
	svc := NewService(makeCatalog(t, questions, "Cardio"), store)
	clock := &fakeClock{t: now}
	svc.now = clock.Now
	svc.rng = rand.New(rand.NewSource(7))
	return svc, store, clock
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestServiceReadingFlow(t *testing.T) {
	svc, store, _ := newTestService(t, 5)

	view, err := svc.StartSession("alice", models.StartSessionRequest{
		Count: 3,
		Mode:  models.ModeReading,
	})
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	if view.Total != 3 || view.Index != 0 || view.Question == nil {
		t.Fatalf("unexpected start view: %+v", view)
	}
	if view.RemainingSeconds != nil {
		t.Error("reading session should have no remaining time")
	}

	// Wrong answer: reading mode still reveals the explanation.
	qid := view.Question.ID
	wrong := "opt-a"
	view, err = svc.SubmitAnswer("alice", models.SubmitAnswerRequest{QuestionID: qid, Option: wrong})
	if err != nil {
		t.Fatalf("SubmitAnswer failed: %v", err)
	}
	if view.Feedback == nil {
		t.Fatal("feedback missing after submit")
	}
	if view.Feedback.Correct {
		t.Error("opt-a should be wrong")
	}
	if view.Feedback.Explanation == "" || view.Feedback.CorrectAnswer == "" {
		t.Error("reading mode should reveal explanation and correct answer")
	}

	// Confidence and mark both persist immediately.
	savesBefore := store.saves
	if _, err := svc.SetConfidence("alice", models.ConfidenceLow); err != nil {
		t.Fatalf("SetConfidence failed: %v", err)
	}
	view, err = svc.SetMarked("alice", true)
	if err != nil {
		t.Fatalf("SetMarked failed: %v", err)
	}
	if !view.Feedback.Marked {
		t.Error("feedback should reflect the mark")
	}
	if store.saves != savesBefore+2 {
		t.Errorf("saves = %d, want %d (one per mutation)", store.saves, savesBefore+2)
	}

	doc := store.docs["alice"]
	if len(doc.Incorrect) != 1 || doc.Incorrect[0] != qid {
		t.Errorf("persisted incorrect = %v, want [%s]", doc.Incorrect, qid)
	}
	if len(doc.Marked) != 1 || doc.Confidence[qid] != models.ConfidenceLow {
		t.Error("persisted record lost mark or confidence")
	}

	// Advance to the next question clears feedback.
	view, err = svc.Advance("alice")
	if err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if view.Feedback != nil || view.Index != 1 {
		t.Errorf("unexpected view after advance: %+v", view)
	}
}

func TestServiceTestModeHidesExplanation(t *testing.T) {
	svc, _, _ := newTestService(t, 5)

	view, err := svc.StartSession("bob", models.StartSessionRequest{Count: 2, Mode: models.ModeTest})
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	if view.RemainingSeconds == nil || *view.RemainingSeconds != 180 {
		t.Fatalf("remaining = %v, want 180", view.RemainingSeconds)
	}

	view, err = svc.SubmitAnswer("bob", models.SubmitAnswerRequest{
		QuestionID: view.Question.ID,
		Option:     "opt-b",
	})
	if err != nil {
		t.Fatalf("SubmitAnswer failed: %v", err)
	}
	if view.Feedback == nil {
		t.Fatal("feedback missing after submit")
	}
	if !view.Feedback.Correct {
		t.Error("opt-b should be correct")
	}
	if view.Feedback.Explanation != "" || view.Feedback.CorrectAnswer != "" {
		t.Error("test mode must never reveal explanation or answer")
	}
}

func TestServiceTimeout(t *testing.T) {
	svc, _, clock := newTestService(t, 5)

	view, err := svc.StartSession("carol", models.StartSessionRequest{Count: 3, Mode: models.ModeTest})
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}

	// Answer one question correctly, then run out the 270s budget.
	if _, err := svc.SubmitAnswer("carol", models.SubmitAnswerRequest{
		QuestionID: view.Question.ID,
		Option:     "opt-b",
	}); err != nil {
		t.Fatalf("SubmitAnswer failed: %v", err)
	}
	if _, err := svc.Advance("carol"); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}

	clock.Advance(270 * time.Second)

	view, err = svc.View("carol")
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
	if !view.Over {
		t.Fatal("session should be over after the budget is spent")
	}

	summary, err := svc.Summary("carol")
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if summary.Score != 1 || summary.Total != 3 {
		t.Errorf("summary = %d/%d, want 1/3", summary.Score, summary.Total)
	}
}

func TestServiceSummaryBeforeOver(t *testing.T) {
	svc, _, _ := newTestService(t, 5)

	if _, err := svc.StartSession("dave", models.StartSessionRequest{Count: 2, Mode: models.ModeReading}); err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	if _, err := svc.Summary("dave"); !errors.Is(err, ErrSessionNotOver) {
		t.Errorf("Summary mid-session = %v, want ErrSessionNotOver", err)
	}
}

func TestServiceFailedStartKeepsSession(t *testing.T) {
	svc, _, _ := newTestService(t, 5)

	if _, err := svc.StartSession("erin", models.StartSessionRequest{Count: 3, Mode: models.ModeReading}); err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}

	// Requesting more than the catalog holds fails and must not disturb the
	// running session.
	_, err := svc.StartSession("erin", models.StartSessionRequest{Count: 50, Mode: models.ModeReading})
	if !errors.Is(err, ErrInsufficientPool) {
		t.Fatalf("oversized start = %v, want ErrInsufficientPool", err)
	}

	view, err := svc.View("erin")
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
	if view.Total != 3 {
		t.Errorf("existing session total = %d, want 3", view.Total)
	}
}

func TestServiceNoSession(t *testing.T) {
	svc, _, _ := newTestService(t, 5)

	if _, err := svc.View("frank"); !errors.Is(err, ErrNoSession) {
		t.Errorf("View without session = %v, want ErrNoSession", err)
	}
	if err := svc.Abandon("frank"); !errors.Is(err, ErrNoSession) {
		t.Errorf("Abandon without session = %v, want ErrNoSession", err)
	}
}

func TestServiceAbandonKeepsSubmittedProgress(t *testing.T) {
	svc, store, _ := newTestService(t, 5)

	view, err := svc.StartSession("gina", models.StartSessionRequest{Count: 2, Mode: models.ModeReading})
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	if _, err := svc.SubmitAnswer("gina", models.SubmitAnswerRequest{
		QuestionID: view.Question.ID,
		Option:     "opt-b",
	}); err != nil {
		t.Fatalf("SubmitAnswer failed: %v", err)
	}

	if err := svc.Abandon("gina"); err != nil {
		t.Fatalf("Abandon failed: %v", err)
	}

	doc := store.docs["gina"]
	if len(doc.Attempted) != 1 || len(doc.Correct) != 1 {
		t.Error("submitted progress must survive abandonment")
	}
	if _, err := svc.View("gina"); !errors.Is(err, ErrNoSession) {
		t.Error("abandoned session should be gone")
	}
}

func TestServiceConfidenceRequiresFeedback(t *testing.T) {
	svc, _, _ := newTestService(t, 5)

	if _, err := svc.StartSession("hank", models.StartSessionRequest{Count: 2, Mode: models.ModeReading}); err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	if _, err := svc.SetConfidence("hank", models.ConfidenceHigh); !errors.Is(err, ErrNoFeedback) {
		t.Errorf("SetConfidence before submit = %v, want ErrNoFeedback", err)
	}
	if _, err := svc.SetMarked("hank", true); !errors.Is(err, ErrNoFeedback) {
		t.Errorf("SetMarked before submit = %v, want ErrNoFeedback", err)
	}
}

func TestServiceStats(t *testing.T) {
	svc, _, _ := newTestService(t, 4)

	view, err := svc.StartSession("iris", models.StartSessionRequest{Count: 2, Mode: models.ModeReading})
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	if _, err := svc.SubmitAnswer("iris", models.SubmitAnswerRequest{
		QuestionID: view.Question.ID,
		Option:     "opt-b",
	}); err != nil {
		t.Fatalf("SubmitAnswer failed: %v", err)
	}

	stats, err := svc.Stats("iris")
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalQuestions != 4 || stats.Attempted != 1 || stats.Correct != 1 {
		t.Errorf("stats = %+v, want total=4 attempted=1 correct=1", stats)
	}
	if stats.OverallAccuracy != 100 {
		t.Errorf("accuracy = %f, want 100", stats.OverallAccuracy)
	}
	cardio := stats.Systems["Cardio"]
	if cardio.Total != 4 || cardio.Attempted != 1 || cardio.Accuracy != 100 {
		t.Errorf("cardio stat = %+v", cardio)
	}
}
