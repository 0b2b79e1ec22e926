package progress

import (
	"testing"
	"time"

	"github.com/usmle-prep/backend/internal/models"
)

var now = time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)

func TestRecordAnswerFirstAttempt(t *testing.T) {
	rec := NewRecord()
	rec.RecordAnswer("q1", true, now)

	if !rec.Attempted["q1"] {
		t.Error("q1 should be in attempted")
	}
	if !rec.Correct["q1"] {
		t.Error("q1 should be in correct")
	}
	if rec.Incorrect["q1"] {
		t.Error("q1 should not be in incorrect")
	}

	stats := rec.Stats["q1"]
	if stats.Attempts != 1 || stats.Correct != 1 || stats.Incorrect != 0 {
		t.Errorf("stats = %+v, want attempts=1 correct=1 incorrect=0", stats)
	}
	if stats.LastSeen != "2026-03-14T10:30:00Z" {
		t.Errorf("LastSeen = %q, want RFC 3339 timestamp", stats.LastSeen)
	}
}

func TestRecordAnswerReplacesMembership(t *testing.T) {
	rec := NewRecord()
	rec.RecordAnswer("q1", true, now)
	rec.RecordAnswer("q1", false, now.Add(time.Minute))

	if rec.Correct["q1"] {
		t.Error("q1 should have left correct after wrong re-answer")
	}
	if !rec.Incorrect["q1"] {
		t.Error("q1 should be in incorrect")
	}
	if !rec.Attempted["q1"] {
		t.Error("q1 should stay in attempted")
	}

	stats := rec.Stats["q1"]
	if stats.Attempts != 2 {
		t.Errorf("attempts = %d, want 2", stats.Attempts)
	}
	if stats.Correct != 1 || stats.Incorrect != 1 {
		t.Errorf("stats = %+v, want correct=1 incorrect=1", stats)
	}
}

func TestRecordAnswerInvariants(t *testing.T) {
	rec := NewRecord()
	rec.RecordAnswer("q1", true, now)
	rec.RecordAnswer("q2", false, now)
	rec.RecordAnswer("q1", false, now)
	rec.RecordAnswer("q2", true, now)

	for _, qid := range []string{"q1", "q2"} {
		if rec.Correct[qid] && rec.Incorrect[qid] {
			t.Errorf("%s is in both correct and incorrect", qid)
		}
		if (rec.Correct[qid] || rec.Incorrect[qid]) && !rec.Attempted[qid] {
			t.Errorf("%s is scored but not attempted", qid)
		}
	}
}

func TestSetMarkedIdempotent(t *testing.T) {
	rec := NewRecord()
	rec.SetMarked("q1", true)
	rec.SetMarked("q1", true)

	if !rec.Marked["q1"] {
		t.Error("q1 should be marked after marking twice")
	}
	if len(rec.Marked) != 1 {
		t.Errorf("marked set has %d entries, want 1", len(rec.Marked))
	}

	rec.SetMarked("q1", false)
	if rec.Marked["q1"] {
		t.Error("q1 should be unmarked")
	}
}

func TestSetConfidenceLastValueWins(t *testing.T) {
	rec := NewRecord()
	rec.SetConfidence("q1", models.ConfidenceLow)
	rec.SetConfidence("q1", models.ConfidenceHigh)

	if rec.Confidence["q1"] != models.ConfidenceHigh {
		t.Errorf("confidence = %q, want high", rec.Confidence["q1"])
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	rec := NewRecord()
	rec.RecordAnswer("q2", false, now)
	rec.RecordAnswer("q1", true, now)
	rec.SetMarked("q3", true)
	rec.SetConfidence("q1", models.ConfidenceMedium)

	doc := rec.ToDocument()

	// Lists are sorted for deterministic storage.
	if len(doc.Attempted) != 2 || doc.Attempted[0] != "q1" || doc.Attempted[1] != "q2" {
		t.Errorf("attempted = %v, want [q1 q2]", doc.Attempted)
	}

	restored := FromDocument(doc)
	if !restored.Correct["q1"] || !restored.Incorrect["q2"] || !restored.Marked["q3"] {
		t.Error("restored record lost set membership")
	}
	if restored.Confidence["q1"] != models.ConfidenceMedium {
		t.Error("restored record lost confidence")
	}
	if restored.Stats["q2"].Incorrect != 1 {
		t.Error("restored record lost stats")
	}
}

func TestFromDocumentCollapsesDuplicates(t *testing.T) {
	doc := models.ProgressDocument{
		Attempted: []string{"q1", "q1", "q2"},
		Marked:    []string{"q1", "q1"},
	}
	rec := FromDocument(doc)

	if len(rec.Attempted) != 2 {
		t.Errorf("attempted set has %d entries, want 2", len(rec.Attempted))
	}
	if len(rec.Marked) != 1 {
		t.Errorf("marked set has %d entries, want 1", len(rec.Marked))
	}
}
