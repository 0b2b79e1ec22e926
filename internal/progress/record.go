package progress

import (
	"sort"
	"time"

	"github.com/usmle-prep/backend/internal/models"
)

// Record is a user's in-memory mastery state. The membership fields are real
// sets; they only become ordered lists at the store boundary.
//
// Invariants maintained by RecordAnswer:
//   - a question id is in at most one of Correct/Incorrect
//   - Attempted is a superset of Correct ∪ Incorrect
type Record struct {
	Attempted  map[string]bool
	Correct    map[string]bool
	Incorrect  map[string]bool
	Marked     map[string]bool
	Confidence map[string]models.Confidence
	Stats      map[string]models.QuestionStats
}

// NewRecord returns an empty-initialized record, the state of a user who has
// never answered anything.
func NewRecord() *Record {
	return &Record{
		Attempted:  make(map[string]bool),
		Correct:    make(map[string]bool),
		Incorrect:  make(map[string]bool),
		Marked:     make(map[string]bool),
		Confidence: make(map[string]models.Confidence),
		Stats:      make(map[string]models.QuestionStats),
	}
}

// RecordAnswer applies one scored answer to the record. Re-answering replaces
// correct/incorrect membership; the per-question counters only accumulate.
// The whole update is in-memory and cannot partially apply.
func (r *Record) RecordAnswer(qid string, correct bool, now time.Time) {
	r.Attempted[qid] = true
	delete(r.Correct, qid)
	delete(r.Incorrect, qid)
	if correct {
		r.Correct[qid] = true
	} else {
		r.Incorrect[qid] = true
	}

	stats := r.Stats[qid]
	stats.Attempts++
	if correct {
		stats.Correct++
	} else {
		stats.Incorrect++
	}
	stats.LastSeen = now.UTC().Format(time.RFC3339)
	r.Stats[qid] = stats
}

// SetConfidence stores the user's self-reported confidence. Last value wins;
// there is no default — a question the user never rated has no entry.
func (r *Record) SetConfidence(qid string, level models.Confidence) {
	r.Confidence[qid] = level
}

// SetMarked sets review-mark membership. Set semantics: marking an already
// marked question is a no-op, not a toggle.
func (r *Record) SetMarked(qid string, marked bool) {
	if marked {
		r.Marked[qid] = true
	} else {
		delete(r.Marked, qid)
	}
}

// ToDocument converts the record to its persisted layout. Lists are sorted so
// the stored document is deterministic.
func (r *Record) ToDocument() models.ProgressDocument {
	doc := models.ProgressDocument{
		Attempted:  setToList(r.Attempted),
		Correct:    setToList(r.Correct),
		Incorrect:  setToList(r.Incorrect),
		Marked:     setToList(r.Marked),
		Confidence: make(map[string]models.Confidence, len(r.Confidence)),
		Stats:      make(map[string]models.QuestionStats, len(r.Stats)),
	}
	for qid, level := range r.Confidence {
		doc.Confidence[qid] = level
	}
	for qid, stats := range r.Stats {
		doc.Stats[qid] = stats
	}
	return doc
}

// FromDocument rebuilds a record from its persisted layout. Duplicate ids in
// the lists collapse silently.
func FromDocument(doc models.ProgressDocument) *Record {
	rec := NewRecord()
	for _, qid := range doc.Attempted {
		rec.Attempted[qid] = true
	}
	for _, qid := range doc.Correct {
		rec.Correct[qid] = true
	}
	for _, qid := range doc.Incorrect {
		rec.Incorrect[qid] = true
	}
	for _, qid := range doc.Marked {
		rec.Marked[qid] = true
	}
	for qid, level := range doc.Confidence {
		rec.Confidence[qid] = level
	}
	for qid, stats := range doc.Stats {
		rec.Stats[qid] = stats
	}
	return rec
}

func setToList(set map[string]bool) []string {
	list := make([]string, 0, len(set))
	for id := range set {
		list = append(list, id)
	}
	sort.Strings(list)
	return list
}
