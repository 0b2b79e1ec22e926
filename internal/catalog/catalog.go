package catalog

import (
	"fmt"
	"sort"

	"github.com/usmle-prep/backend/internal/models"
)

// Catalog is the process-wide set of live questions. It is built once at
// startup and never mutated afterwards, so it is shared across users without
// synchronization.
type Catalog struct {
	questions []models.Question
	byID      map[string]models.Question
	systems   []string
}

// New validates the loaded questions and builds the catalog. A catalog with
// zero questions is valid; a question violating an invariant is not.
func New(questions []models.Question) (*Catalog, error) {
	byID := make(map[string]models.Question, len(questions))
	systemSet := make(map[string]bool)

	for i, q := range questions {
		if err := Validate(q); err != nil {
			return nil, fmt.Errorf("question %d (%s): %w", i, q.ID, err)
		}
		if _, dup := byID[q.ID]; dup {
			return nil, fmt.Errorf("duplicate question id %q", q.ID)
		}
		byID[q.ID] = q
		systemSet[q.System] = true
	}

	systems := make([]string, 0, len(systemSet))
	for s := range systemSet {
		systems = append(systems, s)
	}
	sort.Strings(systems)

	return &Catalog{
		questions: questions,
		byID:      byID,
		systems:   systems,
	}, nil
}

// Validate checks a single question against the catalog invariants:
// non-empty id and system, at least two distinct options, and an answer that
// is one of the options.
func Validate(q models.Question) error {
	if q.ID == "" {
		return fmt.Errorf("missing id")
	}
	if q.System == "" {
		return fmt.Errorf("missing system")
	}
	if q.Question == "" {
		return fmt.Errorf("missing question text")
	}
	if len(q.Options) < 2 {
		return fmt.Errorf("needs at least 2 options, got %d", len(q.Options))
	}

	seen := make(map[string]bool, len(q.Options))
	answerFound := false
	for _, opt := range q.Options {
		if seen[opt] {
			return fmt.Errorf("duplicate option %q", opt)
		}
		seen[opt] = true
		if opt == q.Answer {
			answerFound = true
		}
	}
	if !answerFound {
		return fmt.Errorf("answer %q is not among the options", q.Answer)
	}
	return nil
}

// Questions returns the backing slice. Callers must treat it as read-only;
// session working copies are cloned by the selector.
func (c *Catalog) Questions() []models.Question {
	return c.questions
}

func (c *Catalog) ByID(id string) (models.Question, bool) {
	q, ok := c.byID[id]
	return q, ok
}

// Systems returns the sorted distinct system tags present in the catalog.
func (c *Catalog) Systems() []string {
	return c.systems
}

func (c *Catalog) Len() int {
	return len(c.questions)
}
