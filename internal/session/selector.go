package session

import (
	"errors"
	"math/rand"

	"github.com/usmle-prep/backend/internal/catalog"
	"github.com/usmle-prep/backend/internal/models"
	"github.com/usmle-prep/backend/internal/progress"
)

// ErrInsufficientPool means the qualifying pool cannot satisfy the requested
// question count. Recoverable: the caller's existing session is untouched.
var ErrInsufficientPool = errors.New("not enough questions match the selected filters")

var ErrInvalidCount = errors.New("question count must be at least 1")

// Select builds a session's working question list: restrict the catalog by
// system, apply status filters (OR across active filters), then draw count
// questions uniformly without replacement. Each drawn question is a clone
// with independently shuffled options, so shuffling never touches the shared
// catalog. Pure apart from the rng.
func Select(cat *catalog.Catalog, rec *progress.Record, systems []string, filters []models.StatusFilter, count int, rng *rand.Rand) ([]models.Question, error) {
	if count < 1 {
		return nil, ErrInvalidCount
	}

	systemSet := make(map[string]bool, len(systems))
	for _, s := range systems {
		systemSet[s] = true
	}

	var pool []models.Question
	for _, q := range cat.Questions() {
		if len(systemSet) > 0 && !systemSet[q.System] {
			continue
		}
		if qualifies(q.ID, rec, filters) {
			pool = append(pool, q)
		}
	}

	if len(pool) < count {
		return nil, ErrInsufficientPool
	}

	selected := make([]models.Question, 0, count)
	for _, i := range rng.Perm(len(pool))[:count] {
		selected = append(selected, cloneShuffled(pool[i], rng))
	}
	return selected, nil
}

// qualifies applies the status filters with OR semantics: a question passes
// if it satisfies any active filter. No active filters means everything
// passes.
func qualifies(qid string, rec *progress.Record, filters []models.StatusFilter) bool {
	if len(filters) == 0 {
		return true
	}
	for _, f := range filters {
		switch f {
		case models.FilterUnused:
			if !rec.Attempted[qid] {
				return true
			}
		case models.FilterIncorrect:
			if rec.Incorrect[qid] {
				return true
			}
		case models.FilterMarked:
			if rec.Marked[qid] {
				return true
			}
		}
	}
	return false
}

// cloneShuffled returns a working copy with its own shuffled options slice.
// The answer survives by content, not position.
func cloneShuffled(q models.Question, rng *rand.Rand) models.Question {
	options := make([]string, len(q.Options))
	copy(options, q.Options)
	rng.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})
	q.Options = options
	return q
}
