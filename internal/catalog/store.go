package catalog

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/usmle-prep/backend/internal/models"
)

// Store is the Postgres side of the Question Store. The live catalog reads
// from it exactly once, at process start; imports and draft review write to
// it and surface at the next start.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// LoadCatalog reads every live question. Options are stored as a JSONB array
// on the row, matching the flat record layout of the import format.
func (s *Store) LoadCatalog() ([]models.Question, error) {
	rows, err := s.db.Query(
		`SELECT id, system, question, options, answer, explanation
		 FROM questions ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	defer rows.Close()

	var questions []models.Question
	for rows.Next() {
		var q models.Question
		var optionsRaw []byte
		if err := rows.Scan(&q.ID, &q.System, &q.Question, &optionsRaw, &q.Answer, &q.Explanation); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if err := json.Unmarshal(optionsRaw, &q.Options); err != nil {
			return nil, fmt.Errorf("decode options for %s: %w", q.ID, err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	return questions, nil
}

// ImportQuestions inserts a batch of questions, skipping ids that already
// exist and rows that fail validation. Imported questions become visible at
// the next process start.
func (s *Store) ImportQuestions(questions []models.Question) (*models.ImportResult, error) {
	result := &models.ImportResult{TotalQuestions: len(questions)}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	for _, q := range questions {
		if err := Validate(q); err != nil {
			result.SkippedQuestions++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", q.ID, err))
			continue
		}

		optionsRaw, err := json.Marshal(q.Options)
		if err != nil {
			return nil, fmt.Errorf("encode options for %s: %w", q.ID, err)
		}

		res, err := tx.Exec(
			`INSERT INTO questions (id, system, question, options, answer, explanation)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (id) DO NOTHING`,
			q.ID, q.System, q.Question, optionsRaw, q.Answer, q.Explanation,
		)
		if err != nil {
			return nil, fmt.Errorf("insert question %s: %w", q.ID, err)
		}

		inserted, _ := res.RowsAffected()
		if inserted == 0 {
			result.SkippedQuestions++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: id already exists", q.ID))
			continue
		}
		result.ImportedQuestions++
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit import: %w", err)
	}

	log.Printf("[catalog] imported %d/%d questions (%d skipped)",
		result.ImportedQuestions, result.TotalQuestions, result.SkippedQuestions)
	return result, nil
}

// ── Draft Questions ────────────────────────────────────────

// InsertDraft stores a generated question for review.
func (s *Store) InsertDraft(q models.Question, modelUsed string) (*models.DraftQuestion, error) {
	body, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("encode draft: %w", err)
	}

	draft := &models.DraftQuestion{Question: q, Status: models.DraftPending, ModelUsed: modelUsed}
	err = s.db.QueryRow(
		`INSERT INTO question_drafts (body, status, model_used)
		 VALUES ($1, 'pending', $2)
		 RETURNING id, created_at`,
		body, modelUsed,
	).Scan(&draft.ID, &draft.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert draft: %w", err)
	}
	return draft, nil
}

// ListDrafts returns drafts filtered by status, newest first. A nil status
// returns everything.
func (s *Store) ListDrafts(status *models.DraftStatus, limit, offset int) ([]models.DraftQuestion, error) {
	query := `SELECT id, body, status, COALESCE(model_used, ''), created_at, reviewed_at
	          FROM question_drafts`
	args := []interface{}{}
	if status != nil {
		query += ` WHERE status = $1`
		args = append(args, string(*status))
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d OFFSET %d`, limit, offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list drafts: %w", err)
	}
	defer rows.Close()

	var drafts []models.DraftQuestion
	for rows.Next() {
		var d models.DraftQuestion
		var body []byte
		if err := rows.Scan(&d.ID, &body, &d.Status, &d.ModelUsed, &d.CreatedAt, &d.ReviewedAt); err != nil {
			return nil, fmt.Errorf("scan draft: %w", err)
		}
		if err := json.Unmarshal(body, &d.Question); err != nil {
			return nil, fmt.Errorf("decode draft %d: %w", d.ID, err)
		}
		drafts = append(drafts, d)
	}
	return drafts, rows.Err()
}

// ReviewDraft approves or rejects a pending draft. Approval copies the
// question into the live table in the same transaction; it appears in the
// catalog at the next process start.
func (s *Store) ReviewDraft(draftID int64, approve bool) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin review: %w", err)
	}
	defer tx.Rollback()

	var body []byte
	var status string
	err = tx.QueryRow(
		`SELECT body, status FROM question_drafts WHERE id = $1 FOR UPDATE`,
		draftID,
	).Scan(&body, &status)
	if err == sql.ErrNoRows {
		return ErrDraftNotFound
	}
	if err != nil {
		return fmt.Errorf("load draft %d: %w", draftID, err)
	}
	if status != string(models.DraftPending) {
		return ErrDraftAlreadyReviewed
	}

	newStatus := models.DraftRejected
	if approve {
		newStatus = models.DraftApproved

		var q models.Question
		if err := json.Unmarshal(body, &q); err != nil {
			return fmt.Errorf("decode draft %d: %w", draftID, err)
		}
		optionsRaw, err := json.Marshal(q.Options)
		if err != nil {
			return fmt.Errorf("encode options for draft %d: %w", draftID, err)
		}
		_, err = tx.Exec(
			`INSERT INTO questions (id, system, question, options, answer, explanation)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			q.ID, q.System, q.Question, optionsRaw, q.Answer, q.Explanation,
		)
		if err != nil {
			return fmt.Errorf("promote draft %d: %w", draftID, err)
		}
	}

	_, err = tx.Exec(
		`UPDATE question_drafts SET status = $1, reviewed_at = $2 WHERE id = $3`,
		string(newStatus), time.Now(), draftID,
	)
	if err != nil {
		return fmt.Errorf("update draft %d: %w", draftID, err)
	}

	return tx.Commit()
}
