package progress

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/usmle-prep/backend/internal/models"
)

// Store persists progress records, one JSONB document per username.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Load returns the user's record, or an empty-initialized one if the user has
// no row yet (first login).
func (s *Store) Load(username string) (*Record, error) {
	var raw []byte
	err := s.db.QueryRow(
		`SELECT doc FROM user_progress WHERE username = $1`,
		username,
	).Scan(&raw)

	if err == sql.ErrNoRows {
		return NewRecord(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load progress for %s: %w", username, err)
	}

	var doc models.ProgressDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode progress for %s: %w", username, err)
	}

	return FromDocument(doc), nil
}

// Save upserts the user's record. Callers treat a failure here as fatal to
// the current operation — there is no retry and no partial write.
func (s *Store) Save(username string, rec *Record) error {
	raw, err := json.Marshal(rec.ToDocument())
	if err != nil {
		return fmt.Errorf("encode progress for %s: %w", username, err)
	}

	_, err = s.db.Exec(
		`INSERT INTO user_progress (username, doc, updated_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (username) DO UPDATE SET doc = $2, updated_at = NOW()`,
		username, raw,
	)
	if err != nil {
		return fmt.Errorf("save progress for %s: %w", username, err)
	}
	return nil
}
