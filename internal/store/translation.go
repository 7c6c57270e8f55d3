package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// DefaultSourceLanguage is used when a translation names no source language.
const DefaultSourceLanguage = "asl"

// Translation is text produced from fingerspelled letters.
type Translation struct {
	ID             string    `json:"id"`
	SessionID      string    `json:"session_id,omitempty"`
	OriginalText   string    `json:"original_text"`
	SourceLanguage string    `json:"source_language"`
	TargetLanguage string    `json:"target_language"`
	TranslatedText string    `json:"translated_text"`
	CreatedAt      time.Time `json:"created_at"`
}

// TranslationRepository provides operations for translations.
type TranslationRepository struct {
	db *sql.DB
}

// Translations returns the translation repository for this store.
func (s *Store) Translations() *TranslationRepository {
	return &TranslationRepository{db: s.db}
}

// Create inserts a translation. ID and CreatedAt are filled in.
func (r *TranslationRepository) Create(t *Translation) error {
	t.ID = uuid.New().String()
	t.CreatedAt = time.Now().UTC()
	if t.SourceLanguage == "" {
		t.SourceLanguage = DefaultSourceLanguage
	}

	var sessionID sql.NullString
	if t.SessionID != "" {
		sessionID = sql.NullString{String: t.SessionID, Valid: true}
	}

	_, err := r.db.Exec(
		`INSERT INTO translations (id, session_id, original_text, source_language, target_language, translated_text, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, sessionID, t.OriginalText, t.SourceLanguage, t.TargetLanguage, t.TranslatedText, t.CreatedAt,
	)
	return err
}

// GetByID retrieves a translation by its ID.
func (r *TranslationRepository) GetByID(id string) (*Translation, error) {
	t := &Translation{}
	var sessionID sql.NullString

	err := r.db.QueryRow(
		`SELECT id, session_id, original_text, source_language, target_language, translated_text, created_at
		 FROM translations WHERE id = ?`,
		id,
	).Scan(&t.ID, &sessionID, &t.OriginalText, &t.SourceLanguage, &t.TargetLanguage, &t.TranslatedText, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	t.SessionID = sessionID.String
	return t, nil
}
