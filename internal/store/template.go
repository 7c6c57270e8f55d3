package store

import (
	"database/sql"
	"errors"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/ayusman/signbridge/internal/detector"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// LetterTemplate is the stored centroid of one letter.
type LetterTemplate struct {
	Label     string                 `json:"label"`
	Centroid  detector.FeatureVector `json:"centroid"`
	Samples   int                    `json:"samples"`
	Tolerance float64                `json:"tolerance"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// TemplateRepository provides operations for letter templates.
type TemplateRepository struct {
	db *sql.DB
}

// Templates returns the template repository for this store.
func (s *Store) Templates() *TemplateRepository {
	return &TemplateRepository{db: s.db}
}

// ReplaceAll swaps every stored template for the given set.
func (r *TemplateRepository) ReplaceAll(templates []*LetterTemplate) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM letter_templates`); err != nil {
		return err
	}

	stmt, err := tx.Prepare(
		`INSERT INTO letter_templates (label, centroid, samples, tolerance, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, t := range templates {
		centroid, err := json.Marshal(t.Centroid)
		if err != nil {
			return err
		}
		t.UpdatedAt = now
		if _, err := stmt.Exec(t.Label, string(centroid), t.Samples, t.Tolerance, t.UpdatedAt); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetByLabel retrieves the template for a letter.
func (r *TemplateRepository) GetByLabel(label string) (*LetterTemplate, error) {
	t := &LetterTemplate{}
	var centroid string

	err := r.db.QueryRow(
		`SELECT label, centroid, samples, tolerance, updated_at
		 FROM letter_templates WHERE label = ?`,
		label,
	).Scan(&t.Label, &centroid, &t.Samples, &t.Tolerance, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if err := json.Unmarshal([]byte(centroid), &t.Centroid); err != nil {
		return nil, err
	}
	return t, nil
}

// List returns every template ordered by label.
func (r *TemplateRepository) List() ([]*LetterTemplate, error) {
	rows, err := r.db.Query(
		`SELECT label, centroid, samples, tolerance, updated_at
		 FROM letter_templates ORDER BY label`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []*LetterTemplate
	for rows.Next() {
		t := &LetterTemplate{}
		var centroid string
		if err := rows.Scan(&t.Label, &centroid, &t.Samples, &t.Tolerance, &t.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(centroid), &t.Centroid); err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return templates, nil
}
