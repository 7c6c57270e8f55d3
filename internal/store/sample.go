package store

import (
	"database/sql"
	"time"

	"github.com/ayusman/signbridge/internal/detector"
)

// LetterSample is one feature vector extracted from a labelled image.
type LetterSample struct {
	ID        int64                  `json:"id"`
	Label     string                 `json:"label"`
	Features  detector.FeatureVector `json:"features"`
	Source    string                 `json:"source"`
	CreatedAt time.Time              `json:"created_at"`
}

// SampleRepository provides operations for training samples.
type SampleRepository struct {
	db *sql.DB
}

// Samples returns the sample repository for this store.
func (s *Store) Samples() *SampleRepository {
	return &SampleRepository{db: s.db}
}

// Create inserts multiple samples in a single transaction.
func (r *SampleRepository) Create(samples []*LetterSample) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO letter_samples (label, features, source) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, s := range samples {
		features, err := json.Marshal(s.Features)
		if err != nil {
			return err
		}
		result, err := stmt.Exec(s.Label, string(features), s.Source)
		if err != nil {
			return err
		}
		if s.ID, err = result.LastInsertId(); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// List retrieves every sample ordered by label then insertion.
func (r *SampleRepository) List() ([]*LetterSample, error) {
	return r.query(`SELECT id, label, features, source, created_at FROM letter_samples ORDER BY label, id`)
}

// ListByLabel retrieves all samples for a letter.
func (r *SampleRepository) ListByLabel(label string) ([]*LetterSample, error) {
	return r.query(`SELECT id, label, features, source, created_at FROM letter_samples WHERE label = ? ORDER BY id`, label)
}

// DeleteAll removes every sample.
func (r *SampleRepository) DeleteAll() error {
	_, err := r.db.Exec(`DELETE FROM letter_samples`)
	return err
}

func (r *SampleRepository) query(q string, args ...any) ([]*LetterSample, error) {
	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []*LetterSample
	for rows.Next() {
		s := &LetterSample{}
		var features string
		if err := rows.Scan(&s.ID, &s.Label, &features, &s.Source, &s.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(features), &s.Features); err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return samples, nil
}
