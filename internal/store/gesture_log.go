package store

import (
	"crypto/rand"
	"database/sql"
	"time"

	"github.com/oklog/ulid/v2"
)

// GestureLog is one stable letter reported to a session.
type GestureLog struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	Gesture    string    `json:"gesture"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"created_at"`
}

// GestureLogRepository provides operations for gesture logs.
type GestureLogRepository struct {
	db *sql.DB
}

// GestureLogs returns the gesture log repository for this store.
func (s *Store) GestureLogs() *GestureLogRepository {
	return &GestureLogRepository{db: s.db}
}

func newULID(t time.Time) (string, error) {
	id, err := ulid.New(ulid.Timestamp(t), ulid.Monotonic(rand.Reader, 0))
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Record stores a stable letter and bumps the session counters in one
// transaction. ID and CreatedAt are filled in.
func (r *GestureLogRepository) Record(l *GestureLog) error {
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	id, err := newULID(l.CreatedAt)
	if err != nil {
		return err
	}
	l.ID = id

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := touch(tx, l.SessionID, l.CreatedAt, 1); err != nil {
		return err
	}

	_, err = tx.Exec(
		`INSERT INTO gesture_logs (id, session_id, gesture, confidence, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		l.ID, l.SessionID, l.Gesture, l.Confidence, l.CreatedAt,
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// ListBySession returns up to limit logs for a session, newest first.
// A limit <= 0 returns all logs.
func (r *GestureLogRepository) ListBySession(sessionID string, limit int) ([]*GestureLog, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.Query(
		`SELECT id, session_id, gesture, confidence, created_at
		 FROM gesture_logs
		 WHERE session_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		sessionID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*GestureLog
	for rows.Next() {
		l := &GestureLog{}
		if err := rows.Scan(&l.ID, &l.SessionID, &l.Gesture, &l.Confidence, &l.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return logs, nil
}
