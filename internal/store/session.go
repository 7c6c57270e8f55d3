package store

import (
	"database/sql"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
)

// Session represents a client session stored in the database.
type Session struct {
	ID            string    `json:"id"`
	Token         string    `json:"token"`
	StartedAt     time.Time `json:"started_at"`
	LastActiveAt  time.Time `json:"last_active_at"`
	TotalGestures int       `json:"total_gestures"`
	IsActive      bool      `json:"is_active"`
}

// SessionStats summarizes a session's recent activity.
type SessionStats struct {
	SessionID       string     `json:"session_id"`
	TotalGestures   int        `json:"total_gestures"`
	RecentLetters   []string   `json:"recent_letters"`
	StartedAt       *time.Time `json:"started_at"`
	LastActiveAt    *time.Time `json:"last_active_at"`
	DurationMinutes int        `json:"session_duration_minutes"`
	IsActive        bool       `json:"is_active"`
}

// RecentLetterLimit is the number of letters reported in SessionStats.
const RecentLetterLimit = 20

// SessionRepository provides operations for sessions.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

// Create starts a new session with a random id and token.
func (r *SessionRepository) Create() (*Session, error) {
	now := time.Now().UTC()
	sess := &Session{
		ID:           uuid.New().String(),
		Token:        uuid.New().String(),
		StartedAt:    now,
		LastActiveAt: now,
		IsActive:     true,
	}

	_, err := r.db.Exec(
		`INSERT INTO sessions (id, token, started_at, last_active_at, total_gestures, is_active)
		 VALUES (?, ?, ?, ?, 0, 1)`,
		sess.ID, sess.Token, sess.StartedAt, sess.LastActiveAt,
	)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(id string) (*Session, error) {
	sess := &Session{}
	err := r.db.QueryRow(
		`SELECT id, token, started_at, last_active_at, total_gestures, is_active
		 FROM sessions WHERE id = ?`,
		id,
	).Scan(&sess.ID, &sess.Token, &sess.StartedAt, &sess.LastActiveAt, &sess.TotalGestures, &sess.IsActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sess, nil
}

// End marks a session inactive.
func (r *SessionRepository) End(id string) error {
	result, err := r.db.Exec(`UPDATE sessions SET is_active = 0, last_active_at = ? WHERE id = ?`, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// Stats reports a session's counters and its most recent letters, newest
// first. Unknown sessions yield zero counters rather than ErrNotFound.
func (r *SessionRepository) Stats(id string) (*SessionStats, error) {
	stats := &SessionStats{SessionID: id, RecentLetters: []string{}}

	sess, err := r.GetByID(id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if sess != nil {
		stats.TotalGestures = sess.TotalGestures
		stats.StartedAt = &sess.StartedAt
		stats.LastActiveAt = &sess.LastActiveAt
		stats.IsActive = sess.IsActive
		stats.DurationMinutes = int(math.Round(sess.LastActiveAt.Sub(sess.StartedAt).Minutes()))
	}

	rows, err := r.db.Query(
		`SELECT gesture FROM gesture_logs
		 WHERE session_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		id, RecentLetterLimit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var letter string
		if err := rows.Scan(&letter); err != nil {
			return nil, err
		}
		stats.RecentLetters = append(stats.RecentLetters, letter)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}

// touch makes sure the session row exists and records activity. Sessions
// named by clients without calling Create get a row on first use.
func touch(tx *sql.Tx, id string, at time.Time, gestures int) error {
	_, err := tx.Exec(
		`INSERT INTO sessions (id, token, started_at, last_active_at, total_gestures, is_active)
		 VALUES (?, ?, ?, ?, ?, 1)
		 ON CONFLICT(id) DO UPDATE SET
			last_active_at = excluded.last_active_at,
			total_gestures = sessions.total_gestures + excluded.total_gestures,
			is_active = 1`,
		id, uuid.New().String(), at, at, gestures,
	)
	return err
}
