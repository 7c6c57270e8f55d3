package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Sessions table - one row per client session
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			token TEXT NOT NULL UNIQUE,
			started_at DATETIME NOT NULL,
			last_active_at DATETIME NOT NULL,
			total_gestures INTEGER NOT NULL DEFAULT 0,
			is_active INTEGER NOT NULL DEFAULT 1
		)`,

		// Gesture logs table - one row per stable letter
		`CREATE TABLE IF NOT EXISTS gesture_logs (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			gesture TEXT NOT NULL,
			confidence REAL NOT NULL,
			created_at DATETIME NOT NULL
		)`,

		// Translations table - text produced from fingerspelled letters
		`CREATE TABLE IF NOT EXISTS translations (
			id TEXT PRIMARY KEY,
			session_id TEXT,
			original_text TEXT NOT NULL,
			source_language TEXT NOT NULL DEFAULT 'asl',
			target_language TEXT NOT NULL,
			translated_text TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,

		// Letter templates table - trained centroid per letter
		`CREATE TABLE IF NOT EXISTS letter_templates (
			label TEXT PRIMARY KEY,
			centroid TEXT NOT NULL,
			samples INTEGER NOT NULL DEFAULT 0,
			tolerance REAL NOT NULL DEFAULT 0,
			updated_at DATETIME NOT NULL
		)`,

		// Letter samples table - feature vectors extracted from the training set
		`CREATE TABLE IF NOT EXISTS letter_samples (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			label TEXT NOT NULL,
			features TEXT NOT NULL,
			source TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Indexes for better query performance
		`CREATE INDEX IF NOT EXISTS idx_gesture_logs_session_id ON gesture_logs(session_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_translations_session_id ON translations(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_letter_samples_label ON letter_samples(label)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
