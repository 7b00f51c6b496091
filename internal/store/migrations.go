package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Sessions table - one row per liveness attempt
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			state TEXT NOT NULL,
			outcome TEXT NOT NULL DEFAULT '' CHECK(outcome IN ('', 'captured', 'no_capture')),
			best_score REAL NOT NULL DEFAULT 0,
			started_at DATETIME NOT NULL,
			completed_at DATETIME,
			updated_at DATETIME NOT NULL
		)`,

		// Session events table - state changes, satisfied challenges and errors
		`CREATE TABLE IF NOT EXISTS session_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			type TEXT NOT NULL,
			state TEXT NOT NULL,
			challenge TEXT NOT NULL DEFAULT '',
			message TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL
		)`,

		// Captures table - best frontal JPEG of a completed session
		`CREATE TABLE IF NOT EXISTS captures (
			session_id TEXT PRIMARY KEY REFERENCES sessions(id) ON DELETE CASCADE,
			score REAL NOT NULL,
			captured_at_ms INTEGER NOT NULL,
			image BLOB NOT NULL,
			created_at DATETIME NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_session_events_session_id ON session_events(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
