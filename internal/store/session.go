package store

import (
	"database/sql"
	"errors"
	"time"
)

// Outcome values recorded when a session completes.
const (
	OutcomePending   = ""
	OutcomeCaptured  = "captured"
	OutcomeNoCapture = "no_capture"
)

// Session is a persisted liveness attempt.
type Session struct {
	ID          string     `json:"id"`
	State       string     `json:"state"`
	Outcome     string     `json:"outcome,omitempty"`
	BestScore   float64    `json:"best_score"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Completed reports whether the session reached an outcome.
func (s *Session) Completed() bool {
	return s.Outcome != OutcomePending
}

// SessionRepository provides CRUD operations for sessions.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

const sessionColumns = `id, state, outcome, best_score, started_at, completed_at, updated_at`

func scanSession(row interface{ Scan(...any) error }) (*Session, error) {
	s := &Session{}
	var completedAt sql.NullTime

	if err := row.Scan(&s.ID, &s.State, &s.Outcome, &s.BestScore, &s.StartedAt, &completedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	if completedAt.Valid {
		t := completedAt.Time
		s.CompletedAt = &t
	}
	return s, nil
}

// Create inserts a new session. A zero StartedAt is set to now.
func (r *SessionRepository) Create(s *Session) error {
	now := time.Now()
	if s.StartedAt.IsZero() {
		s.StartedAt = now
	}
	s.UpdatedAt = now

	_, err := r.db.Exec(
		`INSERT INTO sessions (id, state, outcome, best_score, started_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		s.ID, s.State, s.Outcome, s.BestScore, s.StartedAt, s.UpdatedAt,
	)
	return err
}

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(id string) (*Session, error) {
	s, err := scanSession(r.db.QueryRow(
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

// List returns the most recent sessions first. A limit of 0 or less
// returns every session.
func (r *SessionRepository) List(limit int) ([]*Session, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.Query(
		`SELECT `+sessionColumns+` FROM sessions ORDER BY started_at DESC, id LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

// UpdateState records the session's current state.
func (r *SessionRepository) UpdateState(id, state string) error {
	result, err := r.db.Exec(
		`UPDATE sessions SET state = ?, updated_at = ? WHERE id = ?`,
		state, time.Now(), id,
	)
	if err != nil {
		return err
	}
	return expectOneRow(result)
}

// Complete records the outcome of a finished session.
func (r *SessionRepository) Complete(id, outcome string, bestScore float64, at time.Time) error {
	result, err := r.db.Exec(
		`UPDATE sessions SET outcome = ?, best_score = ?, completed_at = ?, updated_at = ?
		 WHERE id = ?`,
		outcome, bestScore, at, time.Now(), id,
	)
	if err != nil {
		return err
	}
	return expectOneRow(result)
}

// Delete removes a session with its events and capture.
func (r *SessionRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectOneRow(result)
}

func expectOneRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
