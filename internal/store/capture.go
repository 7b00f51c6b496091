package store

import (
	"database/sql"
	"errors"
	"time"
)

// Capture is the stored best frame of a session.
type Capture struct {
	SessionID    string    `json:"session_id"`
	Score        float64   `json:"score"`
	CapturedAtMs int64     `json:"captured_at_ms"`
	Image        []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// CaptureRepository stores one capture per session.
type CaptureRepository struct {
	db *sql.DB
}

// Captures returns the capture repository for this store.
func (s *Store) Captures() *CaptureRepository {
	return &CaptureRepository{db: s.db}
}

// Save stores c, replacing any capture already held for the session.
func (r *CaptureRepository) Save(c *Capture) error {
	if len(c.Image) == 0 {
		return errors.New("capture has no image")
	}
	c.CreatedAt = time.Now()

	_, err := r.db.Exec(
		`INSERT INTO captures (session_id, score, captured_at_ms, image, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET
		   score = excluded.score,
		   captured_at_ms = excluded.captured_at_ms,
		   image = excluded.image,
		   created_at = excluded.created_at`,
		c.SessionID, c.Score, c.CapturedAtMs, c.Image, c.CreatedAt,
	)
	return err
}

// GetBySessionID retrieves the capture of a session.
func (r *CaptureRepository) GetBySessionID(sessionID string) (*Capture, error) {
	c := &Capture{}

	err := r.db.QueryRow(
		`SELECT session_id, score, captured_at_ms, image, created_at
		 FROM captures WHERE session_id = ?`,
		sessionID,
	).Scan(&c.SessionID, &c.Score, &c.CapturedAtMs, &c.Image, &c.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return c, nil
}
