package store

import (
	"database/sql"
	"errors"
	"time"
)

// SessionStats counts what happened during a painting session.
type SessionStats struct {
	Frames   int `json:"frames"`
	Strokes  int `json:"strokes"`
	Segments int `json:"segments"`
	Clears   int `json:"clears"`
}

// Session is one run of the painting pipeline.
type Session struct {
	ID        string
	StartedAt time.Time
	EndedAt   *time.Time
	Stats     SessionStats
}

// SessionRepository provides access to painting sessions.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

// Create inserts a new, open session. StartedAt is set to now.
func (r *SessionRepository) Create(sess *Session) error {
	sess.StartedAt = time.Now()
	sess.EndedAt = nil

	_, err := r.db.Exec(
		`INSERT INTO sessions (id, started_at, frames, strokes, segments, clears)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.StartedAt, sess.Stats.Frames, sess.Stats.Strokes, sess.Stats.Segments, sess.Stats.Clears,
	)
	return err
}

// Finish records the final counters of a session and marks it ended.
func (r *SessionRepository) Finish(id string, stats SessionStats) error {
	result, err := r.db.Exec(
		`UPDATE sessions SET ended_at = ?, frames = ?, strokes = ?, segments = ?, clears = ?
		 WHERE id = ?`,
		time.Now(), stats.Frames, stats.Strokes, stats.Segments, stats.Clears, id,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(id string) (*Session, error) {
	row := r.db.QueryRow(
		`SELECT id, started_at, ended_at, frames, strokes, segments, clears
		 FROM sessions WHERE id = ?`,
		id,
	)

	sess, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sess, nil
}

// List returns the most recent sessions first. A limit <= 0 returns all.
func (r *SessionRepository) List(limit int) ([]*Session, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.Query(
		`SELECT id, started_at, ended_at, frames, strokes, segments, clears
		 FROM sessions ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*Session, error) {
	sess := &Session{}
	var ended sql.NullTime

	err := row.Scan(&sess.ID, &sess.StartedAt, &ended,
		&sess.Stats.Frames, &sess.Stats.Strokes, &sess.Stats.Segments, &sess.Stats.Clears)
	if err != nil {
		return nil, err
	}

	if ended.Valid {
		t := ended.Time
		sess.EndedAt = &t
	}
	return sess, nil
}
