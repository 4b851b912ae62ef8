package client

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Window is a rest window the timer is counting down, persisted so a
// restarted timer process can resume where it left off.
type Window struct {
	SessionID   uuid.UUID
	ExerciseID  uuid.UUID
	SetID       uuid.UUID
	StartedAt   time.Time
	DurationSec int
}

// StateDB stores the active rest window in a local SQLite file.
type StateDB struct {
	db *sql.DB
}

// OpenStateDB opens (or creates) the SQLite state database at dir/state.db.
func OpenStateDB(dir string) (*StateDB, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state dir %s: %w", dir, err)
	}

	dbPath := filepath.Join(dir, "state.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening state db: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS rest_windows (
		set_id       TEXT PRIMARY KEY,
		session_id   TEXT NOT NULL,
		exercise_id  TEXT NOT NULL,
		started_at   TIMESTAMP NOT NULL,
		duration_sec INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating state table: %w", err)
	}

	return &StateDB{db: db}, nil
}

// SaveWindow records the window being counted down. Only one window is kept;
// starting a new one replaces any stale leftover.
func (s *StateDB) SaveWindow(w Window) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM rest_windows`); err != nil {
		return err
	}
	_, err = tx.Exec(
		`INSERT INTO rest_windows (set_id, session_id, exercise_id, started_at, duration_sec)
		 VALUES (?, ?, ?, ?, ?)`,
		w.SetID.String(), w.SessionID.String(), w.ExerciseID.String(),
		w.StartedAt.UTC().Format(time.RFC3339), w.DurationSec,
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// ActiveWindow returns the persisted window, or ok=false if none exists.
func (s *StateDB) ActiveWindow() (Window, bool, error) {
	var (
		w          Window
		setID      string
		sessionID  string
		exerciseID string
		startedAt  string
	)
	err := s.db.QueryRow(
		`SELECT set_id, session_id, exercise_id, started_at, duration_sec FROM rest_windows LIMIT 1`,
	).Scan(&setID, &sessionID, &exerciseID, &startedAt, &w.DurationSec)
	if errors.Is(err, sql.ErrNoRows) {
		return Window{}, false, nil
	}
	if err != nil {
		return Window{}, false, err
	}

	if w.SetID, err = uuid.Parse(setID); err != nil {
		return Window{}, false, fmt.Errorf("corrupt set id in state db: %w", err)
	}
	if w.SessionID, err = uuid.Parse(sessionID); err != nil {
		return Window{}, false, fmt.Errorf("corrupt session id in state db: %w", err)
	}
	if w.ExerciseID, err = uuid.Parse(exerciseID); err != nil {
		return Window{}, false, fmt.Errorf("corrupt exercise id in state db: %w", err)
	}
	if w.StartedAt, err = time.Parse(time.RFC3339, startedAt); err != nil {
		return Window{}, false, fmt.Errorf("corrupt timestamp in state db: %w", err)
	}
	return w, true, nil
}

// ClearWindow removes the persisted window once the countdown has finished.
func (s *StateDB) ClearWindow(setID uuid.UUID) error {
	_, err := s.db.Exec(`DELETE FROM rest_windows WHERE set_id = ?`, setID.String())
	return err
}

// Close closes the state database.
func (s *StateDB) Close() error {
	return s.db.Close()
}
