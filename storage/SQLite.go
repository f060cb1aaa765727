package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a Store backed by an SQLite database file
type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

// NewSQLiteStore returns a new SQLiteStore which stores records in the
// database at path. The database is created by Init if needed.
func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

// Init implements Store
func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

// SaveEpisode implements Store
func (s *SQLiteStore) SaveEpisode(ctx context.Context, e Episode) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO episodes (run_id, scenario, episode, agent_id, steps,
			episode_return, event, end_type)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, episode) DO UPDATE SET
			scenario = excluded.scenario,
			agent_id = excluded.agent_id,
			steps = excluded.steps,
			episode_return = excluded.episode_return,
			event = excluded.event,
			end_type = excluded.end_type
	`, e.RunID, e.Scenario, e.Episode, e.AgentID, e.Steps, e.Return, e.Event,
		e.EndType)
	if err != nil {
		return fmt.Errorf("save episode %d of run %s: %w", e.Episode, e.RunID,
			err)
	}
	return nil
}

// Episodes implements Store
func (s *SQLiteStore) Episodes(ctx context.Context, runID string) ([]Episode,
	error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT run_id, scenario, episode, agent_id, steps, episode_return, event,
			end_type
		FROM episodes WHERE run_id = ? ORDER BY episode
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var episodes []Episode
	for rows.Next() {
		var e Episode
		if err := rows.Scan(&e.RunID, &e.Scenario, &e.Episode, &e.AgentID,
			&e.Steps, &e.Return, &e.Event, &e.EndType); err != nil {
			return nil, fmt.Errorf("scan episode of run %s: %w", runID, err)
		}
		episodes = append(episodes, e)
	}
	return episodes, rows.Err()
}

// Runs implements Store
func (s *SQLiteStore) Runs(ctx context.Context) ([]string, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT run_id FROM episodes GROUP BY run_id ORDER BY MIN(rowid)
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		runs = append(runs, id)
	}
	return runs, rows.Err()
}

// Close implements Store
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, ErrNotInitialized
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS episodes (
			run_id TEXT NOT NULL,
			scenario TEXT NOT NULL,
			episode INTEGER NOT NULL,
			agent_id TEXT NOT NULL,
			steps INTEGER NOT NULL,
			episode_return REAL NOT NULL,
			event TEXT NOT NULL,
			end_type TEXT NOT NULL,
			PRIMARY KEY (run_id, episode)
		);
	`)
	return err
}
