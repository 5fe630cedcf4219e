package savers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/samuelfneumann/gridtrack/timestep"
)

// ErrUnknownRun is returned when a run id is not in the store
var ErrUnknownRun = errors.New("unknown run")

// Run describes one encoding run kept in an episode store
type Run struct {
	ID       string
	Created  time.Time
	Label    string
	Episodes int
}

// SQLite tracks episodes and saves them as a new run of an SQLite
// episode store. Each SQLite saver writes a single run, identified by a
// random UUID.
type SQLite struct {
	db       *sql.DB
	runID    string
	label    string
	episodes []timestep.Episode
}

// NewSQLite opens, creating it if needed, the episode store at path. The
// label is stored with the run to describe it.
func NewSQLite(path, label string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("newSQLite: failed to create "+
				"directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("newSQLite: failed to open database: %w",
			err)
	}

	s := &SQLite{db: db, runID: uuid.New().String(), label: label}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			created INTEGER NOT NULL,
			label TEXT NOT NULL DEFAULT '',
			episodes INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS steps (
			run_id TEXT NOT NULL REFERENCES runs(id),
			episode INTEGER NOT NULL,
			step INTEGER NOT NULL,
			cur_state INTEGER NOT NULL,
			action INTEGER NOT NULL,
			next_state INTEGER NOT NULL,
			reward REAL NOT NULL,
			done INTEGER NOT NULL,
			PRIMARY KEY (run_id, episode, step)
		);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("initSchema: failed to create schema: %w", err)
	}
	return nil
}

// RunID returns the id of the run this saver writes
func (s *SQLite) RunID() string {
	return s.runID
}

// Track caches a copy of the episode
func (s *SQLite) Track(ep timestep.Episode) {
	s.episodes = append(s.episodes, append(timestep.Episode(nil), ep...))
}

// Save writes the tracked episodes as a new run
func (s *SQLite) Save() error {
	return s.SaveContext(context.Background())
}

// SaveContext writes the tracked episodes as a new run in a single
// transaction
func (s *SQLite) SaveContext(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, created, label, episodes) VALUES (?, ?, ?, ?)
	`, s.runID, time.Now().UnixMilli(), s.label, len(s.episodes))
	if err != nil {
		return fmt.Errorf("save: run %v: %w", s.runID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO steps (run_id, episode, step, cur_state, action,
			next_state, reward, done)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}
	defer stmt.Close()

	for i, ep := range s.episodes {
		for j, step := range ep {
			_, err := stmt.ExecContext(ctx, s.runID, i, j, step.CurState,
				int(step.Action), step.NextState, step.Reward, step.Done)
			if err != nil {
				return fmt.Errorf("save: episode %d step %d: %w", i, j, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	return nil
}

// Runs lists the runs in the store, oldest first
func (s *SQLite) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created, label, episodes FROM runs ORDER BY created, id
	`)
	if err != nil {
		return nil, fmt.Errorf("runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r       Run
			created int64
		)
		if err := rows.Scan(&r.ID, &created, &r.Label, &r.Episodes); err != nil {
			return nil, fmt.Errorf("runs: %w", err)
		}
		r.Created = time.UnixMilli(created)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// LoadRun returns the episodes of run id in the order they were saved
func (s *SQLite) LoadRun(ctx context.Context, id string) ([]timestep.Episode,
	error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT episodes FROM runs WHERE id = ?`,
		id).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("loadRun %v: %w", id, ErrUnknownRun)
	}
	if err != nil {
		return nil, fmt.Errorf("loadRun %v: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT episode, cur_state, action, next_state, reward, done
		FROM steps WHERE run_id = ? ORDER BY episode, step
	`, id)
	if err != nil {
		return nil, fmt.Errorf("loadRun %v: %w", id, err)
	}
	defer rows.Close()

	episodes := make([]timestep.Episode, count)
	for rows.Next() {
		var (
			i      int
			action int
			step   timestep.Step
		)
		err := rows.Scan(&i, &step.CurState, &action, &step.NextState,
			&step.Reward, &step.Done)
		if err != nil {
			return nil, fmt.Errorf("loadRun %v: %w", id, err)
		}
		if i < 0 || i >= count {
			return nil, fmt.Errorf("loadRun %v: episode %d of %d", id, i,
				count)
		}
		step.Action = timestep.Action(action)
		episodes[i] = append(episodes[i], step)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("loadRun %v: %w", id, err)
	}
	return episodes, nil
}

// Close closes the underlying database
func (s *SQLite) Close() error {
	return s.db.Close()
}
