// Package store persists cleaning-run history in SQLite.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Run is one completed pipeline run.
type Run struct {
	ID            int64     `json:"id"`
	Path          string    `json:"path"`
	Rows          int       `json:"rows"`
	Cols          int       `json:"cols"`
	Threshold     float64   `json:"threshold"`
	CellsReplaced int       `json:"cells_replaced"`
	DurationMS    int64     `json:"duration_ms"`
	StartedAt     time.Time `json:"started_at"`
}

// RunColumn is the per-column statistics snapshot for a run.
type RunColumn struct {
	RunID    int64   `json:"run_id"`
	ColIdx   int     `json:"col_idx"`
	Mean     float64 `json:"mean"`
	Std      float64 `json:"std"`
	Replaced int     `json:"replaced"`
}

// Store wraps the SQLite handle.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the run-history database at path.
func Open(path string) (*Store, error) {
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database failed: %w", err)
	}

	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables failed: %w", err)
	}
	return s, nil
}

func (s *Store) createTables() error {
	query := `
    CREATE TABLE IF NOT EXISTS runs (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        path TEXT NOT NULL,
        rows INTEGER NOT NULL,
        cols INTEGER NOT NULL,
        threshold REAL NOT NULL,
        cells_replaced INTEGER NOT NULL,
        duration_ms INTEGER NOT NULL,
        started_at DATETIME NOT NULL
    );
    CREATE TABLE IF NOT EXISTS run_columns (
        run_id INTEGER NOT NULL,
        col_idx INTEGER NOT NULL,
        mean REAL NOT NULL,
        std REAL NOT NULL,
        replaced INTEGER NOT NULL,
        PRIMARY KEY(run_id, col_idx)
    );
    CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
    `
	_, err := s.db.Exec(query)
	return err
}

// SaveRun inserts a run and its column snapshots in one transaction and
// returns the assigned run id.
func (s *Store) SaveRun(run Run, columns []RunColumn) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO runs (path, rows, cols, threshold, cells_replaced, duration_ms, started_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.Path, run.Rows, run.Cols, run.Threshold, run.CellsReplaced,
		run.DurationMS, run.StartedAt,
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	stmt, err := tx.Prepare(
		`INSERT INTO run_columns (run_id, col_idx, mean, std, replaced)
         VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()
	for _, c := range columns {
		if _, err := stmt.Exec(id, c.ColIdx, c.Mean, c.Std, c.Replaced); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT id, path, rows, cols, threshold, cells_replaced, duration_ms, started_at
         FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Path, &r.Rows, &r.Cols, &r.Threshold,
			&r.CellsReplaced, &r.DurationMS, &r.StartedAt); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RunColumns returns the column snapshots for one run, in column order.
func (s *Store) RunColumns(runID int64) ([]RunColumn, error) {
	rows, err := s.db.Query(
		`SELECT run_id, col_idx, mean, std, replaced
         FROM run_columns WHERE run_id = ? ORDER BY col_idx`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []RunColumn
	for rows.Next() {
		var c RunColumn
		if err := rows.Scan(&c.RunID, &c.ColIdx, &c.Mean, &c.Std, &c.Replaced); err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
