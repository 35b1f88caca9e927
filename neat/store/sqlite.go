package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists runs in a SQLite database file.
type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

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

func (s *SQLiteStore) SaveGeneration(ctx context.Context, record GenerationRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO generations (run_id, iteration, best, worst, mean, median, stdev, best_genome, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, iteration) DO UPDATE SET
			best = excluded.best,
			worst = excluded.worst,
			mean = excluded.mean,
			median = excluded.median,
			stdev = excluded.stdev,
			best_genome = excluded.best_genome,
			created_at = excluded.created_at
	`, record.RunID, record.Iteration, record.Best, record.Worst, record.Mean, record.Median, record.Stdev,
		record.BestGenome, record.CreatedAt.UnixNano())
	return err
}

func (s *SQLiteStore) ListGenerations(ctx context.Context, runID string) ([]GenerationRecord, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT iteration, best, worst, mean, median, stdev, best_genome, created_at
		FROM generations WHERE run_id = ? ORDER BY iteration
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []GenerationRecord
	for rows.Next() {
		r := GenerationRecord{RunID: runID}
		var createdAt int64
		if err := rows.Scan(&r.Iteration, &r.Best, &r.Worst, &r.Mean, &r.Median, &r.Stdev, &r.BestGenome, &createdAt); err != nil {
			return nil, fmt.Errorf("scan generation of run %s: %w", runID, err)
		}
		r.CreatedAt = time.Unix(0, createdAt)
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) SaveHallOfFame(ctx context.Context, runID string, entries []GenomeRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM hall_of_fame WHERE run_id = ?`, runID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO runs (run_id) VALUES (?)`, runID); err != nil {
		return err
	}
	for _, e := range entries {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO hall_of_fame (run_id, rank, score, payload) VALUES (?, ?, ?, ?)
		`, runID, e.Rank, e.Score, e.Payload); err != nil {
			return fmt.Errorf("insert hall of fame rank %d: %w", e.Rank, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) GetHallOfFame(ctx context.Context, runID string) ([]GenomeRecord, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, false, err
	}

	var exists int
	err = db.QueryRowContext(ctx, `SELECT 1 FROM runs WHERE run_id = ?`, runID).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT rank, score, payload FROM hall_of_fame WHERE run_id = ? ORDER BY rank
	`, runID)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	entries := []GenomeRecord{}
	for rows.Next() {
		var e GenomeRecord
		if err := rows.Scan(&e.Rank, &e.Score, &e.Payload); err != nil {
			return nil, false, fmt.Errorf("scan hall of fame of run %s: %w", runID, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}
	return entries, true, nil
}

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
		return nil, errNotInitialized
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS generations (
			run_id TEXT NOT NULL,
			iteration INTEGER NOT NULL,
			best REAL NOT NULL,
			worst REAL NOT NULL,
			mean REAL NOT NULL,
			median REAL NOT NULL,
			stdev REAL NOT NULL,
			best_genome BLOB,
			created_at INTEGER NOT NULL,
			PRIMARY KEY (run_id, iteration)
		);
		CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY
		);
		CREATE TABLE IF NOT EXISTS hall_of_fame (
			run_id TEXT NOT NULL,
			rank INTEGER NOT NULL,
			score REAL NOT NULL,
			payload BLOB NOT NULL,
			PRIMARY KEY (run_id, rank)
		);
	`)
	return err
}
