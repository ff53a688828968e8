// Package storage provides SQLite implementation of the Storage interface.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/stemmaflat/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		command TEXT NOT NULL,
		timestamp TEXT,
		output_dir TEXT,
		files TEXT,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP,
		sections INTEGER NOT NULL DEFAULT 0,
		warnings INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);

	CREATE TABLE IF NOT EXISTS run_warnings (
		run_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		kind TEXT NOT NULL,
		section_id TEXT,
		annotation_id TEXT,
		detail TEXT,
		PRIMARY KEY (run_id, seq),
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_run_warnings_kind ON run_warnings(kind);
	`
	_, err := db.Exec(schema)
	return err
}

// SaveReport inserts a run and its warnings in one transaction. A report
// without a RunID is given one.
func (s *SQLiteStorage) SaveReport(ctx context.Context, report *models.Report) error {
	if report.RunID == "" {
		report.RunID = uuid.New().String()
	}
	if report.Started.IsZero() {
		report.Started = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, command, timestamp, output_dir, files, started_at, finished_at, sections, warnings)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		report.RunID, report.Command, report.Timestamp, report.OutputDir, strings.Join(report.Files, "\n"),
		report.Started, report.Finished, report.Sections, len(report.Warnings),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO run_warnings (run_id, seq, kind, section_id, annotation_id, detail)
		 VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, w := range report.Warnings {
		if _, err := stmt.ExecContext(ctx, report.RunID, i, string(w.Kind), w.SectionID, w.AnnotationID, w.Detail); err != nil {
			return fmt.Errorf("failed to insert warning: %w", err)
		}
	}
	return tx.Commit()
}

// GetReport returns a run with its warnings in recorded order.
func (s *SQLiteStorage) GetReport(ctx context.Context, runID string) (*models.Report, error) {
	var (
		r        models.Report
		files    string
		finished sql.NullTime
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, command, timestamp, output_dir, files, started_at, finished_at, sections
		 FROM runs WHERE id = ?`, runID,
	).Scan(&r.RunID, &r.Command, &r.Timestamp, &r.OutputDir, &files, &r.Started, &finished, &r.Sections)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, err
	}
	if finished.Valid {
		r.Finished = finished.Time
	}
	if files != "" {
		r.Files = strings.Split(files, "\n")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, section_id, annotation_id, detail
		 FROM run_warnings WHERE run_id = ? ORDER BY seq`, runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	r.Warnings = []models.Warning{}
	for rows.Next() {
		var w models.Warning
		var kind string
		if err := rows.Scan(&kind, &w.SectionID, &w.AnnotationID, &w.Detail); err != nil {
			return nil, err
		}
		w.Kind = models.WarningKind(kind)
		r.Warnings = append(r.Warnings, w)
	}
	return &r, rows.Err()
}

// ListReports returns run summaries, most recent first, with offset and limit.
func (s *SQLiteStorage) ListReports(ctx context.Context, offset, limit int) ([]*RunSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, command, timestamp, output_dir, started_at, finished_at, sections, warnings
		 FROM runs ORDER BY started_at DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*RunSummary
	for rows.Next() {
		var run RunSummary
		var finished sql.NullTime
		if err := rows.Scan(&run.RunID, &run.Command, &run.Timestamp, &run.OutputDir,
			&run.Started, &finished, &run.Sections, &run.Warnings); err != nil {
			return nil, err
		}
		if finished.Valid {
			run.Finished = finished.Time
		}
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}

// CountReports returns the total number of recorded runs.
func (s *SQLiteStorage) CountReports(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
