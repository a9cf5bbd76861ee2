package output

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/use-agent/langtable/models"
)

// SQLiteSink appends every run and its records to a SQLite database.
type SQLiteSink struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens or creates the database at path, creating parent
// directories as needed.
func OpenSQLite(path string) (*SQLiteSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &SQLiteSink{db: db, path: path}
	if err := s.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

func (s *SQLiteSink) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		index_url TEXT NOT NULL,
		href_prefix TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		links_found INTEGER NOT NULL,
		items_failed INTEGER NOT NULL,
		items_partial INTEGER NOT NULL,
		canceled INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_runs_index_url ON runs(index_url);

	-- One row per record, in visit order
	CREATE TABLE IF NOT EXISTS records (
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		item TEXT NOT NULL,
		english TEXT NOT NULL,
		japanese TEXT NOT NULL,
		vietnamese TEXT NOT NULL,
		PRIMARY KEY (run_id, position)
	);
	`
	_, err := s.db.ExecContext(context.Background(), schema)
	return err
}

// Write stores the run and its records in one transaction.
func (s *SQLiteSink) Write(ctx context.Context, report *models.RunReport) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
	INSERT INTO runs (index_url, href_prefix, started_at, finished_at, links_found, items_failed, items_partial, canceled)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		report.IndexURL,
		report.HrefPrefix,
		report.StartedAt.UTC().Format(time.RFC3339Nano),
		report.FinishedAt.UTC().Format(time.RFC3339Nano),
		report.LinksFound,
		report.ItemsFailed,
		report.ItemsPartial,
		report.Canceled,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get run id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO records (run_id, position, item, english, japanese, vietnamese)
	VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare record insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range report.Records {
		if _, err := stmt.ExecContext(ctx, runID, i, r.Item, r.English, r.Japanese, r.Vietnamese); err != nil {
			return fmt.Errorf("failed to insert record %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// LatestRunID returns the id of the most recently written run, or 0 when
// there is none.
func (s *SQLiteSink) LatestRunID(ctx context.Context) (int64, error) {
	var id sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(id) FROM runs`).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to query latest run: %w", err)
	}
	return id.Int64, nil
}

// Records returns a run's records in visit order.
func (s *SQLiteSink) Records(ctx context.Context, runID int64) ([]models.TranslationRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT item, english, japanese, vietnamese
	FROM records
	WHERE run_id = ?
	ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	records := []models.TranslationRecord{}
	for rows.Next() {
		var r models.TranslationRecord
		if err := rows.Scan(&r.Item, &r.English, &r.Japanese, &r.Vietnamese); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
