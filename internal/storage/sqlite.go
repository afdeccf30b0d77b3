package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/embex/internal/models"
)

// SQLiteStorage implements Lexicon using SQLite.
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
	db, err := sql.Open("sqlite3", dbPath)
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
	CREATE TABLE IF NOT EXISTS frequencies (
		word TEXT PRIMARY KEY,
		count INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_frequencies_count ON frequencies(count DESC);

	CREATE TABLE IF NOT EXISTS builds (
		id TEXT PRIMARY KEY,
		model TEXT NOT NULL,
		vocab_size INTEGER NOT NULL,
		dimensions INTEGER NOT NULL,
		documents INTEGER NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_builds_created_at ON builds(created_at);
	`
	_, err := db.Exec(schema)
	return err
}

// Frequencies returns the whole word-frequency table.
func (s *SQLiteStorage) Frequencies(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT word, count FROM frequencies`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	freqs := make(map[string]int)
	for rows.Next() {
		var word string
		var count int
		if err := rows.Scan(&word, &count); err != nil {
			return nil, err
		}
		freqs[word] = count
	}
	return freqs, rows.Err()
}

// Frequency returns the count of word, 0 when unknown.
func (s *SQLiteStorage) Frequency(ctx context.Context, word string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT count FROM frequencies WHERE word = ?`, word).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return count, err
}

// ReplaceFrequencies swaps the whole table for freqs in one transaction.
func (s *SQLiteStorage) ReplaceFrequencies(ctx context.Context, freqs map[string]int) error {
	return s.writeFrequencies(ctx, freqs, true)
}

// UpsertFrequencies sets the counts of the given words, keeping other rows.
func (s *SQLiteStorage) UpsertFrequencies(ctx context.Context, freqs map[string]int) error {
	return s.writeFrequencies(ctx, freqs, false)
}

func (s *SQLiteStorage) writeFrequencies(ctx context.Context, freqs map[string]int, replace bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if replace {
		if _, err := tx.ExecContext(ctx, `DELETE FROM frequencies`); err != nil {
			return fmt.Errorf("clear frequencies: %w", err)
		}
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO frequencies (word, count) VALUES (?, ?)
		 ON CONFLICT(word) DO UPDATE SET count = excluded.count`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for word, count := range freqs {
		if _, err := stmt.ExecContext(ctx, word, count); err != nil {
			return fmt.Errorf("write frequency %q: %w", word, err)
		}
	}
	return tx.Commit()
}

// CountWords returns the number of rows in the frequency table.
func (s *SQLiteStorage) CountWords(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM frequencies`).Scan(&count)
	return count, err
}

// RecordBuild inserts a build record, assigning an ID and timestamp when unset.
func (s *SQLiteStorage) RecordBuild(ctx context.Context, build *models.Build) error {
	if build.ID == "" {
		build.ID = uuid.New().String()
	}
	if build.CreatedAt.IsZero() {
		build.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO builds (id, model, vocab_size, dimensions, documents, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		build.ID, string(build.Model), build.VocabSize, build.Dimensions, build.Documents, build.CreatedAt,
	)
	return err
}

// RecentBuilds returns up to limit builds, newest first.
func (s *SQLiteStorage) RecentBuilds(ctx context.Context, limit int) ([]models.Build, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, model, vocab_size, dimensions, documents, created_at
		 FROM builds ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var builds []models.Build
	for rows.Next() {
		var b models.Build
		var model string
		if err := rows.Scan(&b.ID, &model, &b.VocabSize, &b.Dimensions, &b.Documents, &b.CreatedAt); err != nil {
			return nil, err
		}
		b.Model = models.ModelType(model)
		builds = append(builds, b)
	}
	return builds, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
