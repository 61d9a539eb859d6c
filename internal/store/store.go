// Package store persists review audit records in SQLite. Only outcome
// metadata is recorded; document text never touches the database, so request
// processing stays stateless.
package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Open opens the audit database at path, sets connection pragmas and runs
// pending migrations. The pool is capped at one connection; the audit write
// path is low volume and sqlite serializes writers anyway.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA foreign_keys=ON;",
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=5000;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			// Some filesystems refuse WAL; fall back to the default journal.
			if strings.Contains(pragma, "journal_mode") {
				log.Warn().Err(err).Msg("sqlite: WAL mode not enabled")
				continue
			}
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}

	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply audit migrations: %w", err)
	}
	return db, nil
}

// ReviewRecord is one audited review outcome.
type ReviewRecord struct {
	ID             string
	CreatedAt      string
	Status         string
	Reason         string
	Policy         string
	Attempts       int
	AcceptedIssues int
	LintIssues     int
	DiffBytes      int
}

// Review outcome statuses.
const (
	StatusApplied = "applied"
	StatusFailed  = "failed"
)

// Store records review outcomes.
type Store struct {
	db *sql.DB
}

// New creates a store over an open database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// RecordReview inserts one review outcome.
func (s *Store) RecordReview(ctx context.Context, rec ReviewRecord) error {
	if rec.CreatedAt == "" {
		rec.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO reviews(review_id, created_at, status, reason, policy, attempts, accepted_issues, lint_issues, diff_bytes)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.CreatedAt, rec.Status, rec.Reason, rec.Policy, rec.Attempts, rec.AcceptedIssues, rec.LintIssues, rec.DiffBytes)
	if err != nil {
		return fmt.Errorf("insert review record: %w", err)
	}
	return nil
}

// RecentReviews returns up to limit most recent records, newest first.
func (s *Store) RecentReviews(ctx context.Context, limit int) ([]ReviewRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `SELECT review_id, created_at, status, reason, policy, attempts, accepted_issues, lint_issues, diff_bytes
		FROM reviews ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query review records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var recs []ReviewRecord
	for rows.Next() {
		var rec ReviewRecord
		if err := rows.Scan(&rec.ID, &rec.CreatedAt, &rec.Status, &rec.Reason, &rec.Policy,
			&rec.Attempts, &rec.AcceptedIssues, &rec.LintIssues, &rec.DiffBytes); err != nil {
			return nil, fmt.Errorf("scan review record: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review records: %w", err)
	}
	return recs, nil
}
