// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package catalog keeps a SQLite history of collection runs and the items
// each run's final index included. The catalog is a record of past runs
// only; deduplication never reads it.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/research-agent/pkg/types"
)

// DBFile is the catalog file name inside the output directory.
const DBFile = "runs.db"

const defaultRecent = 20

// Catalog wraps the runs database.
type Catalog struct {
	db *sql.DB
}

// Run is one row of the runs table.
type Run struct {
	ID         string
	Query      string
	Years      string
	Mode       string
	Dir        string
	Sources    []string
	Collected  int
	Unique     int
	Duplicates int
	Saved      int
	Warnings   int
	StartedAt  time.Time
	FinishedAt time.Time
}

// Item is one final-index entry of a run.
type Item struct {
	RunID  string
	Rank   int
	ItemID string
	Title  string
	Year   *int
	DOI    string
	Score  float64
	Source string
}

// NewRunID returns a fresh random run identifier.
func NewRunID() string { return uuid.NewString() }

// Open opens or creates the catalog at path and ensures the schema exists.
func Open(path string) (*Catalog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating catalog directory: %w", err)
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	c := &Catalog{db: db}
	if err := c.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return c, nil
}

// Close releases the database connection.
func (c *Catalog) Close() error {
	return c.db.Close()
}

func (c *Catalog) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			query TEXT NOT NULL,
			years TEXT,
			mode TEXT NOT NULL,
			dir TEXT NOT NULL,
			sources TEXT,
			collected INTEGER NOT NULL,
			uniq INTEGER NOT NULL,
			duplicates INTEGER NOT NULL,
			saved INTEGER NOT NULL,
			warnings INTEGER NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS run_items (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			rank INTEGER NOT NULL,
			item_id TEXT NOT NULL,
			title TEXT,
			year INTEGER,
			doi TEXT,
			score REAL NOT NULL,
			source TEXT,
			PRIMARY KEY (run_id, rank)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_run_items_item ON run_items(item_id)`,
	}
	for _, stmt := range statements {
		if _, err := c.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

// Record stores run and its final-index entries in one transaction.
func (c *Catalog) Record(ctx context.Context, run Run, entries []types.IndexEntry) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, query, years, mode, dir, sources, collected, uniq, duplicates, saved, warnings, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Query, run.Years, run.Mode, run.Dir, strings.Join(run.Sources, ","),
		run.Collected, run.Unique, run.Duplicates, run.Saved, run.Warnings,
		formatTime(run.StartedAt), formatTime(run.FinishedAt))
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", run.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO run_items (run_id, rank, item_id, title, year, doi, score, source) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing item insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range entries {
		var year sql.NullInt64
		if e.Year != nil {
			year = sql.NullInt64{Int64: int64(*e.Year), Valid: true}
		}
		var doi sql.NullString
		if e.DOI != nil {
			doi = sql.NullString{String: *e.DOI, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, run.ID, i+1, e.ID, e.Title, year, doi, e.Score, e.Source); err != nil {
			return fmt.Errorf("inserting item %s: %w", e.ID, err)
		}
	}
	return tx.Commit()
}

// Recent returns up to limit runs, newest first. A non-positive limit uses
// the default of 20.
func (c *Catalog) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = defaultRecent
	}
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, query, years, mode, dir, sources, collected, uniq, duplicates, saved, warnings, started_at, finished_at
		FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r                 Run
			years, sources    sql.NullString
			started, finished string
		)
		if err := rows.Scan(&r.ID, &r.Query, &years, &r.Mode, &r.Dir, &sources,
			&r.Collected, &r.Unique, &r.Duplicates, &r.Saved, &r.Warnings, &started, &finished); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.Years = years.String
		if sources.String != "" {
			r.Sources = strings.Split(sources.String, ",")
		}
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		r.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Items returns the final-index entries of runID in rank order.
func (c *Catalog) Items(ctx context.Context, runID string) ([]Item, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT run_id, rank, item_id, title, year, doi, score, source
		FROM run_items WHERE run_id = ? ORDER BY rank`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying items: %w", err)
	}
	defer rows.Close()
	return scanItems(rows)
}

// SearchTitles returns cataloged items whose title contains term, best
// score first, across all runs.
func (c *Catalog) SearchTitles(ctx context.Context, term string, limit int) ([]Item, error) {
	if limit <= 0 {
		limit = defaultRecent
	}
	rows, err := c.db.QueryContext(ctx,
		`SELECT run_id, rank, item_id, title, year, doi, score, source
		FROM run_items WHERE title LIKE '%' || ? || '%' ORDER BY score DESC, run_id, rank LIMIT ?`,
		term, limit)
	if err != nil {
		return nil, fmt.Errorf("searching titles: %w", err)
	}
	defer rows.Close()
	return scanItems(rows)
}

func scanItems(rows *sql.Rows) ([]Item, error) {
	var items []Item
	for rows.Next() {
		var (
			it     Item
			title  sql.NullString
			year   sql.NullInt64
			doi    sql.NullString
			source sql.NullString
		)
		if err := rows.Scan(&it.RunID, &it.Rank, &it.ItemID, &title, &year, &doi, &it.Score, &source); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		it.Title = title.String
		it.DOI = doi.String
		it.Source = source.String
		if year.Valid {
			y := int(year.Int64)
			it.Year = &y
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
