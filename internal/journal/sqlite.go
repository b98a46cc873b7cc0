package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

const createOutcomesTable = `
CREATE TABLE IF NOT EXISTS outcomes (
    id          TEXT PRIMARY KEY,
    state       TEXT NOT NULL,
    output      TEXT,
    error       TEXT,
    duration_ms INTEGER NOT NULL,
    started_at  DATETIME,
    finished_at DATETIME,
    created_at  DATETIME NOT NULL
)`

// Compile-time interface satisfaction check.
var _ Journal = (*SQLiteJournal)(nil)

// SQLiteJournal implements Journal using SQLite.
type SQLiteJournal struct {
	db *sql.DB
}

// NewSQLiteJournal opens the SQLite database at dbPath and runs migrations.
func NewSQLiteJournal(dbPath string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if _, err := db.Exec(createOutcomesTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("create outcomes table: %w", err)
	}

	return &SQLiteJournal{db: db}, nil
}

// Close closes the underlying database connection.
func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

// Append inserts a recorded outcome. Appending the same ID twice replaces the
// earlier row; identical batches re-recorded by an idempotent waiter must not
// error out.
func (j *SQLiteJournal) Append(ctx context.Context, e *Entry) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO outcomes (
			id, state, output, error, duration_ms, started_at, finished_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.State, e.Output, e.Error, e.DurationMS, e.StartedAt, e.FinishedAt, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert outcome: %w", err)
	}
	return nil
}

// Get retrieves an outcome by task ID.
func (j *SQLiteJournal) Get(ctx context.Context, id string) (*Entry, error) {
	e := &Entry{}
	err := j.db.QueryRowContext(ctx,
		`SELECT id, state, output, error, duration_ms, started_at, finished_at, created_at
		FROM outcomes WHERE id = ?`, id,
	).Scan(
		&e.ID, &e.State, &e.Output, &e.Error, &e.DurationMS,
		&e.StartedAt, &e.FinishedAt, &e.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get outcome: %w", err)
	}
	return e, nil
}

// List returns a paginated list of outcomes ordered by created_at DESC, along
// with the total count of all recorded outcomes.
func (j *SQLiteJournal) List(ctx context.Context, limit, offset int) ([]*Entry, int, error) {
	tx, err := j.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, 0, fmt.Errorf("begin read tx: %w", err)
	}
	defer tx.Rollback()

	var total int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM outcomes").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count outcomes: %w", err)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT id, state, output, error, duration_ms, started_at, finished_at, created_at
		FROM outcomes ORDER BY created_at DESC, id LIMIT ? OFFSET ?`, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list outcomes: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e := &Entry{}
		if err := rows.Scan(
			&e.ID, &e.State, &e.Output, &e.Error, &e.DurationMS,
			&e.StartedAt, &e.FinishedAt, &e.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan outcome: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate outcomes: %w", err)
	}

	return entries, total, nil
}

// Stats returns aggregate counts and the average duration across all
// recorded outcomes.
func (j *SQLiteJournal) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{CountByState: make(map[string]int)}

	rows, err := j.db.QueryContext(ctx,
		"SELECT state, COUNT(*) FROM outcomes GROUP BY state",
	)
	if err != nil {
		return nil, fmt.Errorf("count by state: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var state string
		var count int
		if err := rows.Scan(&state, &count); err != nil {
			return nil, fmt.Errorf("scan state count: %w", err)
		}
		stats.CountByState[state] = count
		stats.Total += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate state counts: %w", err)
	}

	err = j.db.QueryRowContext(ctx,
		"SELECT COALESCE(AVG(duration_ms), 0) FROM outcomes",
	).Scan(&stats.AvgDurationMS)
	if err != nil {
		return nil, fmt.Errorf("average duration: %w", err)
	}

	return stats, nil
}
