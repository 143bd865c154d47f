// Package storage implements the ledger on SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"budget/internal/core"
	"budget/internal/ledger"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

var (
	_ ledger.Ledger       = (*SQLiteRepository)(nil)
	_ ledger.TotalsReader = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer; the CLI never needs more.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if v, dirty, err := SchemaVersion(dbPath); err != nil {
		db.Close()
		return nil, err
	} else if dirty {
		db.Close()
		return nil, fmt.Errorf("%s: schema version %d is dirty, a previous migration failed part way", dbPath, v)
	}
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Append implements ledger.RecordWriter
func (r *SQLiteRepository) Append(ctx context.Context, rec core.Record) (string, error) {
	if err := rec.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO records (date, amount_cents, category, note) VALUES (?, ?, ?, ?)`,
		rec.Date.String(), rec.Amount.Cents, rec.Category, rec.Note)
	if err != nil {
		return "", fmt.Errorf("insert record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("last insert id: %w", err)
	}

	slog.DebugContext(ctx, "Record saved to SQLite",
		"id", id,
		"category", rec.Category,
		"amount_cents", rec.Amount.Cents)

	return strconv.FormatInt(id, 10), nil
}

// ListRecords implements ledger.RecordLister
func (r *SQLiteRepository) ListRecords(ctx context.Context) ([]core.Record, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT date, amount_cents, category, note FROM records ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []core.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

// DeleteLast implements ledger.LastDeleter
func (r *SQLiteRepository) DeleteLast(ctx context.Context) (core.Record, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Record{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	row := tx.QueryRowContext(ctx,
		`SELECT id, date, amount_cents, category, note FROM records ORDER BY id DESC LIMIT 1`)
	var (
		id    int64
		date  string
		cents int64
		rec   core.Record
	)
	if err := row.Scan(&id, &date, &cents, &rec.Category, &rec.Note); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Record{}, ledger.ErrNoRecords
		}
		return core.Record{}, fmt.Errorf("select last record: %w", err)
	}
	if rec.Date, err = core.ParseDate(date); err != nil {
		return core.Record{}, fmt.Errorf("record %d: %w", id, err)
	}
	rec.Amount = core.Money{Cents: cents}

	if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, id); err != nil {
		return core.Record{}, fmt.Errorf("delete record %d: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return core.Record{}, fmt.Errorf("commit: %w", err)
	}

	slog.DebugContext(ctx, "Record deleted from SQLite", "id", id)
	return rec, nil
}

// CategoryTotals aggregates in SQL, keeping categories in first-seen order.
func (r *SQLiteRepository) CategoryTotals(ctx context.Context) (core.Summary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT category, SUM(amount_cents), COUNT(*)
		FROM records
		GROUP BY category
		ORDER BY MIN(id)`)
	if err != nil {
		return core.Summary{}, fmt.Errorf("category totals: %w", err)
	}
	defer rows.Close()

	var s core.Summary
	for rows.Next() {
		var (
			ca    core.CategoryAmount
			count int
		)
		if err := rows.Scan(&ca.Name, &ca.Amount.Cents, &count); err != nil {
			return core.Summary{}, fmt.Errorf("scan category total: %w", err)
		}
		s.ByCategory = append(s.ByCategory, ca)
		s.Total = s.Total.Add(ca.Amount)
		s.Count += count
	}
	if err := rows.Err(); err != nil {
		return core.Summary{}, fmt.Errorf("iterate category totals: %w", err)
	}
	return s, nil
}

func scanRecord(rows *sql.Rows) (core.Record, error) {
	var (
		date  string
		cents int64
		rec   core.Record
	)
	if err := rows.Scan(&date, &cents, &rec.Category, &rec.Note); err != nil {
		return core.Record{}, fmt.Errorf("scan record: %w", err)
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Record{}, err
	}
	rec.Date = d
	rec.Amount = core.Money{Cents: cents}
	return rec, nil
}
