// Package ledger defines the ports every record store implements.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"budget/internal/core"
)

// ErrNoRecords is returned by DeleteLast when the ledger holds only its header.
var ErrNoRecords = errors.New("no records")

// Header is the column layout shared by the flat-file and spreadsheet stores.
var Header = []string{"Date", "Amount", "Category", "Note"}

// Ports for outbound adapters.
type (
	RecordWriter interface {
		Append(ctx context.Context, r core.Record) (ref string, err error)
	}

	// RecordLister returns every record in insertion order.
	RecordLister interface {
		ListRecords(ctx context.Context) ([]core.Record, error)
	}

	// LastDeleter removes the most recently appended record and returns it.
	LastDeleter interface {
		DeleteLast(ctx context.Context) (core.Record, error)
	}

	// RowLister returns the stored data rows as text, without decoding, so a
	// listing still works when an amount or date cannot be parsed.
	RowLister interface {
		ListRows(ctx context.Context) ([][]string, error)
	}

	// TotalsReader is implemented by stores that can aggregate natively.
	TotalsReader interface {
		CategoryTotals(ctx context.Context) (core.Summary, error)
	}

	Ledger interface {
		RecordWriter
		RecordLister
		LastDeleter
	}
)

// EncodeRow converts a record to its four-column textual form.
func EncodeRow(r core.Record) []string {
	return []string{r.Date.String(), r.Amount.String(), r.Category, r.Note}
}

// DecodeRow parses a four-column row. Columns are read by position so a
// localized header does not matter. Category and note are kept exactly as
// stored; only the date and amount are trimmed for parsing.
func DecodeRow(row []string) (core.Record, error) {
	if len(row) < len(Header) {
		return core.Record{}, fmt.Errorf("expected %d fields, got %d", len(Header), len(row))
	}
	d, err := core.ParseDate(row[0])
	if err != nil {
		return core.Record{}, err
	}
	amt, err := core.ParseAmount(row[1])
	if err != nil {
		return core.Record{}, fmt.Errorf("amount %q: %w", row[1], err)
	}
	return core.Record{
		Date:     d,
		Amount:   amt,
		Category: row[2],
		Note:     row[3],
	}, nil
}
