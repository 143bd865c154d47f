// Package services orchestrates the ledger store and the optional event
// publisher behind the CLI commands.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"budget/internal/amqp"
	"budget/internal/core"
	"budget/internal/ledger"
	blog "budget/internal/log"
)

// EventPublisher announces ledger changes. *amqp.Client implements it.
type EventPublisher interface {
	Publish(ctx context.Context, kind amqp.EventKind, r core.Record) error
}

// LedgerService is the single entry point used by the commands.
type LedgerService struct {
	store     ledger.Ledger
	publisher EventPublisher
	now       func() time.Time
}

func NewLedgerService(store ledger.Ledger, publisher EventPublisher) *LedgerService {
	return &LedgerService{
		store:     store,
		publisher: publisher,
		now:       time.Now,
	}
}

// Add parses the amount, stamps today's date and appends the record.
func (s *LedgerService) Add(ctx context.Context, amount, category, note string) (core.Record, error) {
	money, err := core.ParseAmount(amount)
	if err != nil {
		return core.Record{}, fmt.Errorf("amount %q: %w", amount, err)
	}
	rec := core.Record{
		Date:     core.Today(s.now()),
		Amount:   money,
		Category: category,
		Note:     note,
	}
	ref, err := s.store.Append(ctx, rec)
	if err != nil {
		return core.Record{}, fmt.Errorf("save record: %w", err)
	}
	fields := blog.NewFields().WithComponent(blog.ComponentLedger).WithOperation(blog.OpAdd).WithRecord(rec)
	fields[blog.FieldRef] = ref
	slog.InfoContext(ctx, "Record added", fields.ToSlice()...)

	s.publish(ctx, amqp.RecordAdded, rec)
	return rec, nil
}

func (s *LedgerService) List(ctx context.Context) ([]core.Record, error) {
	recs, err := s.store.ListRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return recs, nil
}

// Rows returns the ledger as text rows for display. Stores that can read rows
// without decoding them do so, so one malformed amount does not hide the rest
// of the ledger.
func (s *LedgerService) Rows(ctx context.Context) ([][]string, error) {
	if rl, ok := s.store.(ledger.RowLister); ok {
		rows, err := rl.ListRows(ctx)
		if err != nil {
			return nil, fmt.Errorf("list rows: %w", err)
		}
		return rows, nil
	}
	recs, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([][]string, len(recs))
	for i, r := range recs {
		rows[i] = ledger.EncodeRow(r)
	}
	return rows, nil
}

// Summary totals the ledger, letting the store aggregate when it can.
func (s *LedgerService) Summary(ctx context.Context) (core.Summary, error) {
	if tr, ok := s.store.(ledger.TotalsReader); ok {
		sum, err := tr.CategoryTotals(ctx)
		if err != nil {
			return core.Summary{}, fmt.Errorf("category totals: %w", err)
		}
		return sum, nil
	}
	recs, err := s.List(ctx)
	if err != nil {
		return core.Summary{}, err
	}
	return core.Summarize(recs), nil
}

// DeleteLast removes the most recent record. It returns ledger.ErrNoRecords
// when the ledger is empty.
func (s *LedgerService) DeleteLast(ctx context.Context) (core.Record, error) {
	rec, err := s.store.DeleteLast(ctx)
	if err != nil {
		if errors.Is(err, ledger.ErrNoRecords) {
			return core.Record{}, err
		}
		return core.Record{}, fmt.Errorf("delete last record: %w", err)
	}
	slog.InfoContext(ctx, "Last record deleted",
		blog.NewFields().WithComponent(blog.ComponentLedger).WithOperation(blog.OpDelete).WithRecord(rec).ToSlice()...)

	s.publish(ctx, amqp.RecordDeleted, rec)
	return rec, nil
}

// publish never fails the caller: the local write already succeeded.
func (s *LedgerService) publish(ctx context.Context, kind amqp.EventKind, rec core.Record) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, kind, rec); err != nil {
		fields := blog.NewFields().WithComponent(blog.ComponentAMQP).WithError(err).WithRecord(rec)
		fields[blog.FieldEventKind] = string(kind)
		slog.ErrorContext(ctx, "Failed to publish ledger event", fields.ToSlice()...)
	}
}
