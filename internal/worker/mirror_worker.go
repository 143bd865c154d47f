// Package worker replays ledger events onto a mirror ledger.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"budget/internal/amqp"
	"budget/internal/ledger"
	blog "budget/internal/log"
)

// EventSource delivers ledger events to a handler until ctx ends.
// *amqp.Client implements it.
type EventSource interface {
	Consume(ctx context.Context, handler func(context.Context, *amqp.LedgerEvent) error) error
}

// MirrorWorker keeps a second ledger (usually a spreadsheet) in step with
// the primary one.
type MirrorWorker struct {
	target ledger.Ledger
}

func NewMirrorWorker(target ledger.Ledger) *MirrorWorker {
	return &MirrorWorker{target: target}
}

// Run consumes from src until ctx is cancelled.
func (w *MirrorWorker) Run(ctx context.Context, src EventSource) error {
	err := src.Consume(ctx, w.HandleEvent)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// HandleEvent applies one event. A returned error requeues the event.
func (w *MirrorWorker) HandleEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	rec, err := ev.CoreRecord()
	if err != nil {
		// Malformed payloads will never succeed; drop them.
		slog.ErrorContext(ctx, "Skipping event with bad record", blog.FieldComponent, blog.ComponentWorker, blog.FieldEventID, ev.ID, blog.FieldError, err)
		return nil
	}

	switch ev.Kind {
	case amqp.RecordAdded:
		ref, err := w.target.Append(ctx, rec)
		if err != nil {
			return fmt.Errorf("mirror append: %w", err)
		}
		slog.InfoContext(ctx, "Mirrored added record", blog.FieldComponent, blog.ComponentWorker, blog.FieldEventID, ev.ID, blog.FieldRef, ref)
		return nil

	case amqp.RecordDeleted:
		return w.mirrorDelete(ctx, ev)

	default:
		slog.WarnContext(ctx, "Ignoring unknown event kind", blog.FieldComponent, blog.ComponentWorker, blog.FieldEventID, ev.ID, blog.FieldEventKind, ev.Kind)
		return nil
	}
}

// mirrorDelete removes the mirror's last row only when it is the record the
// primary deleted, so a replayed delete cannot eat an unrelated row.
func (w *MirrorWorker) mirrorDelete(ctx context.Context, ev *amqp.LedgerEvent) error {
	want, _ := ev.CoreRecord()
	recs, err := w.target.ListRecords(ctx)
	if err != nil {
		return fmt.Errorf("mirror list: %w", err)
	}
	if len(recs) == 0 || recs[len(recs)-1] != want {
		fields := blog.NewFields().WithComponent(blog.ComponentWorker).WithRecord(want)
		fields[blog.FieldEventID] = ev.ID
		slog.WarnContext(ctx, "Mirror last row does not match deleted record, skipping", fields.ToSlice()...)
		return nil
	}
	if _, err := w.target.DeleteLast(ctx); err != nil {
		if errors.Is(err, ledger.ErrNoRecords) {
			return nil
		}
		return fmt.Errorf("mirror delete: %w", err)
	}
	slog.InfoContext(ctx, "Mirrored deleted record", blog.FieldComponent, blog.ComponentWorker, blog.FieldEventID, ev.ID)
	return nil
}
