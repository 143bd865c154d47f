package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"budget/internal/amqp"
	"budget/internal/core"
	"budget/internal/ledger"
	"budget/internal/ledger/memory"
)

type recordingPublisher struct {
	kinds []amqp.EventKind
	recs  []core.Record
	err   error
}

func (p *recordingPublisher) Publish(_ context.Context, kind amqp.EventKind, r core.Record) error {
	p.kinds = append(p.kinds, kind)
	p.recs = append(p.recs, r)
	return p.err
}

// totalsStore adds native aggregation to the memory store.
type totalsStore struct {
	*memory.Store
	calls int
}

func (s *totalsStore) CategoryTotals(ctx context.Context) (core.Summary, error) {
	s.calls++
	recs, _ := s.ListRecords(ctx)
	return core.Summarize(recs), nil
}

func fixedService(store ledger.Ledger, pub EventPublisher) *LedgerService {
	svc := NewLedgerService(store, pub)
	svc.now = func() time.Time { return time.Date(2025, 8, 15, 10, 0, 0, 0, time.UTC) }
	return svc
}

func TestAddStampsDateAndPublishes(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	svc := fixedService(memory.New(), pub)

	rec, err := svc.Add(ctx, "12,50", "Food", "ramen")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if rec.Date.String() != "2025-08-15" || rec.Amount.Cents != 1250 {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if len(pub.kinds) != 1 || pub.kinds[0] != amqp.RecordAdded || pub.recs[0] != rec {
		t.Fatalf("unexpected events: %v %v", pub.kinds, pub.recs)
	}
}

func TestAddRejectsBadAmount(t *testing.T) {
	pub := &recordingPublisher{}
	svc := fixedService(memory.New(), pub)
	if _, err := svc.Add(context.Background(), "twelve", "Food", ""); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if len(pub.kinds) != 0 {
		t.Fatal("nothing should be published for a rejected record")
	}
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	store := memory.New()
	svc := fixedService(store, &recordingPublisher{err: errors.New("broker down")})
	if _, err := svc.Add(context.Background(), "1", "Misc", ""); err != nil {
		t.Fatalf("add should succeed: %v", err)
	}
	if store.Len() != 1 {
		t.Fatal("record should be stored")
	}
}

func TestDeleteLast(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	svc := fixedService(memory.New(), pub)

	if _, err := svc.DeleteLast(ctx); !errors.Is(err, ledger.ErrNoRecords) {
		t.Fatalf("expected ErrNoRecords, got %v", err)
	}
	added, _ := svc.Add(ctx, "3", "Coffee", "")
	deleted, err := svc.DeleteLast(ctx)
	if err != nil || deleted != added {
		t.Fatalf("delete = %+v, %v", deleted, err)
	}
	if pub.kinds[len(pub.kinds)-1] != amqp.RecordDeleted {
		t.Fatalf("expected delete event, got %v", pub.kinds)
	}
}

func TestSummaryUsesNativeTotals(t *testing.T) {
	ctx := context.Background()
	store := &totalsStore{Store: memory.New()}
	svc := fixedService(store, nil)
	svc.Add(ctx, "2", "A", "") //nolint:errcheck
	svc.Add(ctx, "3", "B", "") //nolint:errcheck
	svc.Add(ctx, "5", "A", "") //nolint:errcheck

	sum, err := svc.Summary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if store.calls != 1 {
		t.Fatalf("expected native totals to be used")
	}
	if sum.Total.Cents != 1000 || sum.ByCategory[0].Name != "A" || sum.ByCategory[0].Amount.Cents != 700 {
		t.Fatalf("unexpected summary: %+v", sum)
	}

	plain := fixedService(memory.New(), nil)
	plain.Add(ctx, "4", "C", "") //nolint:errcheck
	sum, _ = plain.Summary(ctx)
	if sum.Total.Cents != 400 || len(sum.ByCategory) != 1 {
		t.Fatalf("unexpected fallback summary: %+v", sum)
	}
}

func TestRowsEncodesRecordsWithoutRowLister(t *testing.T) {
	ctx := context.Background()
	store := memory.New(core.Record{Date: core.NewDate(2025, 8, 1), Amount: core.Money{Cents: -500}, Category: "Food", Note: "refund"})
	rows, err := fixedService(store, nil).Rows(ctx)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 1 || strings.Join(rows[0], ",") != "2025-08-01,-5.00,Food,refund" {
		t.Fatalf("unexpected rows: %q", rows)
	}
}
