package amqp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"budget/internal/core"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{-1, 1 * time.Second},
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{15, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			if got := exponentialBackoff(tt.attempt); got != tt.expected {
				t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, got, tt.expected)
			}
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"closed", amqp091.ErrClosed, true},
		{"EOF", errors.New("unexpected EOF"), true},
		{"auth", errors.New("Exception (403) Reason: \"username or password not allowed\""), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isConnectionError(tt.err); got != tt.expected {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestDialWithRetryStopsOnPermanentError(t *testing.T) {
	calls := 0
	perm := errors.New("access refused")
	_, err := dialWithRetry(context.Background(), "amqp://x", func(context.Context, string) (*amqp091.Connection, error) {
		calls++
		return nil, perm
	})
	if !errors.Is(err, perm) || calls != 1 {
		t.Fatalf("expected single attempt with permanent error, calls=%d err=%v", calls, err)
	}
}

func TestDialWithRetryHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := dialWithRetry(ctx, "amqp://x", func(context.Context, string) (*amqp091.Connection, error) {
		return nil, errors.New("connection refused")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestContextDialerHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := contextDialer(ctx)("tcp", "127.0.0.1:1")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestContextDialerSetsHandshakeDeadline(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		if c, err := ln.Accept(); err == nil {
			defer c.Close()
			time.Sleep(time.Second)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	conn, err := contextDialer(ctx)("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// The silent peer never answers, so the read must stop at the deadline.
	start := time.Now()
	_, err = conn.Read(make([]byte, 1))
	var ne net.Error
	if !errors.As(err, &ne) || !ne.Timeout() {
		t.Fatalf("expected timeout, got %v", err)
	}
	if time.Since(start) > 900*time.Millisecond {
		t.Fatalf("read outlived the context deadline: %v", time.Since(start))
	}
}

type fakeDelivery struct {
	data    []byte
	acked   bool
	nacked  bool
	requeue bool
}

func (f *fakeDelivery) body() []byte { return f.data }
func (f *fakeDelivery) Ack(bool) error {
	f.acked = true
	return nil
}
func (f *fakeDelivery) Nack(_, requeue bool) error {
	f.nacked, f.requeue = true, requeue
	return nil
}

func TestHandleDelivery(t *testing.T) {
	rec := core.Record{Date: core.NewDate(2025, 2, 3), Amount: core.Money{Cents: 700}, Category: "Gym"}
	body, err := NewLedgerEvent(RecordAdded, rec).ToJSON()
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	t.Run("ack on success", func(t *testing.T) {
		d := &fakeDelivery{data: body}
		var got core.Record
		handleDelivery(ctx, d, func(_ context.Context, ev *LedgerEvent) error {
			got, err = ev.CoreRecord()
			return err
		})
		if !d.acked || got != rec {
			t.Fatalf("acked=%v got=%+v", d.acked, got)
		}
	})

	t.Run("requeue on handler error", func(t *testing.T) {
		d := &fakeDelivery{data: body}
		handleDelivery(ctx, d, func(context.Context, *LedgerEvent) error { return errors.New("sheets down") })
		if !d.nacked || !d.requeue {
			t.Fatalf("expected nack with requeue, got %+v", d)
		}
	})

	t.Run("drop undecodable", func(t *testing.T) {
		d := &fakeDelivery{data: []byte(`{"kind":"record.renamed"}`)}
		handleDelivery(ctx, d, func(context.Context, *LedgerEvent) error {
			t.Fatal("handler must not run")
			return nil
		})
		if !d.nacked || d.requeue {
			t.Fatalf("expected nack without requeue, got %+v", d)
		}
	})
}
