// Package memory keeps the ledger in process memory. It backs the
// "memory" data backend and stands in for real stores in tests.
package memory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"budget/internal/core"
	"budget/internal/ledger"
	"budget/internal/ledger/csvfile"
)

// SeedFile is read from the data directory by NewFromDir.
const SeedFile = "seed_expenses.csv"

type Store struct {
	mu    sync.Mutex
	items []core.Record
}

var _ ledger.Ledger = (*Store)(nil)

func New(seed ...core.Record) *Store {
	return &Store{items: append([]core.Record(nil), seed...)}
}

// NewFromDir seeds the store from <base>/seed_expenses.csv if present.
// A missing seed file yields an empty store.
func NewFromDir(ctx context.Context, base string) (*Store, error) {
	path := filepath.Join(base, SeedFile)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return New(), nil
	}
	seed, err := csvfile.New(path).ListRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("load seed: %w", err)
	}
	return New(seed...), nil
}

// Append stores the record and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, r core.Record) (string, error) {
	if err := r.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, r)
	return fmt.Sprintf("mem:%d", len(s.items)), nil
}

func (s *Store) ListRecords(_ context.Context) ([]core.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Record(nil), s.items...), nil
}

func (s *Store) DeleteLast(_ context.Context) (core.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.items) == 0 {
		return core.Record{}, ledger.ErrNoRecords
	}
	last := s.items[len(s.items)-1]
	s.items = s.items[:len(s.items)-1]
	return last, nil
}

// Len reports how many records are held.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
