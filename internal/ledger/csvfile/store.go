// Package csvfile stores the ledger as a delimited text file with a fixed
// four-column header. It is the default backend.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"budget/internal/core"
	"budget/internal/ledger"
)

type Store struct {
	path string
}

// Ensure interface conformance
var _ ledger.Ledger = (*Store)(nil)

func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Init writes the header row when the file is missing or empty.
func (s *Store) Init() error {
	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	info, err := os.Stat(s.path)
	switch {
	case err == nil && info.Size() > 0:
		return nil
	case err == nil:
		flags = os.O_WRONLY | os.O_TRUNC
	case !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("stat %s: %w", s.path, err)
	default:
		if dir := filepath.Dir(s.path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create data directory: %w", err)
			}
		}
	}
	f, err := os.OpenFile(s.path, flags, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", s.path, err)
	}
	if err := writeRows(f, [][]string{ledger.Header}); err != nil {
		f.Close()
		return err
	}
	slog.Debug("Created ledger file", "path", s.path)
	return f.Close()
}

// Append writes one row at the end of the file.
func (s *Store) Append(ctx context.Context, r core.Record) (string, error) {
	if err := r.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if err := s.Init(); err != nil {
		return "", err
	}
	rows, err := s.readRows()
	if err != nil {
		return "", err
	}

	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", s.path, err)
	}
	if err := writeRows(f, [][]string{ledger.EncodeRow(r)}); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", s.path, err)
	}

	ref := fmt.Sprintf("%s:%d", s.path, len(rows)+1)
	slog.DebugContext(ctx, "Record appended", "ref", ref, "category", r.Category, "amount_cents", r.Amount.Cents)
	return ref, nil
}

// ListRecords decodes every data row in file order.
func (s *Store) ListRecords(_ context.Context) ([]core.Record, error) {
	if err := s.Init(); err != nil {
		return nil, err
	}
	rows, err := s.readRows()
	if err != nil {
		return nil, err
	}
	if len(rows) <= 1 {
		return nil, nil
	}
	out := make([]core.Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		rec, err := ledger.DecodeRow(row)
		if err != nil {
			// Line numbers are 1-based and include the header.
			return nil, fmt.Errorf("%s line %d: %w", s.path, i+2, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// ListRows returns the data rows exactly as stored, padded to the header
// width when a line is short.
func (s *Store) ListRows(_ context.Context) ([][]string, error) {
	if err := s.Init(); err != nil {
		return nil, err
	}
	rows, err := s.readRows()
	if err != nil {
		return nil, err
	}
	if len(rows) <= 1 {
		return nil, nil
	}
	out := rows[1:]
	for i, row := range out {
		for len(row) < len(ledger.Header) {
			row = append(row, "")
		}
		out[i] = row
	}
	return out, nil
}

// DeleteLast drops the final data row by rewriting the file through a
// temporary sibling and renaming it into place.
func (s *Store) DeleteLast(ctx context.Context) (core.Record, error) {
	if err := s.Init(); err != nil {
		return core.Record{}, err
	}
	rows, err := s.readRows()
	if err != nil {
		return core.Record{}, err
	}
	if len(rows) <= 1 {
		return core.Record{}, ledger.ErrNoRecords
	}

	last := rows[len(rows)-1]
	deleted, err := ledger.DecodeRow(last)
	if err != nil {
		// Still remove the row; report what we can.
		slog.WarnContext(ctx, "Deleting undecodable last row", "path", s.path, "error", err)
		deleted = core.Record{Note: fmt.Sprint(last)}
	}

	if err := s.rewrite(rows[:len(rows)-1]); err != nil {
		return core.Record{}, err
	}
	slog.DebugContext(ctx, "Last record deleted", "path", s.path, "remaining", len(rows)-2)
	return deleted, nil
}

func (s *Store) readRows() ([][]string, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	var rows [][]string
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", s.path, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *Store) rewrite(rows [][]string) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := writeRows(tmp, rows); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}

func writeRows(w io.Writer, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}
