package backend

import (
	"context"
	"slices"
	"time"

	"budget/internal/config"
	"budget/internal/ledger"
	"budget/internal/services"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the opened ledger, the service built on top of it
// and a cleanup function releasing both.
type BackendResult struct {
	Ledger  ledger.Ledger
	Service *services.LedgerService
	Cleanup CleanupFunc
}

// Close runs Cleanup if one was set.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
	// OpenLedger opens just the store, without service or publisher.
	OpenLedger(ctx context.Context, config Config) (ledger.Ledger, func() error, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// csv
	DataFile string

	// sqlite
	SQLiteDBPath string

	// sheets
	GoogleSpreadsheetID string
	GoogleSheetName     string

	// memory
	DataDirectory string

	// Optional event publishing, any backend.
	AMQPURL         string
	AMQPExchange    string
	AMQPQueue       string
	AMQPDialTimeout time.Duration
}

// BackendType represents the type of backend
type BackendType string

const (
	CSVBackend    BackendType = "csv"
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid reports whether the configuration layer knows this backend name.
func (bt BackendType) IsValid() bool {
	return slices.Contains(config.Backends(), string(bt))
}
