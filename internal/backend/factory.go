package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"budget/internal/amqp"
	"budget/internal/ledger"
	"budget/internal/ledger/csvfile"
	gsheet "budget/internal/ledger/google"
	"budget/internal/ledger/memory"
	"budget/internal/services"
	"budget/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend opens the configured ledger and, when AMQP is configured,
// a publisher for ledger events. A broker that cannot be reached only
// disables publishing.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	store, closeStore, err := f.OpenLedger(ctx, config)
	if err != nil {
		return nil, err
	}

	var publisher services.EventPublisher
	var closePublisher func() error
	if config.AMQPURL != "" {
		client, err := f.dialPublisher(ctx, config)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		} else {
			f.logger.Info("Initialized AMQP client", "exchange", config.AMQPExchange, "queue", config.AMQPQueue)
			publisher = client
			closePublisher = client.Close
		}
	}

	return &BackendResult{
		Ledger:  store,
		Service: services.NewLedgerService(store, publisher),
		Cleanup: func() error {
			var errs []error
			if closePublisher != nil {
				errs = append(errs, closePublisher())
			}
			if closeStore != nil {
				errs = append(errs, closeStore())
			}
			return errors.Join(errs...)
		},
	}, nil
}

func (f *DefaultFactory) dialPublisher(ctx context.Context, config Config) (*amqp.Client, error) {
	if config.AMQPDialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.AMQPDialTimeout)
		defer cancel()
	}
	return amqp.NewClient(ctx, config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
}

// OpenLedger opens only the store for config.Type. The returned close
// function may be nil.
func (f *DefaultFactory) OpenLedger(ctx context.Context, config Config) (ledger.Ledger, func() error, error) {
	switch config.Type {
	case CSVBackend:
		return f.createCSVBackend(config)
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case SheetsBackend:
		return f.createSheetsBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(ctx, config)
	default:
		return nil, nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createCSVBackend(config Config) (ledger.Ledger, func() error, error) {
	store := csvfile.New(config.DataFile)
	if err := store.Init(); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize data file: %w", err)
	}
	f.logger.Debug("Initialized csv backend", "path", config.DataFile)
	return store, nil, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (ledger.Ledger, func() error, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	f.logger.Debug("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return repo, repo.Close, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (ledger.Ledger, func() error, error) {
	cli, err := gsheet.Open(ctx, config.GoogleSpreadsheetID, config.GoogleSheetName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	f.logger.Debug("Initialized Google Sheets backend", "spreadsheet_id", config.GoogleSpreadsheetID)
	return cli, nil, nil
}

func (f *DefaultFactory) createMemoryBackend(ctx context.Context, config Config) (ledger.Ledger, func() error, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data"
	}

	store, err := memory.NewFromDir(ctx, dataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to seed memory backend: %w", err)
	}
	f.logger.Debug("Initialized memory backend", "data_directory", dataDir, "records", store.Len())
	return store, nil, nil
}
