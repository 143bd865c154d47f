package backend

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"budget/internal/config"
	"budget/internal/ledger/csvfile"
	"budget/internal/ledger/memory"
	"budget/internal/storage"
)

func TestBackendTypeIsValid(t *testing.T) {
	for _, bt := range []BackendType{CSVBackend, SQLiteBackend, SheetsBackend, MemoryBackend} {
		if !bt.IsValid() {
			t.Errorf("%s should be valid", bt)
		}
	}
	if BackendType("postgres").IsValid() {
		t.Error("postgres should not be valid")
	}
	if got := strings.Join(config.Backends(), ","); got != "csv,sqlite,sheets,memory" {
		t.Errorf("config.Backends = %s", got)
	}
}

func TestFromAppConfig(t *testing.T) {
	app := config.Defaults()
	app.DataFile = "x.csv"
	app.AMQPURL = "amqp://localhost"

	cfg, err := FromAppConfig(app)
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if cfg.Type != CSVBackend || cfg.DataFile != "x.csv" || cfg.AMQPQueue != "ledger_events" {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.AMQPDialTimeout != defaultDialTimeout {
		t.Errorf("dial timeout = %v", cfg.AMQPDialTimeout)
	}

	if _, err := FromAppConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}
	app.DataBackend = "nope"
	if _, err := FromAppConfig(app); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"csv ok", Config{Type: CSVBackend, DataFile: "a.csv"}, false},
		{"csv no file", Config{Type: CSVBackend}, true},
		{"sqlite no path", Config{Type: SQLiteBackend}, true},
		{"sheets no id", Config{Type: SheetsBackend}, true},
		{"memory ok", Config{Type: MemoryBackend}, false},
		{"unknown", Config{Type: "x"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateCSVBackend(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "expenses.csv")

	res, err := NewFactory(nil).CreateBackend(ctx, Config{Type: CSVBackend, DataFile: path})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	defer res.Close()

	if _, ok := res.Ledger.(*csvfile.Store); !ok {
		t.Fatalf("ledger is %T", res.Ledger)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("data file not created: %v", err)
	}
	if strings.TrimSpace(string(b)) != "Date,Amount,Category,Note" {
		t.Errorf("unexpected file content %q", b)
	}

	if _, err := res.Service.Add(ctx, "12.5", "food", "lunch"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	recs, err := res.Service.List(ctx)
	if err != nil || len(recs) != 1 {
		t.Fatalf("List = %v, %v", recs, err)
	}
}

func TestCreateSQLiteBackend(t *testing.T) {
	ctx := context.Background()
	res, err := NewFactory(nil).CreateBackend(ctx, Config{
		Type:         SQLiteBackend,
		SQLiteDBPath: filepath.Join(t.TempDir(), "budget.db"),
	})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	if _, ok := res.Ledger.(*storage.SQLiteRepository); !ok {
		t.Fatalf("ledger is %T", res.Ledger)
	}
	if _, err := res.Service.Add(ctx, "3", "bus", ""); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := res.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestCreateMemoryBackendSeeded(t *testing.T) {
	dir := t.TempDir()
	seed := "Date,Amount,Category,Note\n2025-01-02,4.00,coffee,\n"
	if err := os.WriteFile(filepath.Join(dir, memory.SeedFile), []byte(seed), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: MemoryBackend, DataDirectory: dir})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	store, ok := res.Ledger.(*memory.Store)
	if !ok || store.Len() != 1 {
		t.Fatalf("unexpected ledger %T", res.Ledger)
	}
}

func TestCreateBackendRejectsInvalidConfig(t *testing.T) {
	if _, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: SheetsBackend}); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestBackendResultCloseNil(t *testing.T) {
	var r *BackendResult
	if err := r.Close(); err != nil {
		t.Errorf("nil Close: %v", err)
	}
	if err := (&BackendResult{}).Close(); err != nil {
		t.Errorf("empty Close: %v", err)
	}
}
