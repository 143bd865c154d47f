// Package cli holds the initialization steps shared by the budget commands.
package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"budget/internal/config"
	blog "budget/internal/log"
)

// SetupLogger installs a text logger on w at the given level and makes it
// the slog default.
func SetupLogger(w io.Writer, level slog.Level) *blog.Logger {
	logger := blog.New(blog.Config{
		Level:     level,
		Component: blog.ComponentCLI,
		Output:    w,
	})
	blog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as the file is optional.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// Overrides carries command-line flags that take precedence over the file
// and the environment. Empty fields are ignored.
type Overrides struct {
	DataFile string
	Backend  string
	LogLevel string
}

// LoadConfig reads .env, the optional YAML file and the environment, applies
// flag overrides and validates the result.
func LoadConfig(path string, o Overrides) (*config.Config, error) {
	LoadEnvFile()

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if o.DataFile != "" {
		cfg.DataFile = o.DataFile
	}
	if o.Backend != "" {
		cfg.DataBackend = o.Backend
	}
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context, logger *blog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
