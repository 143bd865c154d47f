package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"budget/internal/backend"
	"budget/internal/cli"
	"budget/internal/config"
	blog "budget/internal/log"
	"budget/internal/render"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
var version = "dev"

// globalFlags are shared by every subcommand.
type globalFlags struct {
	file       string
	backend    string
	configPath string
	logLevel   string
}

// app carries what a subcommand needs once configuration is loaded.
type app struct {
	stdout io.Writer
	stderr io.Writer
	flags  globalFlags

	cfg     *config.Config
	logger  *blog.Logger
	printer *render.Printer
	factory backend.Factory
}

func main() {
	root := newRootCmd(os.Stdout, os.Stderr)
	root.SetArgs(negativeAmountArgs(os.Args[1:]))
	if err := root.Execute(); err != nil {
		render.NewPrinter(os.Stderr, "").Error("Error: %v", err)
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:           "budget",
		Short:         "Command-line expense ledger with charts",
		Long:          "budget records dated expenses in a flat file, summarizes them by category and renders pie and bar charts of the totals.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.file, "file", "", "Ledger file for the csv backend (env BUDGET_DATA_FILE)")
	pf.StringVar(&a.flags.backend, "backend", "", "Storage backend: "+strings.Join(config.Backends(), ", ")+" (env DATA_BACKEND)")
	pf.StringVar(&a.flags.configPath, "config", "", "Optional YAML config file (env BUDGET_CONFIG)")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "Log level: debug, info, warn or error (env LOG_LEVEL)")

	root.AddCommand(
		a.addCmd(),
		a.listCmd(),
		a.summaryCmd(),
		a.deleteCmd(),
		a.chartCmd(),
		a.mirrorCmd(),
	)
	return root
}

// setup loads configuration and installs the logger. defaultLevel applies
// when neither the flag nor the environment names a level.
func (a *app) setup(defaultLevel slog.Level) error {
	cfg, err := cli.LoadConfig(a.flags.configPath, cli.Overrides{
		DataFile: a.flags.file,
		Backend:  a.flags.backend,
		LogLevel: a.flags.logLevel,
	})
	if err != nil {
		return err
	}

	level := defaultLevel
	if cfg.LogLevel != "" {
		if level, err = config.ParseLevel(cfg.LogLevel); err != nil {
			return err
		}
	}

	a.cfg = cfg
	a.logger = cli.SetupLogger(a.stderr, level)
	a.printer = render.NewPrinter(a.stdout, cfg.Currency)
	a.factory = backend.NewFactory(a.logger.Logger)
	return nil
}

// openBackend sets up the command and opens the configured ledger.
func (a *app) openBackend(ctx context.Context) (*backend.BackendResult, error) {
	if err := a.setup(slog.LevelWarn); err != nil {
		return nil, err
	}
	bcfg, err := backend.FromAppConfig(a.cfg)
	if err != nil {
		return nil, err
	}
	res, err := a.factory.CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", bcfg.Type, err)
	}
	return res, nil
}

func (a *app) closeBackend(res *backend.BackendResult) {
	if err := res.Close(); err != nil {
		a.logger.Warn("Failed to release backend", blog.FieldError, err)
	}
}
