package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"budget/internal/amqp"
	"budget/internal/backend"
	"budget/internal/cache"
	"budget/internal/chart"
	"budget/internal/cli"
	"budget/internal/ledger"
	gsheet "budget/internal/ledger/google"
	blog "budget/internal/log"
	"budget/internal/worker"
)

const (
	watchDebounce  = 300 * time.Millisecond
	cacheSweepTick = 5 * time.Minute
)

func (a *app) addCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <amount> <category> <note>",
		Short: "Add an expense dated today",
		Example: `  budget add 12.50 food lunch
  budget add -5 food "refund"`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			res, err := a.openBackend(ctx)
			if err != nil {
				return err
			}
			defer a.closeBackend(res)

			rec, err := res.Service.Add(ctx, args[0], args[1], args[2])
			if err != nil {
				return err
			}
			a.printer.Success("Added expense: %s (%s) - %s", rec.Amount, rec.Category, rec.Note)
			return nil
		},
	}
}

func (a *app) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show all expenses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			res, err := a.openBackend(ctx)
			if err != nil {
				return err
			}
			defer a.closeBackend(res)

			rows, err := res.Service.Rows(ctx)
			if err != nil {
				return err
			}
			a.printer.Rows(rows)
			return nil
		},
	}
}

func (a *app) summaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show the total and per-category sums",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			res, err := a.openBackend(ctx)
			if err != nil {
				return err
			}
			defer a.closeBackend(res)

			sum, err := res.Service.Summary(ctx)
			if err != nil {
				return err
			}
			a.printer.Summary(sum)
			return nil
		},
	}
}

func (a *app) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete",
		Short: "Delete the most recent expense",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			res, err := a.openBackend(ctx)
			if err != nil {
				return err
			}
			defer a.closeBackend(res)

			if _, err := res.Service.DeleteLast(ctx); err != nil {
				if errors.Is(err, ledger.ErrNoRecords) {
					a.printer.Warn("No records to delete.")
					return nil
				}
				return err
			}
			a.printer.Success("Deleted the last record")
			return nil
		},
	}
}

func (a *app) chartCmd() *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Render pie and bar charts of the category totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			res, err := a.openBackend(ctx)
			if err != nil {
				return err
			}
			defer a.closeBackend(res)

			opts := chart.Options{Dir: a.cfg.ChartDir, Currency: a.cfg.Currency}
			if a.cfg.ChartFontPath != "" {
				if opts.Font, err = chart.LoadFont(a.cfg.ChartFontPath); err != nil {
					return err
				}
			}
			renderer := chart.NewRenderer(opts)

			refresh := func(ctx context.Context) error {
				sum, err := res.Service.Summary(ctx)
				if err != nil {
					return err
				}
				paths, err := renderer.RenderFiles(ctx, sum.ByCategory)
				if errors.Is(err, chart.ErrNoData) {
					a.printer.Error("No data yet, cannot build charts.")
					return nil
				}
				if err != nil {
					return err
				}
				a.printer.Success("Generated charts: %s", strings.Join(paths, ", "))
				return nil
			}

			if err := refresh(ctx); err != nil {
				return err
			}
			if !watch {
				return nil
			}
			if a.cfg.DataBackend != string(backend.CSVBackend) {
				return fmt.Errorf("--watch needs the csv backend, got %s", a.cfg.DataBackend)
			}

			ctx, cancel := cli.SignalContext(ctx, a.logger)
			defer cancel()
			a.logger.Info("Watching ledger file", blog.FieldPath, a.cfg.DataFile)
			return chart.Watch(ctx, a.cfg.DataFile, watchDebounce, refresh)
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "Re-render whenever the ledger file changes")
	return cmd
}

func (a *app) mirrorCmd() *cobra.Command {
	var target string
	cmd := &cobra.Command{
		Use:   "mirror",
		Short: "Replay ledger events from AMQP onto a second ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setup(slog.LevelInfo); err != nil {
				return err
			}
			if a.cfg.AMQPURL == "" {
				return errors.New("mirror needs AMQP_URL")
			}
			logger := a.logger.WithComponent(blog.ComponentWorker)

			ctx, cancel := cli.SignalContext(cmd.Context(), logger)
			defer cancel()

			bcfg, err := backend.FromAppConfig(a.cfg)
			if err != nil {
				return err
			}
			bcfg.Type = backend.BackendType(target)
			if err := bcfg.Validate(); err != nil {
				return fmt.Errorf("mirror target: %w", err)
			}
			store, closeStore, err := a.factory.OpenLedger(ctx, bcfg)
			if err != nil {
				return fmt.Errorf("open mirror target: %w", err)
			}
			if closeStore != nil {
				defer closeStore()
			}

			if sc, ok := store.(*gsheet.Client); ok {
				caches := cache.NewManager()
				caches.Register(sc.Cache())
				caches.StartCleanup(cacheSweepTick)
				defer caches.Stop()
			}

			client, err := amqp.NewClient(ctx, a.cfg.AMQPURL, a.cfg.AMQPExchange, a.cfg.AMQPQueue)
			if err != nil {
				return err
			}
			defer client.Close()

			logger.Info("Mirror worker started", blog.FieldBackend, target, "queue", a.cfg.AMQPQueue)
			if err := worker.NewMirrorWorker(store).Run(ctx, client); err != nil {
				return fmt.Errorf("mirror worker: %w", err)
			}
			logger.Info("Mirror worker stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&target, "target", string(backend.SheetsBackend), "Ledger receiving the replayed events")
	return cmd
}
