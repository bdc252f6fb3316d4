package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/slekota/jobwatch/internal/model"
	"github.com/slekota/jobwatch/internal/notify"
	"github.com/slekota/jobwatch/internal/state"
	"github.com/spf13/cobra"
)

var checkOnly bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Check all searches once and exit",
	Long: "Performs one pass over every enabled search: fetch, extract, compare " +
		"against stored state, notify on novelty, persist. Intended to be " +
		"invoked on a schedule by cron or CI.",
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVar(&checkOnly, "check", false, "log what would be notified, persist nothing")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("config loaded",
		"searches", len(cfg.Searches),
		"backend", cfg.State.Backend,
		"notifier", cfg.Notification.Type,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store state.Store
	var n model.Notifier
	if checkOnly {
		logger.Info("check mode: nothing will be persisted or sent")
		store = state.NewNopStore()
		n = notify.NewLog(logger)
	} else {
		store, err = buildStore(ctx, cfg)
		if err != nil {
			logger.Error("failed to open state store", "error", err)
			os.Exit(1)
		}
		n = setupNotifier(cfg, logger)
	}
	defer store.Close()

	watchers := buildWatchers(cfg, buildFetcher(cfg), store, n, logger)
	if len(watchers) == 0 {
		logger.Error("no searches to check")
		os.Exit(1)
	}

	// Per-search failures are logged and must not abort sibling searches;
	// a degraded run still exits 0 so the scheduler keeps triggering us.
	for _, w := range watchers {
		if ctx.Err() != nil {
			break
		}
		if err := w.Check(ctx); err != nil {
			logger.Error("check failed", "search", w.Search.Label, "error", err)
		}
	}

	logger.Info("run complete")
	return nil
}
