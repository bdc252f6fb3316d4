package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/slekota/jobwatch/internal/browse"
	"github.com/slekota/jobwatch/internal/config"
	"github.com/slekota/jobwatch/internal/model"
	"github.com/slekota/jobwatch/internal/notify"
	"github.com/slekota/jobwatch/internal/state"
	"github.com/slekota/jobwatch/internal/watch"
	"github.com/spf13/cobra"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse current listings interactively",
	Long:  "Fetches the current listings for a search and shows them in a terminal view. Read-only: stored state is untouched.",
	RunE:  runBrowse,
}

func init() {
	rootCmd.AddCommand(browseCmd)
}

func runBrowse(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fetcher := buildFetcher(cfg)
	load := func(ctx context.Context, search config.SearchConfig) ([]model.Listing, error) {
		w := watch.New(search, fetcher, state.NewNopStore(), notify.NewLog(logger), logger)
		return w.Listings(ctx)
	}

	if err := browse.Run(ctx, cfg.Searches, load); err != nil {
		logger.Error("browse failed", "error", err)
		os.Exit(1)
	}
	return nil
}
