package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/slekota/jobwatch/internal/config"
	"github.com/slekota/jobwatch/internal/fetch"
	"github.com/slekota/jobwatch/internal/model"
	"github.com/slekota/jobwatch/internal/notify"
	"github.com/slekota/jobwatch/internal/state"
	"github.com/slekota/jobwatch/internal/watch"
	"github.com/spf13/cobra"
)

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "jobwatch",
	Short: "Job listing watcher — alert on new postings",
	Long:  "Jobwatch checks configured job search endpoints once per invocation and sends an alert when a new listing appears.",
	// Default to `run` so that a bare `jobwatch` invocation from cron or CI
	// performs one check pass.
	RunE: runRun,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: JOBWATCH_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig resolves the config path and parses it.
// Priority: explicit path arg > JOBWATCH_CONFIG env var > "./config.yaml"
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if env := os.Getenv("JOBWATCH_CONFIG"); env != "" {
			path = env
		} else {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

func setupNotifier(cfg *config.Config, logger *slog.Logger) model.Notifier {
	switch cfg.Notification.Type {
	case "telegram":
		logger.Info("using telegram notifier")
		httpClient := &http.Client{Timeout: cfg.Notification.Timeout}
		return notify.NewTelegram(cfg.Notification.BotToken, cfg.Notification.ChatID, "", httpClient, logger)
	default:
		return notify.NewLog(logger)
	}
}

func buildStore(ctx context.Context, cfg *config.Config) (state.Store, error) {
	switch cfg.State.Backend {
	case "sqlite":
		return state.NewSQLiteStore(cfg.State.SQLitePath)
	case "postgres":
		return state.NewPostgresStore(ctx, cfg.State.PostgresDSN)
	default:
		paths := make(map[string]string, len(cfg.Searches))
		for _, s := range cfg.Searches {
			paths[s.Label] = s.StateFile
		}
		return state.NewFileStore(cfg.State.Dir, paths)
	}
}

func buildFetcher(cfg *config.Config) *fetch.Client {
	httpClient := &http.Client{Timeout: cfg.Fetch.Timeout}
	limiter := fetch.NewHostLimiter(cfg.Fetch.RequestsPerSecond, 1)
	return fetch.NewClient(httpClient, limiter, cfg.Fetch.UserAgent)
}

func buildWatchers(cfg *config.Config, fetcher *fetch.Client, store state.Store, n model.Notifier, logger *slog.Logger) []*watch.SearchWatcher {
	var watchers []*watch.SearchWatcher
	for _, search := range cfg.Searches {
		if !search.Enabled {
			continue
		}
		watchers = append(watchers, watch.New(search, fetcher, store, n, logger))
		logger.Info("registered search", "search", search.Label, "kind", search.Kind, "mode", search.Mode)
	}
	return watchers
}
