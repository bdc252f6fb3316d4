package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Response kinds and novelty modes for a tracked search.
const (
	KindJSON   = "json"
	KindMarkup = "markup"

	ModeTop = "top" // compare the single most recent identifier
	ModeSet = "set" // track a set of previously seen identifiers
)

// Config is the root configuration for the jobwatch pipeline.
type Config struct {
	Notification NotificationConfig
	Fetch        FetchConfig
	State        StateConfig
	Searches     []SearchConfig
}

// NotificationConfig selects and credentials the notifier.
type NotificationConfig struct {
	Type     string // "telegram" or "log"
	BotToken string
	ChatID   string
	Timeout  time.Duration
}

// FetchConfig controls the outbound search requests.
type FetchConfig struct {
	Timeout           time.Duration
	UserAgent         string
	RequestsPerSecond float64 // per-host politeness limit
}

// StateConfig selects the seen-state backend.
type StateConfig struct {
	Backend     string // "file", "sqlite" or "postgres"
	Dir         string // file backend root directory
	SQLitePath  string
	PostgresDSN string
}

// SearchConfig describes one independently tracked search.
type SearchConfig struct {
	Label     string `yaml:"label"`
	URL       string `yaml:"url"`
	Kind      string `yaml:"kind"`       // "json" or "markup"
	Mode      string `yaml:"mode"`       // "top" or "set"
	Keyword   string `yaml:"keyword"`    // optional title substring filter
	Link      string `yaml:"link"`       // fallback listing URL
	StateFile string `yaml:"state_file"` // file-backend override path
	Pattern   string `yaml:"pattern"`    // markup-mode identifier regexp
	Enabled   bool   `yaml:"enabled"`

	// IDPattern is Pattern compiled during Load. Nil for json searches.
	IDPattern *regexp.Regexp `yaml:"-"`
}

// rawConfig mirrors the YAML layout (snake_case, durations as strings).
type rawConfig struct {
	Notification rawNotificationConfig `yaml:"notification"`
	Fetch        rawFetchConfig        `yaml:"fetch"`
	State        rawStateConfig        `yaml:"state"`
	Searches     []SearchConfig        `yaml:"searches"`
}

type rawNotificationConfig struct {
	Type     string `yaml:"type"`
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
	Timeout  string `yaml:"timeout"`
}

type rawFetchConfig struct {
	Timeout           string  `yaml:"timeout"`
	UserAgent         string  `yaml:"user_agent"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

type rawStateConfig struct {
	Backend     string `yaml:"backend"`
	Dir         string `yaml:"dir"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

const (
	defaultFetchTimeout  = 20 * time.Second
	defaultNotifyTimeout = 10 * time.Second
	defaultUserAgent     = "Mozilla/5.0 (job-watcher-bot)"
	defaultStateDir      = "state"
	defaultSQLitePath    = "jobwatch.db"
)

// Load reads and parses the YAML config file at path, expands environment
// variables, applies defaults, validates, and returns Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables (bot token, chat id, DSN).
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	notifyTimeout := defaultNotifyTimeout
	if raw.Notification.Timeout != "" {
		notifyTimeout, err = time.ParseDuration(raw.Notification.Timeout)
		if err != nil {
			return nil, fmt.Errorf("parse notification.timeout %q: %w", raw.Notification.Timeout, err)
		}
	}

	fetchTimeout := defaultFetchTimeout
	if raw.Fetch.Timeout != "" {
		fetchTimeout, err = time.ParseDuration(raw.Fetch.Timeout)
		if err != nil {
			return nil, fmt.Errorf("parse fetch.timeout %q: %w", raw.Fetch.Timeout, err)
		}
	}

	userAgent := raw.Fetch.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	rps := raw.Fetch.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}

	backend := raw.State.Backend
	if backend == "" {
		backend = "file"
	}
	stateDir := raw.State.Dir
	if stateDir == "" {
		stateDir = defaultStateDir
	}
	sqlitePath := raw.State.SQLitePath
	if sqlitePath == "" {
		sqlitePath = defaultSQLitePath
	}

	notifyType := raw.Notification.Type
	if notifyType == "" {
		notifyType = "log"
	}

	cfg := &Config{
		Notification: NotificationConfig{
			Type:     notifyType,
			BotToken: raw.Notification.BotToken,
			ChatID:   raw.Notification.ChatID,
			Timeout:  notifyTimeout,
		},
		Fetch: FetchConfig{
			Timeout:           fetchTimeout,
			UserAgent:         userAgent,
			RequestsPerSecond: rps,
		},
		State: StateConfig{
			Backend:     backend,
			Dir:         stateDir,
			SQLitePath:  sqlitePath,
			PostgresDSN: raw.State.PostgresDSN,
		},
		Searches: raw.Searches,
	}

	for i := range cfg.Searches {
		s := &cfg.Searches[i]
		if s.Kind == "" {
			s.Kind = KindJSON
		}
		if s.Mode == "" {
			s.Mode = ModeTop
		}
		// Markup extraction yields a set of identifiers, never a single
		// top record, so the mode is forced.
		if s.Kind == KindMarkup {
			s.Mode = ModeSet
		}
		if s.Pattern != "" {
			re, err := regexp.Compile(s.Pattern)
			if err != nil {
				return nil, fmt.Errorf("parse searches[%q].pattern: %w", s.Label, err)
			}
			s.IDPattern = re
		}
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	switch cfg.Notification.Type {
	case "telegram":
		if cfg.Notification.BotToken == "" {
			return fmt.Errorf("notification.bot_token is required when type is \"telegram\"")
		}
		if cfg.Notification.ChatID == "" {
			return fmt.Errorf("notification.chat_id is required when type is \"telegram\"")
		}
	case "log":
	default:
		return fmt.Errorf("notification.type must be \"telegram\" or \"log\", got %q", cfg.Notification.Type)
	}

	switch cfg.State.Backend {
	case "file", "sqlite":
	case "postgres":
		if cfg.State.PostgresDSN == "" {
			return fmt.Errorf("state.postgres_dsn is required when backend is \"postgres\"")
		}
	default:
		return fmt.Errorf("state.backend must be \"file\", \"sqlite\" or \"postgres\", got %q", cfg.State.Backend)
	}

	enabled := 0
	labels := make(map[string]bool, len(cfg.Searches))
	for _, s := range cfg.Searches {
		if s.Label == "" {
			return fmt.Errorf("every search needs a label")
		}
		if labels[s.Label] {
			return fmt.Errorf("duplicate search label %q", s.Label)
		}
		labels[s.Label] = true

		u, err := url.Parse(s.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("searches[%q].url %q is not a valid URL", s.Label, s.URL)
		}

		switch s.Kind {
		case KindJSON, KindMarkup:
		default:
			return fmt.Errorf("searches[%q].kind must be \"json\" or \"markup\", got %q", s.Label, s.Kind)
		}
		if s.Kind == KindMarkup && s.IDPattern == nil {
			return fmt.Errorf("searches[%q] is a markup search and needs a pattern", s.Label)
		}
		if s.IDPattern != nil && s.IDPattern.NumSubexp() < 1 {
			return fmt.Errorf("searches[%q].pattern needs one capture group for the identifier", s.Label)
		}

		switch s.Mode {
		case ModeTop, ModeSet:
		default:
			return fmt.Errorf("searches[%q].mode must be \"top\" or \"set\", got %q", s.Label, s.Mode)
		}

		if s.Enabled {
			enabled++
		}
	}
	if enabled == 0 {
		return fmt.Errorf("at least one search must be enabled")
	}

	return nil
}
