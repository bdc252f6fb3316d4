package notify

import (
	"context"
	"log/slog"

	"github.com/slekota/jobwatch/internal/model"
)

// Ensure Log implements model.Notifier.
var _ model.Notifier = (*Log)(nil)

// Log writes notifications to the given logger instead of a chat endpoint.
// Used in check mode and when no telegram credentials are configured.
type Log struct {
	logger *slog.Logger
}

// NewLog returns a notifier that logs each message via slog.
func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger}
}

// Send logs the message. Returns nil (stdout logging does not fail).
func (n *Log) Send(_ context.Context, text string) error {
	n.logger.Info("notification", "text", text)
	return nil
}
