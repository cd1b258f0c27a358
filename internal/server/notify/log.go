package notify

import (
	"context"

	"github.com/dmitrijs2005/taskpilot/internal/logging"
)

// LogNotifier writes messages to the log instead of delivering them.
// Useful while developing without an SMTP server.
type LogNotifier struct {
	logger logging.Logger
}

func NewLogNotifier(l logging.Logger) *LogNotifier {
	return &LogNotifier{logger: l.With("module", "notify")}
}

func (n *LogNotifier) Notify(ctx context.Context, recipient, subject, body string) error {
	n.logger.Info(ctx, "mail not sent (log notifier)", "to", recipient, "subject", subject, "body", body)
	return nil
}
