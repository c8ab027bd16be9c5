package notify

import (
	"context"

	"github.com/edustack/auth/pkg/slogx"
)

// ConsoleNotifier writes messages to the log instead of delivering them.
// Useful for local development and test environments where no mail relay
// is available.
type ConsoleNotifier struct{}

func NewConsoleNotifier() *ConsoleNotifier {
	return &ConsoleNotifier{}
}

func (n *ConsoleNotifier) Send(ctx context.Context, to, subject, body string) error {
	slogx.FromContext(ctx).Info("notification",
		"to", to,
		"subject", subject,
		"body", body,
	)
	return nil
}
