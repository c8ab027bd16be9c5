// Package notify delivers account-related messages to users. The auth
// service only ever needs fire-and-forget delivery, so the interface is a
// single Send.
package notify

import "context"

// Notifier sends a plain-text message to a recipient address.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}
