// Package notify delivers one-time codes to users. The Notifier interface
// keeps the transport swappable; production uses SMTP, development can log
// instead.
package notify

import "context"

// Notifier delivers a message to a recipient address.
type Notifier interface {
	Notify(ctx context.Context, recipient string, subject string, body string) error
}
