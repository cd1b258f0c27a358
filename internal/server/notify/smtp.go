package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPNotifier sends plain-text mail through a single SMTP endpoint.
type SMTPNotifier struct {
	addr string
	auth smtp.Auth
	from string
}

// NewSMTPNotifier configures delivery through addr (host:port). user may be
// empty for unauthenticated relays (local dev catchers like Mailpit).
func NewSMTPNotifier(addr, user, password, from string) *SMTPNotifier {
	var auth smtp.Auth
	if user != "" {
		host := addr
		if i := strings.LastIndex(addr, ":"); i >= 0 {
			host = addr[:i]
		}
		auth = smtp.PlainAuth("", user, password, host)
	}
	return &SMTPNotifier{addr: addr, auth: auth, from: from}
}

func (n *SMTPNotifier) Notify(ctx context.Context, recipient, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		n.from, recipient, subject, body)

	if err := smtp.SendMail(n.addr, n.auth, envelopeFrom(n.from), []string{recipient}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send error: %w", err)
	}

	return nil
}

// envelopeFrom extracts the bare address from a "Name <addr>" From header.
func envelopeFrom(from string) string {
	if i := strings.LastIndex(from, "<"); i >= 0 {
		if j := strings.LastIndex(from, ">"); j > i {
			return from[i+1 : j]
		}
	}
	return from
}
