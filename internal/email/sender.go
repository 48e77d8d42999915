// Package email provides outbound mail delivery for nurturing outreach and
// operator notifications.
package email

import "context"

// Sender delivers a single plain-text email.
type Sender interface {
	Send(ctx context.Context, toEmail, subject, body string) error
}

// NoopSender drops all mail. Used when email delivery is disabled.
type NoopSender struct{}

func (NoopSender) Send(ctx context.Context, toEmail, subject, body string) error {
	return nil
}
