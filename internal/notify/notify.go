// Package notify sends transactional email. Delivery is best-effort by
// contract: callers log failures and carry on, a mail outage never blocks
// registration or password recovery.
package notify

import "context"

// Notifier sends account lifecycle email.
type Notifier interface {
	SendVerificationEmail(ctx context.Context, to, token string) error
	SendPasswordResetEmail(ctx context.Context, to, token string) error
}

// Noop is the notifier used when no mail provider is configured.
type Noop struct{}

func (Noop) SendVerificationEmail(context.Context, string, string) error  { return nil }
func (Noop) SendPasswordResetEmail(context.Context, string, string) error { return nil }
