// Package notifier delivers side-channel notifications to agent owners
// (session expiry, provider blocks).
package notifier

import (
	"fmt"
	"log"

	"postpilot/internal/config"
	"postpilot/internal/notifier/providers"
	"postpilot/internal/types"
)

// Sender defines the interface for message delivery
type Sender interface {
	Send(to, subject, body string) error
}

// Notifier routes notifications to the owning user
type Notifier struct {
	sender Sender
}

// New creates a notifier with the given sender
func New(sender Sender) *Notifier {
	return &Notifier{sender: sender}
}

// NewFromConfig creates a notifier based on configuration. An unconfigured
// email section degrades to log-only delivery.
func NewFromConfig(cfg config.EmailConfig) (*Notifier, error) {
	if cfg.SMTPHost == "" {
		return New(providers.NewLogSender()), nil
	}

	switch cfg.Provider {
	case "smtp":
		sender := providers.NewSMTPSender(
			cfg.SMTPHost,
			cfg.SMTPPort,
			cfg.SMTPUser,
			cfg.SMTPPass,
			cfg.FromAddr,
		)
		return New(sender), nil
	default:
		return nil, fmt.Errorf("unknown email provider: %s", cfg.Provider)
	}
}

// Notify sends a notification to the user's email address. A user without
// an address gets a log line only.
func (n *Notifier) Notify(user types.User, subject, body string) error {
	if user.Email == "" {
		log.Printf("[notifier] No email for user %s, dropping notification: %s", user.ID, subject)
		return nil
	}
	return n.sender.Send(user.Email, subject, body)
}
