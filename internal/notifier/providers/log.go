package providers

import "log"

// LogSender writes notifications to the process log. Used when no email
// provider is configured.
type LogSender struct{}

// NewLogSender creates a log-only sender
func NewLogSender() *LogSender {
	return &LogSender{}
}

// Send logs the notification
func (s *LogSender) Send(to, subject, body string) error {
	log.Printf("[notifier] To %s: %s - %s", to, subject, body)
	return nil
}
