package notifxconsole

import (
	"context"

	"github.com/Abraxas-365/authgate/pkg/logx"
	"github.com/Abraxas-365/authgate/pkg/notifx"
)

// ConsoleProvider implements notifx.EmailSender by logging the message.
// Meant for local development where no mail transport is configured.
type ConsoleProvider struct{}

// NewConsoleProvider creates the provider.
func NewConsoleProvider() *ConsoleProvider {
	return &ConsoleProvider{}
}

// Send logs the email instead of delivering it.
func (p *ConsoleProvider) Send(_ context.Context, msg notifx.EmailMessage) error {
	logx.WithFields(logx.Fields{
		"to":      msg.To,
		"subject": msg.Subject,
	}).Info("📧 Email (console provider)")
	logx.Debug(msg.HTMLBody)
	return nil
}
