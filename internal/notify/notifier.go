package notify

import (
	"fmt"
	"net/smtp"

	"github.com/rs/zerolog"
)

// Notifier delivers a single notification to one recipient. Delivery is
// best-effort: callers log failures and move on, they never abort on one.
type Notifier interface {
	Send(to, subject, body string) error
}

// SMTPNotifier sends plain-text email through an SMTP relay.
type SMTPNotifier struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// Send delivers one email. Blocks for the duration of the SMTP exchange.
func (n *SMTPNotifier) Send(to, subject, body string) error {
	msg := formatMessage(n.From, to, subject, body)

	addr := n.Host + ":" + n.Port
	var auth smtp.Auth
	if n.Username != "" {
		auth = smtp.PlainAuth("", n.Username, n.Password, n.Host)
	}
	if err := smtp.SendMail(addr, auth, n.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}

func formatMessage(from, to, subject, body string) string {
	return fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		from, to, subject, body)
}

// LogNotifier writes notifications to the log instead of delivering them.
// Used in development when no SMTP relay is configured.
type LogNotifier struct {
	Log zerolog.Logger
}

func (n *LogNotifier) Send(to, subject, body string) error {
	n.Log.Info().
		Str("to", to).
		Str("subject", subject).
		Msg("notification (log transport)")
	return nil
}
