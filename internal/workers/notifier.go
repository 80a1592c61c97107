// internal/workers/notifier.go
package workers

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/mail"
	"net/smtp"
	"strings"
	"time"

	"github.com/ammerola/pharmacy-pos/internal/core/ports"
	"github.com/ammerola/pharmacy-pos/internal/pkg/config"
)

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPNotifier mails operator alerts
type SMTPNotifier struct {
	addr     string
	auth     smtp.Auth
	from     string
	to       []string
	sendMail sendMailFunc
	logger   *slog.Logger
}

// LogNotifier writes alerts to the log. Development setups use it in place of SMTP.
type LogNotifier struct {
	logger *slog.Logger
}

var (
	_ ports.Notifier = (*SMTPNotifier)(nil)
	_ ports.Notifier = (*LogNotifier)(nil)
)

// NewNotifier returns the SMTP notifier when notifications are enabled
// outside development, and a log notifier otherwise
func NewNotifier(cfg *config.Config, logger *slog.Logger) (ports.Notifier, error) {
	n := cfg.Notifications
	if !n.Enabled || cfg.IsDevelopment() {
		return NewLogNotifier(logger), nil
	}
	if len(n.To) == 0 {
		return nil, fmt.Errorf("notifications enabled without recipients")
	}
	from, err := mail.ParseAddress(n.From)
	if err != nil {
		return nil, fmt.Errorf("invalid sender address %q: %w", n.From, err)
	}
	for _, to := range n.To {
		if _, err := mail.ParseAddress(to); err != nil {
			return nil, fmt.Errorf("invalid recipient address %q: %w", to, err)
		}
	}

	var auth smtp.Auth
	if n.SMTPUsername != "" {
		auth = smtp.PlainAuth("", n.SMTPUsername, n.SMTPPassword, n.SMTPHost)
	}

	return &SMTPNotifier{
		addr:     net.JoinHostPort(n.SMTPHost, n.SMTPPort),
		auth:     auth,
		from:     from.Address,
		to:       n.To,
		sendMail: smtp.SendMail,
		logger:   logger.With(slog.String("component", "notifier")),
	}, nil
}

// NewLogNotifier creates a notifier that only logs
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With(slog.String("component", "notifier"))}
}

// Notify logs the alert
func (n *LogNotifier) Notify(ctx context.Context, subject, body string) error {
	n.logger.InfoContext(ctx, "notification would be sent",
		slog.String("subject", subject),
		slog.String("body", body))
	return nil
}

// Notify sends the alert to every configured recipient
func (n *SMTPNotifier) Notify(ctx context.Context, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := buildMessage(n.from, n.to, subject, body, time.Now())
	if err := n.sendMail(n.addr, n.auth, n.from, n.to, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	n.logger.InfoContext(ctx, "notification sent",
		slog.String("subject", subject),
		slog.Int("recipients", len(n.to)))
	return nil
}

func buildMessage(from string, to []string, subject, body string, at time.Time) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", strings.NewReplacer("\r", "", "\n", " ").Replace(subject))
	fmt.Fprintf(&b, "Date: %s\r\n", at.Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(b.String())
}
