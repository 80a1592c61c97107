// internal/workers/notifier_test.go
package workers

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammerola/pharmacy-pos/internal/pkg/config"
)

func notifierConfig(env string, enabled bool) *config.Config {
	return &config.Config{
		App: config.AppConfig{Environment: env},
		Notifications: config.NotificationsConfig{
			Enabled:  enabled,
			SMTPHost: "smtp.pharmacy.local",
			SMTPPort: "587",
			From:     "POS <pos@pharmacy.local>",
			To:       []string{"manager@pharmacy.local"},
		},
	}
}

func TestNewNotifier(t *testing.T) {
	tests := []struct {
		name     string
		cfg      *config.Config
		wantSMTP bool
		wantErr  string
	}{
		{name: "disabled_logs_only", cfg: notifierConfig("production", false)},
		{name: "development_logs_only", cfg: notifierConfig("development", true)},
		{name: "enabled_uses_smtp", cfg: notifierConfig("production", true), wantSMTP: true},
		{
			name: "invalid_sender",
			cfg: func() *config.Config {
				c := notifierConfig("production", true)
				c.Notifications.From = "not an address"
				return c
			}(),
			wantErr: "invalid sender",
		},
		{
			name: "missing_recipients",
			cfg: func() *config.Config {
				c := notifierConfig("production", true)
				c.Notifications.To = nil
				return c
			}(),
			wantErr: "without recipients",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := NewNotifier(tt.cfg, quietLogger())
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			_, isSMTP := n.(*SMTPNotifier)
			assert.Equal(t, tt.wantSMTP, isSMTP)
		})
	}
}

func TestSMTPNotifier_Notify(t *testing.T) {
	n, err := NewNotifier(notifierConfig("production", true), quietLogger())
	require.NoError(t, err)
	smtpNotifier := n.(*SMTPNotifier)

	var (
		gotAddr string
		gotFrom string
		gotTo   []string
		gotMsg  string
	)
	smtpNotifier.sendMail = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, string(msg)
		return nil
	}

	require.NoError(t, smtpNotifier.Notify(context.Background(), "Low stock\r\nBcc: x@y", "line one\nline two"))
	assert.Equal(t, "smtp.pharmacy.local:587", gotAddr)
	assert.Equal(t, "pos@pharmacy.local", gotFrom)
	assert.Equal(t, []string{"manager@pharmacy.local"}, gotTo)
	assert.Contains(t, gotMsg, "Subject: Low stock Bcc: x@y\r\n")
	assert.Contains(t, gotMsg, "line one\r\nline two")

	smtpNotifier.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("relay denied")
	}
	assert.ErrorContains(t, smtpNotifier.Notify(context.Background(), "s", "b"), "relay denied")
}

func TestBuildMessage(t *testing.T) {
	at := time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)
	msg := string(buildMessage("a@b.c", []string{"x@y.z", "w@y.z"}, "Hello", "Body", at))

	head, body, ok := strings.Cut(msg, "\r\n\r\n")
	require.True(t, ok)
	assert.Contains(t, head, "To: x@y.z, w@y.z")
	assert.Contains(t, head, "Date: Thu, 15 Oct 2026 09:30:00 +0000")
	assert.Equal(t, "Body", body)
}
