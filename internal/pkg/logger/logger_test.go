package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(t *testing.T, level string) (*Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	l := NewLogger(&LogConfig{Level: level, Format: "json", Writer: &buf, ServiceName: "pos"})
	return l, &buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestLogger_ContextFields(t *testing.T) {
	l, buf := newBufferLogger(t, "info")

	ctx := WithValue(context.Background(), ContextKeyRequestID, "req-42")
	ctx = WithValue(ctx, ContextKeyOperatorID, "till-3")
	l.InfoContext(ctx, "sale committed", slog.Int64("sale_id", 7))

	entry := decodeLine(t, buf)
	assert.Equal(t, "sale committed", entry["msg"])
	assert.Equal(t, "INFO", entry["severity"])
	assert.Equal(t, "req-42", entry["request_id"])
	assert.Equal(t, "till-3", entry["operator_id"])
	assert.Equal(t, "pos", entry["service"])
	assert.EqualValues(t, 7, entry["sale_id"])
}

func TestLogger_LevelFiltering(t *testing.T) {
	l, buf := newBufferLogger(t, "warn")

	l.Info("dropped")
	assert.Zero(t, buf.Len())

	l.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestSanitizationHandler(t *testing.T) {
	tests := []struct {
		name  string
		attr  slog.Attr
		check func(t *testing.T, got any)
	}{
		{
			name: "password_key_redacted",
			attr: slog.String("db_password", "hunter2"),
			check: func(t *testing.T, got any) {
				assert.Equal(t, redacted, got)
			},
		},
		{
			name: "phone_masked",
			attr: slog.String("customer_phone", "5550100123"),
			check: func(t *testing.T, got any) {
				assert.Equal(t, "******0123", got)
			},
		},
		{
			name: "email_in_value_redacted",
			attr: slog.String("note", "contact jane@example.com"),
			check: func(t *testing.T, got any) {
				assert.Equal(t, "contact "+redacted, got)
			},
		},
		{
			name: "numbers_untouched",
			attr: slog.Int("quantity", 3),
			check: func(t *testing.T, got any) {
				assert.EqualValues(t, 3, got)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, buf := newBufferLogger(t, "info")
			l.LogAttrs(context.Background(), slog.LevelInfo, "event", tt.attr)
			entry := decodeLine(t, buf)
			tt.check(t, entry[tt.attr.Key])
		})
	}
}

func TestSanitizationHandler_Message(t *testing.T) {
	l, buf := newBufferLogger(t, "info")
	l.Info("connect failed password=abc123 token: xyz")

	msg := decodeLine(t, buf)["msg"].(string)
	assert.NotContains(t, msg, "abc123")
	assert.NotContains(t, msg, "xyz")
}

func TestPrettyTextHandler(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&LogConfig{Level: "debug", Format: "text", Writer: &buf})

	l.With(slog.String("component", "ledger")).Debug("locking items", slog.Int("count", 2))

	out := buf.String()
	assert.Contains(t, out, "locking items")
	assert.Contains(t, out, "component")
	assert.Contains(t, out, "count")
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestMaskPhone(t *testing.T) {
	assert.Equal(t, "***0100", MaskPhone("5550100"))
	assert.Equal(t, "***", MaskPhone("555"))
}

func TestErr(t *testing.T) {
	assert.Equal(t, "boom", Err(errors.New("boom")).Value.String())
}
