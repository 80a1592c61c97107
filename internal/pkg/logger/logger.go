// internal/pkg/logger/logger.go
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// ContextKey represents keys for context values
type ContextKey string

const (
	// Context keys picked up by ContextHandler
	ContextKeyRequestID  ContextKey = "request_id"
	ContextKeyOperatorID ContextKey = "operator_id"
	ContextKeyClientIP   ContextKey = "client_ip"
	ContextKeyUserAgent  ContextKey = "user_agent"
	ContextKeyMethod     ContextKey = "method"
	ContextKeyPath       ContextKey = "path"
	ContextKeyTaskID     ContextKey = "task_id"
	ContextKeyTaskType   ContextKey = "task_type"
)

// LogConfig holds logger configuration
type LogConfig struct {
	Level          string    `json:"level"`
	Format         string    `json:"format"`
	Output         string    `json:"output"`
	AddSource      bool      `json:"add_source"`
	Environment    string    `json:"environment"`
	ServiceName    string    `json:"service_name"`
	ServiceVersion string    `json:"service_version"`
	Writer         io.Writer `json:"-"`
}

// Logger wraps slog.Logger with the configuration it was built from
type Logger struct {
	*slog.Logger
	config *LogConfig
}

// SetupLogger builds the process logger and installs it as the slog default
func SetupLogger(level string, format string) *Logger {
	l := NewLogger(&LogConfig{
		Level:          level,
		Format:         format,
		Output:         "stdout",
		AddSource:      level == "debug",
		ServiceName:    os.Getenv("SERVICE_NAME"),
		ServiceVersion: os.Getenv("SERVICE_VERSION"),
		Environment:    os.Getenv("APP_ENV"),
	})
	slog.SetDefault(l.Logger)
	return l
}

// NewLogger creates a logger whose records carry context values and are
// scrubbed of secrets and customer contact details
func NewLogger(config *LogConfig) *Logger {
	if config == nil {
		config = &LogConfig{Level: "info", Format: "json", Output: "stdout"}
	}

	opts := &slog.HandlerOptions{
		Level:     ParseLevel(config.Level),
		AddSource: config.AddSource,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			return replaceAttr(config, groups, a)
		},
	}

	writer := config.Writer
	if writer == nil {
		writer = getWriter(config.Output)
	}

	var handler slog.Handler
	switch config.Format {
	case "text":
		handler = NewPrettyTextHandler(writer, opts)
	default:
		handler = slog.NewJSONHandler(writer, opts)
	}

	handler = NewContextHandler(handler)
	handler = NewSanitizationHandler(handler)

	var attrs []slog.Attr
	if config.ServiceName != "" {
		attrs = append(attrs, slog.String("service", config.ServiceName))
	}
	if config.ServiceVersion != "" {
		attrs = append(attrs, slog.String("version", config.ServiceVersion))
	}
	if config.Environment != "" {
		attrs = append(attrs, slog.String("env", config.Environment))
	}
	if len(attrs) > 0 {
		handler = handler.WithAttrs(attrs)
	}

	return &Logger{Logger: slog.New(handler), config: config}
}

// ParseLevel maps a level name to a slog level, defaulting to info
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getWriter(output string) io.Writer {
	switch {
	case output == "stderr":
		return os.Stderr
	case strings.HasPrefix(output, "file:"):
		file, err := os.OpenFile(strings.TrimPrefix(output, "file:"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return os.Stdout
		}
		return file
	default:
		return os.Stdout
	}
}

func contextKeys() []ContextKey {
	return []ContextKey{
		ContextKeyRequestID,
		ContextKeyOperatorID,
		ContextKeyClientIP,
		ContextKeyUserAgent,
		ContextKeyMethod,
		ContextKeyPath,
		ContextKeyTaskID,
		ContextKeyTaskType,
	}
}

func extractContextAttrs(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	var attrs []slog.Attr
	for _, key := range contextKeys() {
		switch v := ctx.Value(key).(type) {
		case nil:
		case string:
			if v != "" {
				attrs = append(attrs, slog.String(string(key), v))
			}
		default:
			attrs = append(attrs, slog.Any(string(key), v))
		}
	}
	return attrs
}

func replaceAttr(config *LogConfig, _ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey {
		if t, ok := a.Value.Any().(time.Time); ok {
			a.Value = slog.StringValue(t.Format(time.RFC3339Nano))
		}
	}

	if a.Key == slog.LevelKey && config.Format != "text" {
		a.Key = "severity"
	}

	if strings.HasSuffix(a.Key, "_ms") {
		if d, ok := a.Value.Any().(time.Duration); ok {
			a.Value = slog.Float64Value(float64(d.Microseconds()) / 1000)
		}
	}

	return a
}

// WithValue stores a log field in ctx for ContextHandler to emit
func WithValue(ctx context.Context, key ContextKey, value string) context.Context {
	return context.WithValue(ctx, key, value)
}

// StringFromContext returns a string log field stored in ctx
func StringFromContext(ctx context.Context, key ContextKey) string {
	v, _ := ctx.Value(key).(string)
	return v
}

// Err formats an error as a log attribute
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}
