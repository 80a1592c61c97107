// internal/pkg/logger/handlers.go
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"sync"
)

// ContextHandler adds request and task values from the context to each record
type ContextHandler struct {
	handler slog.Handler
}

// NewContextHandler creates a handler that enriches logs with context values
func NewContextHandler(handler slog.Handler) *ContextHandler {
	return &ContextHandler{handler: handler}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, record slog.Record) error {
	if attrs := extractContextAttrs(ctx); len(attrs) > 0 {
		record = record.Clone()
		record.AddAttrs(attrs...)
	}
	return h.handler.Handle(ctx, record)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{handler: h.handler.WithAttrs(attrs)}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{handler: h.handler.WithGroup(name)}
}

const redacted = "***REDACTED***"

var (
	credentialPattern = regexp.MustCompile(`(?i)(password|pwd|secret|token|api[-_]?key)\s*[:=]\s*["']?([^"'\s]+)`)
	emailPattern      = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	cardPattern       = regexp.MustCompile(`\b(?:\d{4}[-\s]?){3}\d{4}\b`)
)

// SanitizationHandler masks credentials and customer contact details
type SanitizationHandler struct {
	handler   slog.Handler
	blacklist []string
	phoneKeys []string
}

// NewSanitizationHandler creates a handler that sanitizes sensitive data
func NewSanitizationHandler(handler slog.Handler) *SanitizationHandler {
	return &SanitizationHandler{
		handler:   handler,
		blacklist: []string{"password", "pwd", "secret", "token", "api_key", "credit_card"},
		phoneKeys: []string{"phone"},
	}
}

func (h *SanitizationHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *SanitizationHandler) Handle(ctx context.Context, record slog.Record) error {
	clean := slog.NewRecord(record.Time, record.Level, sanitizeString(record.Message), record.PC)
	record.Attrs(func(a slog.Attr) bool {
		clean.AddAttrs(h.sanitizeAttr(a))
		return true
	})
	return h.handler.Handle(ctx, clean)
}

func (h *SanitizationHandler) sanitizeAttr(attr slog.Attr) slog.Attr {
	lowerKey := strings.ToLower(attr.Key)
	for _, word := range h.blacklist {
		if strings.Contains(lowerKey, word) {
			return slog.String(attr.Key, redacted)
		}
	}

	switch attr.Value.Kind() {
	case slog.KindGroup:
		group := attr.Value.Group()
		out := make([]any, 0, len(group))
		for _, a := range group {
			out = append(out, h.sanitizeAttr(a))
		}
		return slog.Group(attr.Key, out...)
	case slog.KindString:
		for _, word := range h.phoneKeys {
			if strings.Contains(lowerKey, word) {
				return slog.String(attr.Key, MaskPhone(attr.Value.String()))
			}
		}
		return slog.String(attr.Key, sanitizeString(attr.Value.String()))
	}
	return attr
}

func sanitizeString(s string) string {
	s = credentialPattern.ReplaceAllString(s, "$1="+redacted)
	s = emailPattern.ReplaceAllString(s, redacted)
	return cardPattern.ReplaceAllString(s, redacted)
}

// MaskPhone keeps only the last four digits of a phone number
func MaskPhone(phone string) string {
	if len(phone) <= 4 {
		return strings.Repeat("*", len(phone))
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}

func (h *SanitizationHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clean := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		clean[i] = h.sanitizeAttr(a)
	}
	return &SanitizationHandler{
		handler:   h.handler.WithAttrs(clean),
		blacklist: h.blacklist,
		phoneKeys: h.phoneKeys,
	}
}

func (h *SanitizationHandler) WithGroup(name string) slog.Handler {
	return &SanitizationHandler{
		handler:   h.handler.WithGroup(name),
		blacklist: h.blacklist,
		phoneKeys: h.phoneKeys,
	}
}

// PrettyTextHandler provides human-readable colored output for development
type PrettyTextHandler struct {
	opts  *slog.HandlerOptions
	attrs []slog.Attr
	mu    *sync.Mutex
	w     io.Writer
}

// NewPrettyTextHandler creates a pretty text handler
func NewPrettyTextHandler(w io.Writer, opts *slog.HandlerOptions) *PrettyTextHandler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	return &PrettyTextHandler{opts: opts, mu: &sync.Mutex{}, w: w}
}

func (h *PrettyTextHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

func (h *PrettyTextHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	const reset = "\033[0m"
	level := r.Level.String()

	var b strings.Builder
	fmt.Fprintf(&b, "%s%s %-5s%s %s",
		levelColor(r.Level),
		r.Time.Format("2006-01-02 15:04:05.000"),
		level,
		reset,
		r.Message,
	)

	write := func(a slog.Attr) bool {
		fmt.Fprintf(&b, " \033[36m%s\033[0m=%v", a.Key, a.Value)
		return true
	}
	for _, a := range h.attrs {
		write(a)
	}
	r.Attrs(write)
	b.WriteByte('\n')

	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *PrettyTextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &PrettyTextHandler{
		opts:  h.opts,
		attrs: append(append([]slog.Attr{}, h.attrs...), attrs...),
		mu:    h.mu,
		w:     h.w,
	}
}

// WithGroup is a no-op; development output stays flat
func (h *PrettyTextHandler) WithGroup(string) slog.Handler {
	return h
}

func levelColor(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "\033[31m"
	case level >= slog.LevelWarn:
		return "\033[33m"
	case level >= slog.LevelInfo:
		return "\033[34m"
	default:
		return "\033[37m"
	}
}
