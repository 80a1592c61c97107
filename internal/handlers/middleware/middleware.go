// internal/handlers/middleware/middleware.go
package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/ammerola/pharmacy-pos/internal/pkg/logger"
)

// Middleware wraps an http.Handler
type Middleware func(http.Handler) http.Handler

// Chain applies middlewares so the first one listed runs first
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for _, mw := range slices.Backward(mws) {
		h = mw(h)
	}
	return h
}

// RequestID adds a unique request ID to each request, reusing one set by a proxy
func RequestID(header string) Middleware {
	if header == "" {
		header = "X-Request-ID"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(header)
			if requestID == "" || len(requestID) > 128 {
				requestID = uuid.New().String()
			}

			w.Header().Set(header, requestID)
			ctx := logger.WithValue(r.Context(), logger.ContextKeyRequestID, requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Operator copies the operator identity header into the request context.
// Handlers decide whether an operator is required.
func Operator(header string) Middleware {
	if header == "" {
		header = "X-Operator-ID"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if op := strings.TrimSpace(r.Header.Get(header)); op != "" {
				r = r.WithContext(logger.WithValue(r.Context(), logger.ContextKeyOperatorID, op))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// OperatorID returns the operator stored by Operator
func OperatorID(ctx context.Context) string {
	return logger.StringFromContext(ctx, logger.ContextKeyOperatorID)
}

// Logger logs every request once it completes
func Logger(l *slog.Logger, trustedProxies []string) Middleware {
	l = l.With(slog.String("component", "http"))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ctx := r.Context()
			ctx = logger.WithValue(ctx, logger.ContextKeyClientIP, ClientIP(r, trustedProxies))
			ctx = logger.WithValue(ctx, logger.ContextKeyUserAgent, r.UserAgent())
			ctx = logger.WithValue(ctx, logger.ContextKeyMethod, r.Method)
			ctx = logger.WithValue(ctx, logger.ContextKeyPath, r.URL.Path)

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r.WithContext(ctx))

			duration := time.Since(start)
			level := slog.LevelInfo
			switch {
			case wrapped.statusCode >= 500:
				level = slog.LevelError
			case wrapped.statusCode >= 400, duration > 5*time.Second:
				level = slog.LevelWarn
			}

			l.Log(ctx, level, "request completed",
				slog.String("query", r.URL.RawQuery),
				slog.Int("status", wrapped.statusCode),
				slog.Int("bytes", wrapped.bytesWritten),
				slog.Duration("duration_ms", duration),
			)
		})
	}
}

// Recovery recovers from panics and answers 500
func Recovery(l *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				requestID := logger.StringFromContext(r.Context(), logger.ContextKeyRequestID)
				l.ErrorContext(r.Context(), "panic recovered",
					slog.Any("panic", rec),
					slog.String("stack", string(debug.Stack())),
				)
				writeJSONError(w, http.StatusInternalServerError, "internal server error", requestID)
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimiter limits requests per client IP
type RateLimiter struct {
	limiters       sync.Map
	limit          rate.Limit
	burst          int
	trustedProxies []string
}

type rateLimiter struct {
	limiter  *rate.Limiter
	mu       sync.Mutex
	lastSeen time.Time
}

// NewRateLimiter allows requests per duration for each client IP. Idle
// limiters are evicted until ctx is done.
func NewRateLimiter(ctx context.Context, requests int, duration time.Duration, trustedProxies []string) *RateLimiter {
	requests = max(requests, 1)
	if duration <= 0 {
		duration = time.Minute
	}
	rl := &RateLimiter{
		limit:          rate.Every(duration / time.Duration(requests)),
		burst:          requests,
		trustedProxies: trustedProxies,
	}
	go rl.evict(ctx, 10*time.Minute)
	return rl
}

func (rl *RateLimiter) evict(ctx context.Context, idle time.Duration) {
	ticker := time.NewTicker(idle)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			rl.limiters.Range(func(key, value any) bool {
				l := value.(*rateLimiter)
				l.mu.Lock()
				stale := now.Sub(l.lastSeen) > idle
				l.mu.Unlock()
				if stale {
					rl.limiters.Delete(key)
				}
				return true
			})
		}
	}
}

// Middleware answers 429 once a client exceeds its budget
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := ClientIP(r, rl.trustedProxies)
		val, _ := rl.limiters.LoadOrStore(ip, &rateLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)})
		l := val.(*rateLimiter)

		l.mu.Lock()
		l.lastSeen = time.Now()
		l.mu.Unlock()

		if !l.limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded",
				logger.StringFromContext(r.Context(), logger.ContextKeyRequestID))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// CORS handles Cross-Origin Resource Sharing
func CORS(allowedOrigins []string) Middleware {
	wildcard := slices.Contains(allowedOrigins, "*")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && (wildcard || slices.Contains(allowedOrigins, origin)) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, X-Request-ID, X-Operator-ID, Idempotency-Key")
				w.Header().Set("Access-Control-Expose-Headers", "X-Request-ID, Content-Disposition")
				w.Header().Set("Access-Control-Max-Age", "86400")
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SecureHeaders adds security headers
func SecureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		if r.TLS != nil {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		next.ServeHTTP(w, r)
	})
}

// Timeout bounds the request context. Handlers observe the deadline through
// the context they pass to services.
func Timeout(timeout time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		if timeout <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
	written      bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.ResponseWriter.WriteHeader(code)
		rw.written = true
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}

// Flush lets streaming handlers push partial responses
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the underlying writer to http.ResponseController
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// ClientIP returns the caller address. Forwarding headers are honored only
// when the direct peer is a trusted proxy.
func ClientIP(r *http.Request, trustedProxies []string) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if !slices.Contains(trustedProxies, host) {
		return host
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return host
}

func writeJSONError(w http.ResponseWriter, status int, message, requestID string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":      message,
		"request_id": requestID,
	})
}
