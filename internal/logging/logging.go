// Package logging builds the storefront's slog loggers and carries
// request-scoped fields (request id, reseller) through the context.
//
// Handlers never write secrets or full email addresses: attributes named
// like credentials are redacted and addresses are masked, so logs can be
// shipped to third-party processors without a GDPR review per line.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	resellerKey  contextKey = "reseller"
	loggerKey    contextKey = "logger"
)

// Redacted replaces the value of sensitive attributes.
const Redacted = "[REDACTED]"

// sensitiveKeys are matched case-insensitively against attribute keys.
var sensitiveKeys = []string{"authorization", "password", "secret", "token", "api_key", "apikey", "signature"}

// emailKeys hold addresses to mask.
var emailKeys = map[string]bool{"email": true, "to": true, "from_email": true, "customer_email": true}

// New creates a logger writing to stdout.
func New(level, format string) *slog.Logger {
	return NewWithWriter(level, format, os.Stdout)
}

// NewWithWriter creates a logger writing to w. format is "json" or
// "text"; unknown levels mean info.
func NewWithWriter(level, format string, w io.Writer) *slog.Logger {
	lvl := ParseLevel(level)
	opts := &slog.HandlerOptions{
		Level:       lvl,
		AddSource:   lvl == slog.LevelDebug,
		ReplaceAttr: scrub,
	}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// ParseLevel maps debug, info, warn (or warning) and error to a level.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

func scrub(groups []string, a slog.Attr) slog.Attr {
	key := strings.ToLower(a.Key)
	for _, s := range sensitiveKeys {
		if strings.Contains(key, s) {
			return slog.String(a.Key, Redacted)
		}
	}
	if emailKeys[key] && a.Value.Kind() == slog.KindString {
		return slog.String(a.Key, MaskEmail(a.Value.String()))
	}
	return a
}

// MaskEmail keeps the first character of the local part and the domain:
// "marie.curie@example.fr" becomes "m***@example.fr". Values without an
// "@" are masked entirely.
func MaskEmail(addr string) string {
	local, domain, ok := strings.Cut(addr, "@")
	if !ok || local == "" {
		if addr == "" {
			return ""
		}
		return "***"
	}
	r := []rune(local)
	return string(r[0]) + "***@" + domain
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestID extracts the request ID from context
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithReseller tags the context with the reseller serving the request.
func WithReseller(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, resellerKey, id)
}

// Reseller extracts the reseller id from context.
func Reseller(ctx context.Context) string {
	id, _ := ctx.Value(resellerKey).(string)
	return id
}

// WithLogger adds a logger to the context
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the context's logger, or slog.Default.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// L returns the context's logger with the request id and reseller
// attached when known.
func L(ctx context.Context) *slog.Logger {
	logger := FromContext(ctx)
	var attrs []any
	if reqID := RequestID(ctx); reqID != "" {
		attrs = append(attrs, "request_id", reqID)
	}
	if id := Reseller(ctx); id != "" {
		attrs = append(attrs, "reseller", id)
	}
	if len(attrs) == 0 {
		return logger
	}
	return logger.With(attrs...)
}
