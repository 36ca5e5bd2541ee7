// Package observability provides the logging, metrics, and tracing used by
// the eventing fabric.
//
// Features:
//   - Structured logging via slog with consistent attribute keys
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// LogSettings captures the settings needed to build a slog logger.
type LogSettings struct {
	// Level is the textual log level (debug, info, warn, error).
	Level string
	// Format controls the output encoding (json or text).
	Format string
	// AddSource toggles slog's source attribution.
	AddSource bool
}

// ParseLevel converts textual levels into slog levels, defaulting to info.
func ParseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug", "dbg":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "err":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds a slog.Logger writing to w.
func NewLogger(w io.Writer, cfg LogSettings) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level), AddSource: cfg.AddSource}
	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts))
	default:
		return slog.New(slog.NewTextHandler(w, opts))
	}
}

// LogPublish logs a successful publish.
func LogPublish(logger *slog.Logger, eventType, messageID, channel string) {
	if logger == nil {
		return
	}
	logger.Debug("event published",
		slog.String("event_type", eventType),
		slog.String("message_id", messageID),
		slog.String("channel", channel),
	)
}

// LogDrop logs a message the router discarded before dispatch.
func LogDrop(logger *slog.Logger, channel, reason string, err error) {
	if logger == nil {
		return
	}
	attrs := []any{
		slog.String("channel", channel),
		slog.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	logger.Warn("message dropped", attrs...)
}

// LogDispatchError logs a handler failure. Sibling handlers still run.
func LogDispatchError(logger *slog.Logger, eventType, eventID, handler string, err error) {
	if logger == nil {
		return
	}
	logger.Error("event handler failed",
		slog.String("event_type", eventType),
		slog.String("event_id", eventID),
		slog.String("handler", handler),
		slog.String("error", err.Error()),
	)
}

// LogRequestTimeout logs a correlated request that expired without a response.
func LogRequestTimeout(logger *slog.Logger, requestID, kind string, waited time.Duration) {
	if logger == nil {
		return
	}
	logger.Warn("request timed out, using default",
		slog.String("request_id", requestID),
		slog.String("kind", kind),
		slog.Duration("waited", waited),
	)
}

// LogCompensation logs a compensation event being emitted for a failed mutation.
func LogCompensation(logger *slog.Logger, transactionID, compensationType, originalEventID, target string) {
	if logger == nil {
		return
	}
	logger.Warn("compensation published",
		slog.String("transaction_id", transactionID),
		slog.String("event_type", compensationType),
		slog.String("original_event_id", originalEventID),
		slog.String("target_aggregate_id", target),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time.
func TimedOperation() func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		return time.Since(start)
	}
}
