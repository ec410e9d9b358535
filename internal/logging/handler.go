// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tooldeck Contributors

// Package logging provides structured logging with OpenTelemetry trace
// context.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

// appHandler wraps a slog.Handler to stamp records with the application
// identity and, when present, the active trace context.
type appHandler struct {
	handler slog.Handler
	app     string
	version string
}

// Handle adds app identity and trace context to the log record.
func (h *appHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(
		slog.String("app", h.app),
		slog.String("version", h.version),
	)

	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.HasTraceID() {
		r.AddAttrs(slog.String("trace_id", spanCtx.TraceID().String()))
	}
	if spanCtx.HasSpanID() {
		r.AddAttrs(slog.String("span_id", spanCtx.SpanID().String()))
	}

	//nolint:wrapcheck // Handler interface requires unwrapped error passthrough
	return h.handler.Handle(ctx, r)
}

func (h *appHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *appHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &appHandler{handler: h.handler.WithAttrs(attrs), app: h.app, version: h.version}
}

func (h *appHandler) WithGroup(name string) slog.Handler {
	return &appHandler{handler: h.handler.WithGroup(name), app: h.app, version: h.version}
}

// ParseLevel maps a config string to a slog level. Unknown strings map to
// info rather than failing: logging should never stop the app.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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

// Setup creates a configured slog.Logger.
// format: "json" or "text" (defaults to "json" if empty)
// If w is nil, writes to os.Stderr.
func Setup(app, version, format string, level slog.Level, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: level}

	var base slog.Handler
	if format == "text" {
		base = slog.NewTextHandler(w, opts)
	} else {
		base = slog.NewJSONHandler(w, opts)
	}

	return slog.New(&appHandler{handler: base, app: app, version: version})
}

// SetDefault sets up and installs the process-wide default logger.
func SetDefault(app, version, format string, level slog.Level) {
	slog.SetDefault(Setup(app, version, format, level, nil))
}
