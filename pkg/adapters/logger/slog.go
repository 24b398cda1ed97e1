// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-tcp-keystore.
//
// go-tcp-keystore is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package logger

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/jeremyhahn/go-tcp-keystore/pkg/correlation"
)

// SlogAdapter wraps a slog.Logger to implement the Logger interface
type SlogAdapter struct {
	logger *slog.Logger
}

// SlogConfig configures the slog adapter
type SlogConfig struct {
	// Logger is used as is when set.
	Logger *slog.Logger

	// Level is the minimum log level to output
	Level Level

	// Format selects "json" or "text" output when Logger is nil.
	Format string

	// Output defaults to os.Stderr.
	Output io.Writer

	AddSource bool
}

// NewSlogAdapter creates a new slog adapter
func NewSlogAdapter(config *SlogConfig) *SlogAdapter {
	if config == nil {
		config = &SlogConfig{}
	}
	if config.Logger != nil {
		return &SlogAdapter{logger: config.Logger}
	}

	out := config.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{
		Level:     levelToSlogLevel(config.Level),
		AddSource: config.AddSource,
	}
	var handler slog.Handler
	if config.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	return &SlogAdapter{logger: slog.New(handler)}
}

// Slog returns the underlying slog logger.
func (l *SlogAdapter) Slog() *slog.Logger {
	return l.logger
}

func (l *SlogAdapter) Debug(msg string, fields ...Field) {
	l.log(context.Background(), slog.LevelDebug, msg, fields)
}

func (l *SlogAdapter) Info(msg string, fields ...Field) {
	l.log(context.Background(), slog.LevelInfo, msg, fields)
}

func (l *SlogAdapter) Warn(msg string, fields ...Field) {
	l.log(context.Background(), slog.LevelWarn, msg, fields)
}

func (l *SlogAdapter) Error(msg string, fields ...Field) {
	l.log(context.Background(), slog.LevelError, msg, fields)
}

// DebugContext logs with the session ID found in ctx.
func (l *SlogAdapter) DebugContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, slog.LevelDebug, msg, withSession(ctx, fields))
}

// InfoContext logs with the session ID found in ctx.
func (l *SlogAdapter) InfoContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, slog.LevelInfo, msg, withSession(ctx, fields))
}

// WarnContext logs with the session ID found in ctx.
func (l *SlogAdapter) WarnContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, slog.LevelWarn, msg, withSession(ctx, fields))
}

// ErrorContext logs with the session ID found in ctx.
func (l *SlogAdapter) ErrorContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, slog.LevelError, msg, withSession(ctx, fields))
}

// With creates a child logger with the given fields
func (l *SlogAdapter) With(fields ...Field) Logger {
	return &SlogAdapter{logger: l.logger.With(toAny(fields)...)}
}

func (l *SlogAdapter) log(ctx context.Context, level slog.Level, msg string, fields []Field) {
	if !l.logger.Enabled(ctx, level) {
		return
	}
	attrs := make([]slog.Attr, 0, len(fields))
	for _, f := range fields {
		attrs = append(attrs, fieldToAttr(f))
	}
	l.logger.LogAttrs(ctx, level, msg, attrs...)
}

func withSession(ctx context.Context, fields []Field) []Field {
	if id := correlation.SessionID(ctx); id != "" {
		fields = append(fields, String("session", id))
	}
	if id := correlation.RequestID(ctx); id != "" {
		fields = append(fields, String("request_id", id))
	}
	return fields
}

func fieldToAttr(field Field) slog.Attr {
	switch v := field.Value.(type) {
	case string:
		return slog.String(field.Key, v)
	case int:
		return slog.Int(field.Key, v)
	case bool:
		return slog.Bool(field.Key, v)
	case error:
		return slog.String(field.Key, v.Error())
	default:
		return slog.Any(field.Key, v)
	}
}

func toAny(fields []Field) []any {
	result := make([]any, len(fields))
	for i, f := range fields {
		result[i] = fieldToAttr(f)
	}
	return result
}

func levelToSlogLevel(level Level) slog.Level {
	switch level {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
