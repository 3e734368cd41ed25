// Package logging is the structured logger every sitestore component takes.
// SlogLogger is the log/slog implementation.
package logging

import "context"

// Logger logs a message with alternating key/value attributes:
//
//	logger.Info(ctx, "snapshot loaded", "source", "local", "bytes", n)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a logger that adds args to every record.
	With(args ...any) Logger
}
