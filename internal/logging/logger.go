// Package logging is the structured logger used by the client and the
// development server. SlogLogger is the only real backend.
package logging

import "context"

// Logger logs with key/value attributes, for example
//
//	log.Info(ctx, "refresh finished", "request_id", id, "coalesced", n)
//
// Token values are never passed as attributes.
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that adds args to every record.
	With(args ...any) Logger
}

type nopLogger struct{}

// Discard returns a Logger that drops every record. Components built
// without a logger fall back to it.
func Discard() Logger { return nopLogger{} }

func (nopLogger) Debug(context.Context, string, ...any) {}
func (nopLogger) Info(context.Context, string, ...any)  {}
func (nopLogger) Warn(context.Context, string, ...any)  {}
func (nopLogger) Error(context.Context, string, ...any) {}
func (n nopLogger) With(...any) Logger                  { return n }
