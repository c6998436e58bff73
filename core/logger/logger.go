// Package logger defines the logging contract shared by the board packages.
// Adapters live in infra/logger.
package logger

// Logger is the leveled logger handed to the engine, the committer and the
// service.
type Logger interface {
	Debugf(format string, args ...any)
	// Debugw logs msg with structured fields.
	Debugw(msg string, fields map[string]any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	// With returns a child logger that adds fields to every entry.
	With(fields map[string]any) Logger
}
