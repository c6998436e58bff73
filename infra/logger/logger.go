package logger

import corelogger "github.com/kilianp07/dispatchboard/core/logger"

// Logger is the core logger contract.
type Logger = corelogger.Logger

// NopLogger discards everything. Tests and the offline planner use it.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...any)         {}
func (NopLogger) Debugw(string, map[string]any) {}
func (NopLogger) Infof(string, ...any)          {}
func (NopLogger) Warnf(string, ...any)          {}
func (NopLogger) Errorf(string, ...any)         {}

func (n NopLogger) With(map[string]any) Logger { return n }

// New returns the zerolog logger of a board component.
func New(component string) Logger {
	return NewZerologLogger(component)
}
