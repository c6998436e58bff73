package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config controls the level and output format of every logger.
type Config struct {
	// Level is a zerolog level name such as "debug" or "warn".
	Level string `json:"level"`
	// Format is "json" or "console". APP_ENV=dev forces console output.
	Format string `json:"format"`
}

var (
	formatMu sync.RWMutex
	console  bool
)

// Configure applies cfg globally. Loggers created afterwards pick up the
// output format; the level applies immediately.
func Configure(cfg Config) error {
	if cfg.Level != "" {
		lvl, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return fmt.Errorf("logger: %w", err)
		}
		zerolog.SetGlobalLevel(lvl)
	}
	switch strings.ToLower(cfg.Format) {
	case "", "json":
		setConsole(false)
	case "console":
		setConsole(true)
	default:
		return fmt.Errorf("logger: unknown format %q", cfg.Format)
	}
	return nil
}

func setConsole(v bool) {
	formatMu.Lock()
	console = v
	formatMu.Unlock()
}

func useConsole() bool {
	if strings.ToLower(os.Getenv("APP_ENV")) == "dev" {
		return true
	}
	formatMu.RLock()
	defer formatMu.RUnlock()
	return console
}

// ZerologLogger implements Logger using rs/zerolog.
type ZerologLogger struct {
	log zerolog.Logger
}

// NewZerologLogger creates a logger writing to stdout. All logs include the
// provided component field.
func NewZerologLogger(component string) Logger {
	return NewWithWriter(component, os.Stdout)
}

// NewWithWriter creates a logger writing to w.
func NewWithWriter(component string, w io.Writer) Logger {
	if useConsole() {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	z := zerolog.New(w).With().Timestamp().Str("component", component).Logger()
	return &ZerologLogger{log: z}
}

func (l *ZerologLogger) Debugf(format string, args ...any) {
	l.log.Debug().Msgf(format, args...)
}

func (l *ZerologLogger) Debugw(msg string, fields map[string]any) {
	l.log.Debug().Fields(fields).Msg(msg)
}

func (l *ZerologLogger) Infof(format string, args ...any) {
	l.log.Info().Msgf(format, args...)
}

func (l *ZerologLogger) Warnf(format string, args ...any) {
	l.log.Warn().Msgf(format, args...)
}

func (l *ZerologLogger) Errorf(format string, args ...any) {
	l.log.Error().Msgf(format, args...)
}

func (l *ZerologLogger) With(fields map[string]any) Logger {
	return &ZerologLogger{log: l.log.With().Fields(fields).Logger()}
}
