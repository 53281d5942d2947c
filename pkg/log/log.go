package log

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the module-wide root logger. Components never log through it
// directly; they derive a child via WithComponent so every line carries a
// stable component field.
var Logger zerolog.Logger

// Level names accepted by Init.
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config holds logging configuration.
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
}

// Init configures the global logger. An unknown or empty level falls back
// to info rather than erroring, so a bad flag never silences a run.
func Init(cfg Config) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(string(cfg.Level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	if !cfg.JSONOutput {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	Logger = zerolog.New(out).With().Timestamp().Logger()
}

// WithComponent derives a child of the global logger carrying a stable
// component field.
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// WithRunID stamps a run's correlation id onto base, so every line one
// engine run emits can be grouped across components.
func WithRunID(base zerolog.Logger, runID string) zerolog.Logger {
	return base.With().Str("run_id", runID).Logger()
}

// WithTaskID stamps a task's identity onto base, for lines scoped to one
// dispatch.
func WithTaskID(base zerolog.Logger, taskID string) zerolog.Logger {
	return base.With().Str("task_id", taskID).Logger()
}

// WithOutputKey stamps an output's id onto base, for lines scoped to one
// artifact.
func WithOutputKey(base zerolog.Logger, outputID string) zerolog.Logger {
	return base.With().Str("output_id", outputID).Logger()
}
