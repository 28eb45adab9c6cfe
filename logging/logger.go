package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogLevel is a user-facing level decoupled from slog.
type LogLevel int

const (
	// LogLevelDebug is the debug logging level.
	LogLevelDebug LogLevel = iota
	// LogLevelInfo is the informational logging level.
	LogLevelInfo
	// LogLevelWarn is the warning logging level.
	LogLevelWarn
	// LogLevelError is the error logging level.
	LogLevelError
)

// String returns the upper-case level name.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps config text to a LogLevel, defaulting to info.
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LogLevelDebug
	case "warn", "warning":
		return LogLevelWarn
	case "error":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

// Logger is the logging surface every component depends on. Arguments after
// msg are alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// SlogAdapter wraps *slog.Logger to implement Logger.
type SlogAdapter struct {
	*slog.Logger
}

// Debug logs a debug message.
func (s *SlogAdapter) Debug(msg string, args ...any) { s.Logger.Debug(msg, args...) }

// Info logs an informational message.
func (s *SlogAdapter) Info(msg string, args ...any) { s.Logger.Info(msg, args...) }

// Warn logs a warning message.
func (s *SlogAdapter) Warn(msg string, args ...any) { s.Logger.Warn(msg, args...) }

// Error logs an error message.
func (s *SlogAdapter) Error(msg string, args ...any) { s.Logger.Error(msg, args...) }

// NewSlogAdapter creates a Logger from *slog.Logger.
func NewSlogAdapter(logger *slog.Logger) Logger {
	return &SlogAdapter{Logger: logger}
}

// LoggerConfig configures NewLogger.
type LoggerConfig struct {
	Level     LogLevel
	Format    string // json or text
	Output    io.Writer
	AddSource bool
	Component string
	// LevelVar, when set, overrides Level and can be changed at runtime.
	LevelVar *slog.LevelVar
}

// DefaultLoggerConfig returns a JSON, info level configuration writing to stderr.
func DefaultLoggerConfig() *LoggerConfig {
	return &LoggerConfig{Level: LogLevelInfo, Format: "json", Output: os.Stderr}
}

// ContextLogger is a slog-backed Logger carrying fixed contextual attributes.
// With* methods return copies; the receiver is never mutated.
type ContextLogger struct {
	logger    *slog.Logger
	component string
	sessionID string
	userID    string
	attrs     []any
}

// NewLogger builds a ContextLogger from cfg (or defaults when nil).
func NewLogger(cfg *LoggerConfig) *ContextLogger {
	if cfg == nil {
		cfg = DefaultLoggerConfig()
	}
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: slogLevel(cfg.Level), AddSource: cfg.AddSource}
	if cfg.LevelVar != nil {
		opts.Level = cfg.LevelVar
	}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}

	return &ContextLogger{logger: slog.New(handler), component: cfg.Component}
}

// Slog returns the equivalent slog level.
func (l LogLevel) Slog() slog.Level { return slogLevel(l) }

func slogLevel(l LogLevel) slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (l *ContextLogger) clone() *ContextLogger {
	nl := *l
	nl.attrs = append([]any(nil), l.attrs...)
	return &nl
}

// WithComponent sets the component attribute (registry, dispatch, agent...).
func (l *ContextLogger) WithComponent(c string) *ContextLogger {
	nl := l.clone()
	nl.component = c
	return nl
}

// WithSession attaches session and user identifiers.
func (l *ContextLogger) WithSession(sessionID, userID string) *ContextLogger {
	nl := l.clone()
	nl.sessionID = sessionID
	nl.userID = userID
	return nl
}

// WithContext adds a key/value attribute to every entry.
func (l *ContextLogger) WithContext(key string, value any) *ContextLogger {
	nl := l.clone()
	nl.attrs = append(nl.attrs, key, value)
	return nl
}

func (l *ContextLogger) args(extra []any) []any {
	out := make([]any, 0, len(l.attrs)+len(extra)+6)
	if l.component != "" {
		out = append(out, "component", l.component)
	}
	if l.sessionID != "" {
		out = append(out, "session_id", l.sessionID)
	}
	if l.userID != "" {
		out = append(out, "user_id", l.userID)
	}
	out = append(out, l.attrs...)
	return append(out, extra...)
}

func (l *ContextLogger) log(level slog.Level, msg string, args ...any) {
	l.logger.Log(context.Background(), level, msg, l.args(args)...)
}

// Debug logs at debug level.
func (l *ContextLogger) Debug(msg string, args ...any) { l.log(slog.LevelDebug, msg, args...) }

// Info logs at info level.
func (l *ContextLogger) Info(msg string, args ...any) { l.log(slog.LevelInfo, msg, args...) }

// Warn logs at warn level.
func (l *ContextLogger) Warn(msg string, args ...any) { l.log(slog.LevelWarn, msg, args...) }

// Error logs at error level.
func (l *ContextLogger) Error(msg string, args ...any) { l.log(slog.LevelError, msg, args...) }

// LogTurn records the outcome of a dispatched turn. Degraded outcomes log at warn.
func (l *ContextLogger) LogTurn(outcome string, degraded bool, attrs ...any) {
	level := slog.LevelInfo
	if degraded {
		level = slog.LevelWarn
	}
	l.log(level, "dispatch.turn.complete", append([]any{"outcome", outcome}, attrs...)...)
}

// LogStageTransition records a workflow stage change.
func (l *ContextLogger) LogStageTransition(from, to, cause string) {
	l.log(slog.LevelInfo, "session.stage.transition", "from", from, "to", to, "cause", cause)
}

// NoOpLogger discards all log messages.
type NoOpLogger struct{}

// Debug discards the message.
func (NoOpLogger) Debug(string, ...any) {}

// Info discards the message.
func (NoOpLogger) Info(string, ...any) {}

// Warn discards the message.
func (NoOpLogger) Warn(string, ...any) {}

// Error discards the message.
func (NoOpLogger) Error(string, ...any) {}

// TurnLogger is implemented by loggers with turn and stage helpers.
type TurnLogger interface {
	Logger
	LogTurn(outcome string, degraded bool, attrs ...any)
	LogStageTransition(from, to, cause string)
}

// LogTurn uses l's helper when available and falls back to plain Info/Warn.
func LogTurn(l Logger, outcome string, degraded bool, attrs ...any) {
	if tl, ok := l.(TurnLogger); ok {
		tl.LogTurn(outcome, degraded, attrs...)
		return
	}
	args := append([]any{"outcome", outcome}, attrs...)
	if degraded {
		l.Warn("dispatch.turn.complete", args...)
		return
	}
	l.Info("dispatch.turn.complete", args...)
}

// LogStageTransition uses l's helper when available.
func LogStageTransition(l Logger, from, to, cause string) {
	if tl, ok := l.(TurnLogger); ok {
		tl.LogStageTransition(from, to, cause)
		return
	}
	l.Info("session.stage.transition", "from", from, "to", to, "cause", cause)
}
