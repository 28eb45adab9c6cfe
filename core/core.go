package core

import "github.com/oron-mozes/creo-sub000/logging"

// loggerAdapter gives run and tool contexts Log* methods. Every record carries
// the adapter's base attributes first, so agent and tool logs of one run can be
// joined with the dispatcher's on session_id and run.
type loggerAdapter struct {
	logger logging.Logger
	base   []any
}

func newLoggerAdapter(l logging.Logger, base ...any) *loggerAdapter {
	if l == nil {
		l = logging.NoOpLogger{}
	}
	return &loggerAdapter{logger: l, base: base}
}

// Logger returns the underlying logger without the base attributes.
func (l *loggerAdapter) Logger() logging.Logger { return l.logger }

func (l *loggerAdapter) with(args []any) []any {
	if len(l.base) == 0 {
		return args
	}
	out := make([]any, 0, len(l.base)+len(args))
	out = append(out, l.base...)
	return append(out, args...)
}

// LogDebug logs at debug level.
func (l *loggerAdapter) LogDebug(msg string, args ...any) { l.logger.Debug(msg, l.with(args)...) }

// LogInfo logs at info level.
func (l *loggerAdapter) LogInfo(msg string, args ...any) { l.logger.Info(msg, l.with(args)...) }

// LogWarn logs at warn level.
func (l *loggerAdapter) LogWarn(msg string, args ...any) { l.logger.Warn(msg, l.with(args)...) }

// LogError logs at error level.
func (l *loggerAdapter) LogError(msg string, args ...any) { l.logger.Error(msg, l.with(args)...) }
