// Package logging provides the minimal Logger interface used across creo and
// adapters around log/slog.
//
//   - Logger for dependency injection into registry, dispatcher, agents and tools
//   - SlogAdapter wrapping *slog.Logger
//   - ContextLogger adding component / session / user attributes and domain
//     helpers for turns, stage transitions, model and tool calls
//   - NoOpLogger for silent operation (tests, embedding)
//
// Usage:
//
//	logger := logging.NewLogger(&logging.LoggerConfig{Level: logging.LogLevelInfo, Format: "text", Output: os.Stderr})
//	d := dispatch.New(registry, hub, func(o *dispatch.Options) { o.Logger = logger })
//
// Messages are dotted event names ("dispatch.turn.complete") followed by
// key/value pairs.
package logging
