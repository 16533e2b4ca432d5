// Package logging provides a minimal logging interface and adapters for agent
// teams.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that agents, tools and the orchestrator use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - TeamLogger with component scoping and domain helpers
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewLogger(&logging.LoggerConfig{Level: logging.LogLevelDebug, Format: "text", Output: os.Stderr})
//	orchestrator := team.New(cfg, agents, func(o *team.Options) { o.Logger = logger })
//
// No function in this package touches slog.Default().
package logging
