// Package logging provides the structured-logging conventions shared by the
// resolver, index builder, and CLI.
//
// Design principles:
//   - Logging is dependency-injected, never global
//   - Each component owns its own scoped logger, attached once at construction
//   - slog.With() attaches default attributes (component name, descriptor, ...)
//   - A nil logger falls back to a discard logger rather than panicking
//
// Output format, level, and destination are main()'s concern only; nothing
// under internal/ calls slog.SetDefault.
//
// Logging stays sparse: the fuzzy-partition loop and the index-builder inner
// loop do not log per file above debug level, except for the warning the
// index builder logs for each indexer failure it continues past under
// ContinueOnError. Lifecycle boundaries (index
// run start/end, descriptor load, watch-mode events) are the intended log
// points.
package logging

import (
	"context"
	"log/slog"
)

// discardHandler drops every record it receives.
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// Discard returns a logger that discards all output. Use it wherever a
// caller declines to provide one.
func Discard() *slog.Logger {
	return slog.New(discardHandler{})
}

// Default returns logger if non-nil, otherwise a discard logger. Constructors
// across this module follow the same shape:
//
//	func New(logger *slog.Logger, ...) *Thing {
//	    logger = logging.Default(logger)
//	    return &Thing{logger: logger.With("component", "thing")}
//	}
func Default(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return Discard()
}
