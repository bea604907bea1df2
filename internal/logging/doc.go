// Package logging assembles the slog loggers used by the montage CLI and the
// render server.
//
// It owns the console and JSON handlers, fans records out to the optional log
// file, stamps every line with a per-process session ID, and exposes
// context-aware helpers so render code can tag log lines with job IDs, stages,
// and request IDs. A no-op logger is available for tests and for wiring code
// that has no logger to hand.
package logging
