// Package services defines shared utilities consumed by the pipeline stages,
// the renderer, and the HTTP API.
//
// Key responsibilities:
//   - Context helpers that stamp render job IDs, stage names, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent job statuses and API error codes.
//
// Use these helpers when wiring new stage logic so operational behaviour (error
// handling, observability) stays uniform across the tool.
package services
