// Package api serves the montage HTTP interface and the job views shared with
// the CLI.
//
// The router exposes validate/optimize/compile as stateless transforms over a
// posted edit decision list, and a small job surface backed by the SQLite
// store: list, describe, and enqueue. JobService converts queue.Job records
// into the camelCase DTOs returned by both the HTTP handlers and
// `montage jobs --json`.
//
// Errors are returned as {"error": ..., "code": ...} where code is the stable
// name from services.Code.
package api
