// Package queue persists render jobs in SQLite and exposes helpers for
// driving their lifecycle.
//
// The Store manages database connections, schema initialization, stats
// queries, stuck-job recovery, and the pending -> running -> completed/failed
// transitions. Jobs carry the edit list they were created from, the compiled
// filter graph, and render progress, so the CLI, the HTTP API, and the render
// worker can coordinate without additional state.
//
// The database is treated as transient storage for in-flight and recent jobs
// rather than a long-term archive. Schema changes bump the version in
// schema.go; users clear the database to adopt the new schema.
package queue
