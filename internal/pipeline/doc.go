// Package pipeline is the single production path from an edit decision list
// to a compiled ffmpeg program: fill metadata, optionally probe the source,
// validate, optionally optimize, then compile.
//
// The compiler accepts any list, so callers that skip Prepare are responsible
// for validating first.
package pipeline
