// Package edl defines the edit decision list exchanged between the planning
// agent, the accumulator, the optimizer, and the filter-graph compiler.
//
// Decisions form a tagged union keyed by Kind. Each Tool belongs to exactly one
// Kind and carries a loosely typed Params payload; the typed views in
// params.go narrow that payload and apply per-tool numeric defaults so callers
// never read raw map keys.
//
// Resolve converts open-ended decisions into closed Spans exactly once. Every
// downstream stage should work from Spans rather than re-deriving end times.
package edl
