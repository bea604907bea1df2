// Package compiler lowers an edit decision list into a single ffmpeg
// filter_complex program.
//
// Lowering runs in fixed phases:
//
//  1. segmentation of the resolved layout spans
//  2. per-segment trim plus layout transform, with a matching audio trim
//  3. chaining segments with xfade (audio trimmed, then concatenated) or
//     hard concat, tracking video and audio running time separately
//  4. recording each segment's output-timeline range in a zoom table
//  5. effect overlays, remapped through the zoom table where needed
//  6. b-roll inputs overlaid onto the running output
//  7. assembly of the graph and output arguments
//
// Effect start and end times are read on the output timeline: enable windows,
// fade starts and afade starts are not shifted by crossfades that precede them.
//
// Compilation performs no I/O and never fails. Structural problems such as
// overlapping layouts must be caught by the accumulator before compiling.
package compiler
