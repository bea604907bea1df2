// Package render executes compiled programs with ffmpeg and records the
// outcome on the job store.
//
// Runner handles one job: it locks the output file, streams ffmpeg's
// -progress output into percent updates, and marks the job completed,
// failed, or canceled. Worker is the long-running loop used by `montage
// serve` that claims pending jobs one at a time.
package render
