// Package ffprobe runs ffprobe and exposes the few facts montage needs from
// its JSON output: duration, frame size and stream counts of a source video.
package ffprobe
