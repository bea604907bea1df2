// Package config loads, normalizes, and validates montage configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// MONTAGE_FONT_PATH and FFMPEG_BINARY. The Config type centralizes the frame
// geometry applied to edit lists, the ffmpeg encode settings, and the
// locations of the job database and logs.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
