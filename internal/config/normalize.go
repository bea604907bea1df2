package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeOutput(); err != nil {
		return err
	}
	c.normalizeEncoding()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(strings.TrimSpace(c.Paths.OutputDir)); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeOutput() error {
	c.Output.TargetAspectRatio = strings.TrimSpace(c.Output.TargetAspectRatio)
	c.Output.FontPath = strings.TrimSpace(c.Output.FontPath)
	if c.Output.FontPath == "" {
		if value, ok := os.LookupEnv("MONTAGE_FONT_PATH"); ok {
			c.Output.FontPath = strings.TrimSpace(value)
		}
	}
	if c.Output.FontPath != "" {
		expanded, err := expandPath(c.Output.FontPath)
		if err != nil {
			return fmt.Errorf("output.font_path: %w", err)
		}
		c.Output.FontPath = expanded
	}
	if c.Output.FrameRate == 0 {
		c.Output.FrameRate = defaultFrameRate
	}
	if c.Output.SplitRatio == 0 {
		c.Output.SplitRatio = defaultSplitRatio
	}
	return nil
}

func (c *Config) normalizeEncoding() {
	c.Encoding.FFmpegBinary = strings.TrimSpace(c.Encoding.FFmpegBinary)
	if value, ok := os.LookupEnv("FFMPEG_BINARY"); ok && strings.TrimSpace(value) != "" && c.Encoding.FFmpegBinary == defaultFFmpegBinary {
		c.Encoding.FFmpegBinary = strings.TrimSpace(value)
	}
	if c.Encoding.FFmpegBinary == "" {
		c.Encoding.FFmpegBinary = defaultFFmpegBinary
	}
	c.Encoding.FFprobeBinary = strings.TrimSpace(c.Encoding.FFprobeBinary)
	if c.Encoding.FFprobeBinary == "" {
		c.Encoding.FFprobeBinary = defaultFFprobeBinary
	}
	c.Encoding.VideoPreset = strings.ToLower(strings.TrimSpace(c.Encoding.VideoPreset))
	if c.Encoding.VideoPreset == "" {
		c.Encoding.VideoPreset = defaultVideoPreset
	}
	c.Encoding.AudioBitrate = strings.ToLower(strings.TrimSpace(c.Encoding.AudioBitrate))
	if c.Encoding.AudioBitrate == "" {
		c.Encoding.AudioBitrate = defaultAudioBitrate
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
