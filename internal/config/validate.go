package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
)

var videoPresets = map[string]struct{}{
	"ultrafast": {}, "superfast": {}, "veryfast": {}, "faster": {}, "fast": {},
	"medium": {}, "slow": {}, "slower": {}, "veryslow": {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateOutput(); err != nil {
		return err
	}
	if err := c.validateEncoding(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return errors.New("paths.state_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	if _, _, err := net.SplitHostPort(c.Paths.APIBind); err != nil {
		return fmt.Errorf("paths.api_bind must be host:port: %w", err)
	}
	return nil
}

func (c *Config) validateOutput() error {
	if err := ensurePositiveMap(map[string]int{
		"output.width":      c.Output.Width,
		"output.height":     c.Output.Height,
		"output.frame_rate": c.Output.FrameRate,
	}); err != nil {
		return err
	}
	if c.Output.Width > maxOutputDimensionPixels || c.Output.Height > maxOutputDimensionPixels {
		return fmt.Errorf("output.width and output.height must be at most %d", maxOutputDimensionPixels)
	}
	if c.Output.Width%2 != 0 || c.Output.Height%2 != 0 {
		return errors.New("output.width and output.height must be even")
	}
	if c.Output.FrameRate > maxFrameRate {
		return fmt.Errorf("output.frame_rate must be at most %d", maxFrameRate)
	}
	if c.Output.SplitRatio <= 0 || c.Output.SplitRatio >= 1 {
		return errors.New("output.split_ratio must be between 0 and 1 (exclusive)")
	}
	if ratio := c.Output.TargetAspectRatio; ratio != "" && !validAspectRatio(ratio) {
		return fmt.Errorf("output.target_aspect_ratio must look like 16:9, got %q", ratio)
	}
	return nil
}

func (c *Config) validateEncoding() error {
	if _, ok := videoPresets[c.Encoding.VideoPreset]; !ok {
		return fmt.Errorf("encoding.video_preset %q is not an x264 preset", c.Encoding.VideoPreset)
	}
	if c.Encoding.CRF <= 0 || c.Encoding.CRF > maxCRF {
		return fmt.Errorf("encoding.crf must be between 1 and %d", maxCRF)
	}
	if c.Encoding.RenderTimeout <= 0 {
		return errors.New("encoding.render_timeout must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q must be one of debug, info, warn, error", c.Logging.Level)
	}
}

func validAspectRatio(value string) bool {
	w, h, ok := strings.Cut(value, ":")
	if !ok {
		return false
	}
	wn, err := strconv.Atoi(w)
	if err != nil || wn <= 0 {
		return false
	}
	hn, err := strconv.Atoi(h)
	return err == nil && hn > 0
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
