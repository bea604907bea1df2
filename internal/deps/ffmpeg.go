package deps

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// RequiredFilters are the ffmpeg filters compiled programs may reference.
var RequiredFilters = []string{
	"trim", "atrim", "setpts", "asetpts", "fps", "crop", "scale", "pad", "setsar",
	"split", "vstack", "xfade", "concat", "drawtext", "drawbox", "fade", "afade", "overlay",
}

// FFmpegVersion returns the first line of `ffmpeg -version`.
func FFmpegVersion(ctx context.Context, binary string) (string, error) {
	out, err := exec.CommandContext(ctx, binary, "-hide_banner", "-version").Output()
	if err != nil {
		return "", fmt.Errorf("ffmpeg -version: %w", err)
	}
	line, _, _ := strings.Cut(string(out), "\n")
	return strings.TrimSpace(line), nil
}

// MissingFilters lists the names in want that `ffmpeg -filters` does not
// report. drawtext is absent from builds without libfreetype.
func MissingFilters(ctx context.Context, binary string, want ...string) ([]string, error) {
	if len(want) == 0 {
		want = RequiredFilters
	}
	out, err := exec.CommandContext(ctx, binary, "-hide_banner", "-filters").Output()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg -filters: %w", err)
	}
	available := parseFilterList(out)
	var missing []string
	for _, name := range want {
		if _, ok := available[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing, nil
}

// parseFilterList reads lines such as " ... xfade  VV->V  Cross fade ...".
// The second column is the filter name.
func parseFilterList(out []byte) map[string]struct{} {
	names := make(map[string]struct{})
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 || !strings.Contains(fields[2], "->") {
			continue
		}
		names[fields[1]] = struct{}{}
	}
	return names
}
