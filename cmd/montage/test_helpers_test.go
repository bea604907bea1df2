package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"montage/internal/config"
	"montage/internal/testsupport"
)

const fakeFFmpeg = `#!/bin/sh
for last; do :; done
case "$last" in
  -version) echo "ffmpeg version 7.1-test"; exit 0 ;;
  -filters) exit 0 ;;
esac
echo "out_time_us=5000000"
echo "progress=end"
: > "$last"
`

const sampleList = `{
  "sourceVideo": "/videos/talk.mp4",
  "decisions": [
    {"tool": "only_screen", "startTime": 0, "endTime": 5},
    {"tool": "cut", "startTime": 5},
    {"tool": "only_screen", "startTime": 5, "endTime": 10},
    {"tool": "text_overlay", "startTime": 2, "endTime": 4, "params": {"text": "Hello"}}
  ],
  "metadata": {"sourceDuration": 10}
}`

const invalidList = `{
  "sourceVideo": "/videos/talk.mp4",
  "decisions": [
    {"tool": "only_screen", "startTime": 0, "endTime": 6},
    {"tool": "only_webcam", "startTime": 5, "endTime": 10}
  ]
}`

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, testsupport.WithBinaryScript("ffmpeg", fakeFFmpeg))
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))

	configPath := filepath.Join(base, "montage.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

func (e *cliTestEnv) writeList(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.baseDir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write list: %v", err)
	}
	return path
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
