package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"montage/internal/edl"
)

// WriteEDL saves list to path, creating parent directories.
func WriteEDL(t testing.TB, path string, list edl.List) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := edl.Save(path, list); err != nil {
		t.Fatalf("save edit list %s: %v", path, err)
	}
}
