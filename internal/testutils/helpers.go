package testutils

import (
	"os"
	"path/filepath"
	"testing"
)

// CreateTempConfig writes configData to a config file in a temporary
// directory and returns its path.
func CreateTempConfig(t *testing.T, configData string) string {
	t.Helper()

	configFile := filepath.Join(t.TempDir(), "test_config.yaml")
	if err := os.WriteFile(configFile, []byte(configData), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	return configFile
}

// CreateFile writes size bytes of non-repeating data to a new file in a
// temporary directory and returns its path.
func CreateFile(t *testing.T, name string, size int) string {
	t.Helper()

	data := make([]byte, size)
	var x uint32 = 2463534242
	for i := range data {
		// xorshift keeps the content incompressible.
		x ^= x << 13
		x ^= x >> 17
		x ^= x << 5
		data[i] = byte(x)
	}

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}

	return path
}

// CreateSparseFile creates a file of the given logical size with nothing
// written to it.
func CreateSparseFile(t *testing.T, name string, size int64) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create %s: %v", path, err)
	}
	defer f.Close()

	if err := f.Truncate(size); err != nil {
		t.Fatalf("Failed to extend %s: %v", path, err)
	}

	return path
}

// SkipIfShort skips a test if running in short mode
func SkipIfShort(t *testing.T, reason string) {
	t.Helper()

	if testing.Short() {
		t.Skipf("Skipping test in short mode: %s", reason)
	}
}
