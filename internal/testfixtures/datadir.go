package testfixtures

import (
	"os"
	"path/filepath"
	"testing"
)

// DataDir returns a fresh temporary data directory. Documents may be given as
// file name and content pairs.
func DataDir(tb testing.TB, documents ...string) string {
	tb.Helper()
	dir := tb.TempDir()
	for i := 0; i+1 < len(documents); i += 2 {
		WriteDocument(tb, dir, documents[i], documents[i+1])
	}
	return dir
}

// WriteDocument writes content to dir/name.
func WriteDocument(tb testing.TB, dir, name, content string) {
	tb.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		tb.Fatalf("failed to write %s: %v", name, err)
	}
}

// ReadDocument returns the content of dir/name, failing the test when absent.
func ReadDocument(tb testing.TB, dir, name string) string {
	tb.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		tb.Fatalf("failed to read %s: %v", name, err)
	}
	return string(data)
}

// Exists reports whether dir/name exists.
func Exists(dir, name string) bool {
	_, err := os.Stat(filepath.Join(dir, name))
	return err == nil
}
