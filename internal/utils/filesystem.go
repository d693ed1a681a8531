package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// StdinPath is the input path that means "read from standard input".
const StdinPath = "-"

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// DirExists checks if a directory exists
func DirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// WriteFile writes content to a file, creating directories if needed
func WriteFile(path string, content []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	return os.WriteFile(path, content, 0644)
}

// OpenInput opens a trace file, or stdin for "-".
func OpenInput(path string) (io.ReadCloser, error) {
	if path == StdinPath {
		return io.NopCloser(os.Stdin), nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, NewUserError(
			fmt.Sprintf("%s is a directory", path),
			"Pass the path of a .jsonl trace file",
			nil,
		)
	}
	return os.Open(path)
}

// InputName is how an input path is shown to users.
func InputName(path string) string {
	if path == StdinPath {
		return "stdin"
	}
	return path
}

// IsJSONLFile reports whether path has a JSON lines extension.
func IsJSONLFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson", ".json", ".log":
		return true
	}
	return false
}

// FileSize returns the size of path in bytes.
func FileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
