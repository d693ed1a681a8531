package utils

import (
	"errors"
	"io"
	"io/fs"
	"path/filepath"
	"testing"
)

func TestFileOperations(t *testing.T) {
	// Create temp directory
	tmpDir := t.TempDir()

	t.Run("WriteFile", func(t *testing.T) {
		path := filepath.Join(tmpDir, "nested", "out", "trace.jsonl")
		if err := WriteFile(path, []byte("{}\n")); err != nil {
			t.Errorf("WriteFile() error = %v", err)
		}
		if !FileExists(path) {
			t.Error("File was not created")
		}
		if !DirExists(filepath.Dir(path)) {
			t.Error("Parent directory was not created")
		}

		size, err := FileSize(path)
		if err != nil {
			t.Errorf("FileSize() error = %v", err)
		}
		if size != 3 {
			t.Errorf("FileSize() = %d, want 3", size)
		}
	})

	t.Run("OpenInput", func(t *testing.T) {
		path := filepath.Join(tmpDir, "run.jsonl")
		WriteFile(path, []byte(`{"event":"trace_start"}`))

		rc, err := OpenInput(path)
		if err != nil {
			t.Fatalf("OpenInput() error = %v", err)
		}
		defer rc.Close()

		content, _ := io.ReadAll(rc)
		if string(content) != `{"event":"trace_start"}` {
			t.Errorf("OpenInput() read %q", content)
		}
	})

	t.Run("OpenInput missing", func(t *testing.T) {
		_, err := OpenInput(filepath.Join(tmpDir, "nonexistent.jsonl"))
		if !errors.Is(err, fs.ErrNotExist) {
			t.Errorf("OpenInput() error = %v, want not exist", err)
		}
	})

	t.Run("OpenInput directory", func(t *testing.T) {
		_, err := OpenInput(tmpDir)
		var ue *UserError
		if !errors.As(err, &ue) {
			t.Errorf("OpenInput() error = %v, want UserError", err)
		}
	})
}

func TestInputName(t *testing.T) {
	if got := InputName("-"); got != "stdin" {
		t.Errorf("InputName(-) = %q, want stdin", got)
	}
	if got := InputName("a.jsonl"); got != "a.jsonl" {
		t.Errorf("InputName(a.jsonl) = %q", got)
	}
}

func TestIsJSONLFile(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"run.jsonl", true},
		{"RUN.JSONL", true},
		{"events.ndjson", true},
		{"trace.json", true},
		{"notes.txt", false},
		{"noext", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := IsJSONLFile(tt.path); got != tt.want {
				t.Errorf("IsJSONLFile(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}
