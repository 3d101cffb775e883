package dirguard

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestEnsure(t *testing.T) {
	tempDir := t.TempDir()

	filePath := filepath.Join(tempDir, "plain.txt")
	if err := os.WriteFile(filePath, []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	tests := []struct {
		name    string
		path    string
		wantErr error
	}{
		{name: "empty path is current directory", path: ""},
		{name: "existing directory", path: tempDir},
		{name: "missing directory is created", path: filepath.Join(tempDir, "out")},
		{name: "missing parents are created", path: filepath.Join(tempDir, "a", "b", "c")},
		{name: "existing file", path: filePath, wantErr: ErrNotDirectory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Ensure(tt.path)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Ensure(%q) error = %v, want %v", tt.path, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Errorf("Ensure(%q) unexpected error = %v", tt.path, err)
				return
			}
			if tt.path == "" {
				return
			}
			info, err := os.Stat(tt.path)
			if err != nil {
				t.Errorf("Stat(%q) error = %v", tt.path, err)
				return
			}
			if !info.IsDir() {
				t.Errorf("%q is not a directory", tt.path)
			}
		})
	}
}

func TestEnsureUnderFile(t *testing.T) {
	tempDir := t.TempDir()
	filePath := filepath.Join(tempDir, "plain.txt")
	if err := os.WriteFile(filePath, []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	if err := Ensure(filepath.Join(filePath, "sub")); err == nil {
		t.Errorf("Ensure() under a regular file should fail")
	}
}

func TestFunc(t *testing.T) {
	var called string
	g := Func(func(path string) error {
		called = path
		return nil
	})

	if err := g.Ensure("somewhere"); err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}
	if called != "somewhere" {
		t.Errorf("Func called with %q, want %q", called, "somewhere")
	}
}
