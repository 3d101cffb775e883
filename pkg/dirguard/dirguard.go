package dirguard

import (
	"errors"
	"fmt"
	"os"
)

// ErrNotDirectory is returned when the output path exists but is not a directory
var ErrNotDirectory = errors.New("output path exists and is not a directory")

// Ensure makes sure path can be used as an output directory. An empty path
// means the current directory. A missing directory is created along with
// its parents.
func Ensure(path string) error {
	if path == "" {
		return nil
	}

	info, err := os.Stat(path)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("%w: %s", ErrNotDirectory, path)
		}
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("failed to check output directory %s: %w", path, err)
	}

	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", path, err)
	}
	return nil
}

// Func adapts an ordinary function to the Guard interface used by the
// pipelines.
type Func func(path string) error

// Ensure calls f(path).
func (f Func) Ensure(path string) error {
	return f(path)
}
