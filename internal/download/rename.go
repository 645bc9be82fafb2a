package download

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Renamer receives the path of a completed download and returns its final path
type Renamer interface {
	Rename(path string) (string, error)
}

// RenamerFunc adapts a function to Renamer
type RenamerFunc func(path string) (string, error)

// Rename implements Renamer
func (f RenamerFunc) Rename(path string) (string, error) {
	return f(path)
}

// RenameTo renames the file to name in the same directory, keeping its
// extension. An empty name keeps the original file name. A taken name gets
// a numeric suffix.
func RenameTo(name string) Renamer {
	return RenamerFunc(func(path string) (string, error) {
		name := strings.TrimSpace(name)
		if name == "" {
			return path, nil
		}

		if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
			return path, fmt.Errorf("invalid file name %q", name)
		}

		renamed := filepath.Join(filepath.Dir(path), name+filepath.Ext(path))
		if renamed == path {
			return path, nil
		}

		slot, err := reserve(renamed)
		if err != nil {
			return path, fmt.Errorf("failed to rename %s: %w", path, err)
		}
		slot.Close()

		if err := os.Rename(path, slot.Name()); err != nil {
			os.Remove(slot.Name())
			return path, fmt.Errorf("failed to rename %s: %w", path, err)
		}

		return slot.Name(), nil
	})
}
