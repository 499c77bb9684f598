package util

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

var ErrNotDirectory = errors.New("not a directory")

// CheckDirectoryAccess reports whether path is an existing directory the
// process can create files in. A missing path is not an error.
func CheckDirectoryAccess(path string) (bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !info.IsDir() {
		return false, fmt.Errorf("%s: %w", path, ErrNotDirectory)
	}

	scratch, err := os.CreateTemp(path, ".nearby-check-*")
	if err != nil {
		return false, nil
	}
	name := scratch.Name()
	_ = scratch.Close()
	_ = os.Remove(name)
	return true, nil
}

// DirectoryName is the label shown for a save directory.
func DirectoryName(path string) string {
	name := filepath.Base(filepath.Clean(path))
	if name == "." || name == string(filepath.Separator) {
		return path
	}
	return name
}
