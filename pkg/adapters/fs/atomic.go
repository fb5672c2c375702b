package fs

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// TempFilePrefix is the prefix used for temporary atomic write files.
	TempFilePrefix = ".bibvault-tmp-"

	defaultPerm os.FileMode = 0644
)

// replaceFile swaps the content of path for data through a temp file in the
// same folder and a rename, so readers see either the old or the new bytes.
// A file already holding data is left alone and replaceFile reports false.
// An existing file keeps its permissions; new files get 0644.
func replaceFile(path string, data []byte) (bool, error) {
	perm := defaultPerm
	if info, err := os.Stat(path); err == nil {
		if current, err := os.ReadFile(path); err == nil && bytes.Equal(current, data) {
			return false, nil
		}
		perm = info.Mode().Perm()
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, TempFilePrefix+"*")
	if err != nil {
		return false, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return false, fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return false, fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return false, fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), perm); err != nil {
		return false, fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return false, fmt.Errorf("failed to replace %s: %w", path, err)
	}
	syncDir(dir)
	return true, nil
}

// syncDir flushes a folder entry after a rename. Not every platform supports
// it, so failures are ignored.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	d.Close()
}

// isTempFile reports whether name is a leftover of replaceFile.
func isTempFile(name string) bool {
	return strings.HasPrefix(name, TempFilePrefix)
}
