// Package workgraph adapts the external workgraph store behind the
// secondary ports: task operations go through the wg binary, the
// append-only log is read directly as newline-delimited JSON.
package workgraph

import (
	"fmt"
	"os"
	"path/filepath"
)

// DirName is the workgraph state directory at a project root.
const DirName = ".workgraph"

// FindDir resolves the .workgraph directory. An explicit start may be
// the directory itself or its project root; an empty start searches
// upward from the working directory.
func FindDir(start string) (string, error) {
	if start != "" {
		abs, err := filepath.Abs(start)
		if err != nil {
			return "", fmt.Errorf("failed to resolve %s: %w", start, err)
		}
		if filepath.Base(abs) == DirName && isDir(abs) {
			return abs, nil
		}
		candidate := filepath.Join(abs, DirName)
		if isDir(candidate) {
			return candidate, nil
		}
		return "", fmt.Errorf("no %s directory under %s", DirName, abs)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	for dir := cwd; ; dir = filepath.Dir(dir) {
		candidate := filepath.Join(dir, DirName)
		if isDir(candidate) {
			return candidate, nil
		}
		if dir == filepath.Dir(dir) {
			return "", fmt.Errorf("no %s directory found from %s upward", DirName, cwd)
		}
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
