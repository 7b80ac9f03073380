// Package fileutil provides case-insensitive file lookup on an fs.FS, so
// that script names resolve the same way on every platform.
package fileutil

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"
)

// ErrNotFound is returned when no entry matches.
var ErrNotFound = errors.New("file not found")

// FindFile searches dir for a regular file named filename, ignoring case.
// An exact match is preferred. The returned path uses forward slashes as
// fs.FS requires.
//
// Example:
//
//	p, err := FindFile(os.DirFS("scripts"), ".", "Main.CRY")
//	// Will find "main.cry", "MAIN.CRY", "Main.cry", etc.
func FindFile(fsys fs.FS, dir, filename string) (string, error) {
	dir = Clean(dir)

	exact := path.Join(dir, filename)
	if info, err := fs.Stat(fsys, exact); err == nil && !info.IsDir() {
		return exact, nil
	}

	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return "", fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(entry.Name(), filename) {
			return path.Join(dir, entry.Name()), nil
		}
	}

	return "", fmt.Errorf("%w: %s (searched in %s)", ErrNotFound, filename, dir)
}

// ReadFile reads name from fsys, resolving the final path element without
// regard to case.
func ReadFile(fsys fs.FS, name string) (string, []byte, error) {
	name = Clean(name)
	actual, err := FindFile(fsys, path.Dir(name), path.Base(name))
	if err != nil {
		return "", nil, err
	}
	data, err := fs.ReadFile(fsys, actual)
	if err != nil {
		return "", nil, err
	}
	return actual, data, nil
}

// Clean converts a host-style relative path into an fs.FS path: backslashes
// become slashes and leading separators are dropped.
func Clean(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimLeft(name, "/")
	if name == "" {
		return "."
	}
	return path.Clean(name)
}

// HasExt reports whether name has extension ext, ignoring case.
func HasExt(name, ext string) bool {
	return strings.EqualFold(path.Ext(name), ext)
}
