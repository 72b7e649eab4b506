// Package store manages local image files: the downloaded artifacts the
// image registry describes. One writable directory holds pulled images;
// additional read-only directories (shared or system-wide image collections)
// participate in lookups.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// ErrImageNotFound is returned when no directory contains the named image.
var ErrImageNotFound = errors.New("image does not exist")

// List returns the names of all image files across dirs, sorted ascending
// with duplicates collapsed. Directories that do not exist are skipped, since
// read-only overlay directories are frequently absent.
func List(dirs ...string) ([]string, error) {
	seen := make(map[string]bool)
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read images directory %s: %w", dir, err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			seen[entry.Name()] = true
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Path returns the path of the named image inside dir, or ErrImageNotFound
// if it is not a regular file there.
func Path(dir, name string) (string, error) {
	path := filepath.Join(dir, name)
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return "", fmt.Errorf("%s: %w", name, ErrImageNotFound)
	}
	return path, nil
}

// Find returns the path of the named image in the first directory that
// contains it.
func Find(dirs []string, name string) (string, error) {
	for _, dir := range dirs {
		if path, err := Path(dir, name); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%s: %w", name, ErrImageNotFound)
}

// Remove deletes the named image from dir.
func Remove(dir, name string) error {
	if err := os.Remove(filepath.Join(dir, name)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s: %w", name, ErrImageNotFound)
		}
		return fmt.Errorf("failed to remove image %s: %w", name, err)
	}
	return nil
}

// ModTime returns the modification time of the named image in dir. It feeds
// the staleness check: an image file's age decides whether a refresh is due.
func ModTime(dir, name string) (time.Time, error) {
	path := filepath.Join(dir, name)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return time.Time{}, fmt.Errorf("%s: %w", name, ErrImageNotFound)
		}
		return time.Time{}, fmt.Errorf("failed to stat image %s: %w", name, err)
	}
	return info.ModTime(), nil
}
