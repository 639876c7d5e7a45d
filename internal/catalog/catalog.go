// Package catalog holds the ordered list of stimulus clips and the cursor
// that selects the next one.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrExhausted is returned when the cursor has moved past the last clip.
var ErrExhausted = errors.New("video catalog exhausted")

// Catalog is a lexicographically sorted clip list with a cursor.
// It is owned by a single presenter and is not safe for concurrent use.
type Catalog struct {
	dir    string
	files  []string
	cursor int
}

// New builds a catalog from a fixed list of filenames.
func New(dir string, files []string) *Catalog {
	sorted := append([]string(nil), files...)
	sort.Strings(sorted)
	return &Catalog{dir: dir, files: sorted}
}

// Open lists dir and builds a catalog from its regular, non-hidden files.
func Open(dir string) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read stimuli dir: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		files = append(files, entry.Name())
	}
	return New(dir, files), nil
}

// Len returns the number of clips.
func (c *Catalog) Len() int {
	return len(c.files)
}

// Cursor returns the index of the clip Current would return.
func (c *Catalog) Cursor() int {
	return c.cursor
}

// Current returns the full path of the clip under the cursor.
func (c *Catalog) Current() (string, error) {
	if c.cursor < 0 || c.cursor >= len(c.files) {
		return "", fmt.Errorf("%w: cursor %d, %d clips", ErrExhausted, c.cursor, len(c.files))
	}
	return filepath.Join(c.dir, c.files[c.cursor]), nil
}

// Advance moves the cursor to the next clip.
func (c *Catalog) Advance() {
	c.cursor++
}

// Rewind moves the cursor back by one so that the following Advance
// lands on the same clip again. The cursor may be -1 in between.
func (c *Catalog) Rewind() {
	c.cursor--
}

// ClipName returns the filename of path without directory or extension.
func ClipName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
