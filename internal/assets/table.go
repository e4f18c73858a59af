package assets

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// DefaultTable maps identified songs to their companion videos, relative to
// the working directory.
var DefaultTable = map[string]string{
	"siren_audio.flac":     "videos/siren_video.mp4",
	"fancy_audio.flac":     "videos/fancy_video.mp4",
	"chocolate_audio.flac": "videos/chocolate_video.mp4",
	"hey_audio.flac":       "videos/hey_video.mp4",
}

// Table is a static song→asset lookup. It is immutable once built.
type Table struct {
	root    string
	entries map[string]string
}

type tableFile struct {
	Assets map[string]string `yaml:"assets"`
}

// NewTable builds a table over entries; relative asset paths resolve
// against root.
func NewTable(root string, entries map[string]string) *Table {
	copied := make(map[string]string, len(entries))
	for song, path := range entries {
		copied[song] = path
	}
	return &Table{root: root, entries: copied}
}

// LoadTable reads a YAML table file of the form
//
//	assets:
//	  siren_audio.flac: videos/siren_video.mp4
//
// An empty path or a missing file yields DefaultTable.
func LoadTable(path, root string) (*Table, error) {
	if path == "" {
		return NewTable(root, DefaultTable), nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return NewTable(root, DefaultTable), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read asset table: %w", err)
	}

	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse asset table %s: %w", path, err)
	}
	return NewTable(root, f.Assets), nil
}

// Lookup returns the asset path associated with songID.
func (t *Table) Lookup(songID string) (string, bool) {
	if t == nil {
		return "", false
	}
	rel, ok := t.entries[songID]
	if !ok || rel == "" {
		return "", false
	}
	if filepath.IsAbs(rel) {
		return rel, true
	}
	return filepath.Join(t.root, rel), true
}

// Len returns the number of entries.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Songs returns the song IDs in the table, sorted.
func (t *Table) Songs() []string {
	if t == nil {
		return nil
	}
	songs := make([]string, 0, len(t.entries))
	for song := range t.entries {
		songs = append(songs, song)
	}
	sort.Strings(songs)
	return songs
}
