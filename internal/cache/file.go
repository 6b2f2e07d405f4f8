package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/nocdn/volumes/internal/bookmark"
)

// File stores the snapshot as a TOML document. Writes go to a temporary
// file that is renamed into place, so a crash never leaves half a snapshot.
type File struct {
	path string
}

// NewFile returns a slot backed by the file at path. Nothing is touched
// until Load or Save.
func NewFile(path string) *File {
	return &File{path: path}
}

// Load reads the cached snapshot.
func (f *File) Load() ([]bookmark.Item, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read snapshot cache: %w", err)
	}
	var e entry
	if err := toml.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decode snapshot cache: %w", err)
	}
	if err := e.validate(); err != nil {
		return nil, err
	}
	return e.items(), nil
}

// Save overwrites the cached snapshot.
func (f *File) Save(items []bookmark.Item) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}
	data, err := toml.Marshal(newEntry(items))
	if err != nil {
		return fmt.Errorf("encode snapshot cache: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".snapshot-*.toml")
	if err != nil {
		return fmt.Errorf("create temp cache file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write snapshot cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close snapshot cache: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace snapshot cache: %w", err)
	}
	return nil
}

// Close is a no-op; File holds no open handles.
func (f *File) Close() error {
	return nil
}
