package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// AlbumOverrideFileName is the optional per-album configuration file placed
// at the root of a source album directory.
const AlbumOverrideFileName = ".album.override.euphony"

// AlbumScan controls how deep the album view builder descends below the
// album root. Zero (the default) scans the album root only.
type AlbumScan struct {
	Depth uint `toml:"depth"`
}

// AlbumOverride is the optional per-album configuration. Missing files and
// missing fields resolve to defaults.
type AlbumOverride struct {
	Scan AlbumScan `toml:"scan"`
}

// LoadAlbumOverride reads the override file from the given album directory.
// A missing file yields the zero override.
func LoadAlbumOverride(albumDir string) (AlbumOverride, error) {
	var override AlbumOverride

	path := filepath.Join(albumDir, AlbumOverrideFileName)
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return override, nil
		}
		return override, fmt.Errorf("open album override: %w", err)
	}
	defer file.Close()

	if err := toml.NewDecoder(file).Decode(&override); err != nil {
		return AlbumOverride{}, fmt.Errorf("parse album override %s: %w", path, err)
	}
	return override, nil
}
