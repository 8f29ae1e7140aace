package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"euphony/internal/fsmeta"
	"euphony/internal/services"
)

// LoadAlbumState reads an album snapshot from path. Absence yields
// (nil, nil); corrupt content or an unknown schema version yields a
// serialization error the caller is expected to degrade to absent state.
func LoadAlbumState(path string) (*AlbumState, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, services.Wrap(services.ErrIO, "state", "read album state", path, err)
	}

	var loaded AlbumState
	if err := json.Unmarshal(payload, &loaded); err != nil {
		return nil, services.Wrap(services.ErrSerialization, "state", "parse album state", path, err)
	}
	if loaded.SchemaVersion != albumStateSchemaVersion {
		return nil, services.Wrap(services.ErrSerialization, "state", "parse album state",
			fmt.Sprintf("%s: unsupported schema version %d", path, loaded.SchemaVersion), nil)
	}
	if loaded.TrackedFiles.AudioFiles == nil {
		loaded.TrackedFiles.AudioFiles = map[string]fsmeta.FileRecord{}
	}
	if loaded.TrackedFiles.DataFiles == nil {
		loaded.TrackedFiles.DataFiles = map[string]fsmeta.FileRecord{}
	}
	return &loaded, nil
}

// SaveAlbumState atomically replaces the album snapshot at path.
func SaveAlbumState(path string, albumState *AlbumState) error {
	return atomicWriteJSON(path, albumState)
}

// LoadLibraryState reads the library snapshot from the given directory,
// with the same absence and corruption semantics as LoadAlbumState.
func LoadLibraryState(dir string) (*LibraryState, error) {
	path := filepath.Join(dir, LibraryStateFileName)
	payload, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, services.Wrap(services.ErrIO, "state", "read library state", path, err)
	}

	var loaded LibraryState
	if err := json.Unmarshal(payload, &loaded); err != nil {
		return nil, services.Wrap(services.ErrSerialization, "state", "parse library state", path, err)
	}
	if loaded.SchemaVersion != libraryStateSchemaVersion {
		return nil, services.Wrap(services.ErrSerialization, "state", "parse library state",
			fmt.Sprintf("%s: unsupported schema version %d", path, loaded.SchemaVersion), nil)
	}
	if loaded.TrackedArtists == nil {
		loaded.TrackedArtists = map[string]TrackedArtistAlbums{}
	}
	return &loaded, nil
}

// SaveLibraryState atomically replaces the library snapshot in dir.
func SaveLibraryState(dir string, libraryState *LibraryState) error {
	return atomicWriteJSON(filepath.Join(dir, LibraryStateFileName), libraryState)
}

// atomicWriteJSON serializes value to a temporary file in the target
// directory and renames it into place, so a crash never leaves a
// half-written state file behind.
func atomicWriteJSON(path string, value any) error {
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return services.Wrap(services.ErrSerialization, "state", "serialize", path, err)
	}
	payload = append(payload, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return services.Wrap(services.ErrIO, "state", "create state directory", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return services.Wrap(services.ErrIO, "state", "create temporary state file", dir, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return services.Wrap(services.ErrIO, "state", "write state file", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return services.Wrap(services.ErrIO, "state", "close state file", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return services.Wrap(services.ErrIO, "state", "replace state file", path, err)
	}
	return nil
}
