// Package albumview walks source album directories and classifies their
// contents into tracked audio files, tracked data files and ignored entries.
// Classification is by extension and file-name allow-lists only; file
// contents are never inspected.
package albumview

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"euphony/internal/config"
	"euphony/internal/fsmeta"
	"euphony/internal/services"
)

// View is the classified listing of one album directory. All paths are
// relative to the album root and sorted.
type View struct {
	AudioFiles   []string
	DataFiles    []string
	IgnoredFiles []string
}

// Build scans the album directory, descending depth additional levels below
// the album root (0 scans the root only).
func Build(albumDir string, depth uint, library *config.Library) (*View, error) {
	info, err := os.Stat(albumDir)
	if err != nil {
		return nil, services.Wrap(services.ErrIO, "albumview", "stat", albumDir, err)
	}
	if !info.IsDir() {
		return nil, services.Wrap(services.ErrStructure, "albumview", "scan", albumDir+" is not a directory", nil)
	}

	view := &View{}
	if err := scanLevel(albumDir, albumDir, depth, library, view); err != nil {
		return nil, err
	}

	sort.Strings(view.AudioFiles)
	sort.Strings(view.DataFiles)
	sort.Strings(view.IgnoredFiles)
	return view, nil
}

func scanLevel(albumDir, dir string, remainingDepth uint, library *config.Library, view *View) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return services.Wrap(services.ErrIO, "albumview", "read directory", dir, err)
	}

	for _, entry := range entries {
		entryPath := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			if remainingDepth == 0 {
				continue
			}
			if err := scanLevel(albumDir, entryPath, remainingDepth-1, library, view); err != nil {
				return err
			}
			continue
		}
		if !entry.Type().IsRegular() {
			continue
		}

		relative, err := filepath.Rel(albumDir, entryPath)
		if err != nil {
			return services.Wrap(services.ErrIO, "albumview", "relativize", entryPath, err)
		}
		relative = filepath.ToSlash(relative)

		switch {
		case isInternalFile(entry.Name()):
			view.IgnoredFiles = append(view.IgnoredFiles, relative)
		case library.IsAudioFile(entry.Name()):
			view.AudioFiles = append(view.AudioFiles, relative)
		case library.IsDataFile(entry.Name()):
			view.DataFiles = append(view.DataFiles, relative)
		default:
			view.IgnoredFiles = append(view.IgnoredFiles, relative)
		}
	}
	return nil
}

// SourceRecords stats every tracked file in the view, keyed by relative
// path.
func (v *View) SourceRecords(albumDir string) (audio, data map[string]fsmeta.FileRecord, err error) {
	audio, err = recordsFor(albumDir, v.AudioFiles)
	if err != nil {
		return nil, nil, err
	}
	data, err = recordsFor(albumDir, v.DataFiles)
	if err != nil {
		return nil, nil, err
	}
	return audio, data, nil
}

func recordsFor(baseDir string, relativePaths []string) (map[string]fsmeta.FileRecord, error) {
	records := make(map[string]fsmeta.FileRecord, len(relativePaths))
	for _, relative := range relativePaths {
		record, err := fsmeta.Stat(filepath.Join(baseDir, filepath.FromSlash(relative)))
		if err != nil {
			return nil, err
		}
		records[relative] = record
	}
	return records, nil
}

// isInternalFile reports whether the name belongs to euphony itself (state
// snapshots and override files) and must never be tracked.
func isInternalFile(name string) bool {
	return strings.HasSuffix(name, ".euphony")
}

// Tree is the artist/album structure discovered in one source library.
type Tree struct {
	// Artists maps artist directory names to sorted album directory names.
	Artists map[string][]string
	// Issues holds structure violations that did not abort discovery;
	// affected entries are excluded from Artists.
	Issues []error
}

// Discover walks the fixed library -> artist -> album layout of a source
// library root. Tracked audio files found above album level violate the
// layout: one in the library root aborts discovery, one in an artist
// directory excludes nothing else but is reported as an issue.
func Discover(libraryRoot string, library *config.Library) (*Tree, error) {
	entries, err := os.ReadDir(libraryRoot)
	if err != nil {
		return nil, services.Wrap(services.ErrIO, "albumview", "read library root", libraryRoot, err)
	}

	ignored := make(map[string]struct{}, len(library.IgnoredDirectories))
	for _, name := range library.IgnoredDirectories {
		ignored[name] = struct{}{}
	}

	tree := &Tree{Artists: map[string][]string{}}
	for _, entry := range entries {
		if !entry.IsDir() {
			if library.IsAudioFile(entry.Name()) {
				return nil, services.Wrap(services.ErrStructure, "albumview", "discover",
					"audio file directly in library root: "+entry.Name(), nil)
			}
			continue
		}
		if _, skip := ignored[entry.Name()]; skip {
			continue
		}

		albums, issues, err := discoverArtist(filepath.Join(libraryRoot, entry.Name()), entry.Name(), library)
		if err != nil {
			return nil, err
		}
		tree.Issues = append(tree.Issues, issues...)
		if len(albums) > 0 {
			tree.Artists[entry.Name()] = albums
		}
	}
	return tree, nil
}

func discoverArtist(artistDir, artistName string, library *config.Library) ([]string, []error, error) {
	entries, err := os.ReadDir(artistDir)
	if err != nil {
		return nil, nil, services.Wrap(services.ErrIO, "albumview", "read artist directory", artistDir, err)
	}

	var albums []string
	var issues []error
	for _, entry := range entries {
		if entry.IsDir() {
			albums = append(albums, entry.Name())
			continue
		}
		if library.IsAudioFile(entry.Name()) {
			issues = append(issues, services.Wrap(services.ErrStructure, "albumview", "discover",
				"audio file directly in artist directory: "+filepath.Join(artistName, entry.Name()), nil))
		}
	}
	sort.Strings(albums)
	return albums, issues, nil
}
