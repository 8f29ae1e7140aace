// Package changes computes what needs to happen to bring a transcoded album
// back in sync with its source: a three-way diff by presence and metadata
// equality against the persisted snapshot, never by content hash. A file
// whose size and timestamps are unchanged is assumed unchanged; that false
// negative is a deliberate trade-off for never reading file contents.
package changes

import (
	"sort"
	"strings"

	"euphony/internal/fsmeta"
	"euphony/internal/state"
)

// ChangeSet is the per-album delta between the current view and the
// persisted state. Source paths are relative to the source album root,
// deletion paths relative to the transcoded album root.
type ChangeSet struct {
	AudioToTranscode      []string
	DataToCopy            []string
	FilesToDeleteInOutput []string
}

// IsEmpty reports whether the album needs no work.
func (c *ChangeSet) IsEmpty() bool {
	return len(c.AudioToTranscode) == 0 && len(c.DataToCopy) == 0 && len(c.FilesToDeleteInOutput) == 0
}

// TotalJobs returns the number of jobs this change set expands into.
func (c *ChangeSet) TotalJobs() int {
	return len(c.AudioToTranscode) + len(c.DataToCopy) + len(c.FilesToDeleteInOutput)
}

// Diff compares freshly stat-ed album contents against the previously
// persisted album state. A nil prior state means the album was never
// processed and everything present is new.
func Diff(currentAudio, currentData map[string]fsmeta.FileRecord, prior *state.AlbumState, outputExtension string) *ChangeSet {
	var priorAudio, priorData map[string]fsmeta.FileRecord
	if prior != nil {
		priorAudio = prior.TrackedFiles.AudioFiles
		priorData = prior.TrackedFiles.DataFiles
	}

	changeSet := &ChangeSet{
		AudioToTranscode: changedPaths(currentAudio, priorAudio),
		DataToCopy:       changedPaths(currentData, priorData),
	}

	for path := range priorAudio {
		if _, stillPresent := currentAudio[path]; !stillPresent {
			changeSet.FilesToDeleteInOutput = append(changeSet.FilesToDeleteInOutput, AudioOutputPath(path, outputExtension))
		}
	}
	for path := range priorData {
		if _, stillPresent := currentData[path]; !stillPresent {
			changeSet.FilesToDeleteInOutput = append(changeSet.FilesToDeleteInOutput, path)
		}
	}
	sort.Strings(changeSet.FilesToDeleteInOutput)

	return changeSet
}

func changedPaths(current, prior map[string]fsmeta.FileRecord) []string {
	var changed []string
	for path, record := range current {
		previous, known := prior[path]
		if !known || !record.Matches(previous) {
			changed = append(changed, path)
		}
	}
	sort.Strings(changed)
	return changed
}

// AudioOutputPath maps a source audio path to its derived path in the
// transcoded album: same relative location, configured output extension.
func AudioOutputPath(relative, outputExtension string) string {
	if index := strings.LastIndexByte(relative, '.'); index > strings.LastIndexByte(relative, '/') {
		relative = relative[:index]
	}
	return relative + "." + outputExtension
}

// ArtistAlbum identifies one album for removal handling.
type ArtistAlbum struct {
	Artist string
	Album  string
}

// Removals lists artists and albums present in the library state but no
// longer discoverable on disk.
type Removals struct {
	// Artists whose whole directory is gone. Their albums are not repeated
	// in Albums.
	Artists []string
	// Albums removed while their artist still exists.
	Albums []ArtistAlbum
}

// IsEmpty reports whether nothing was removed since the last run.
func (r *Removals) IsEmpty() bool {
	return len(r.Artists) == 0 && len(r.Albums) == 0
}

// DetectRemovals compares the discovered artist/album tree against the
// persisted library state. A nil prior state means a first run: nothing can
// have been removed.
func DetectRemovals(discovered map[string][]string, prior *state.LibraryState) *Removals {
	removals := &Removals{}
	if prior == nil {
		return removals
	}

	for artist, tracked := range prior.TrackedArtists {
		albumsOnDisk, artistExists := discovered[artist]
		if !artistExists {
			removals.Artists = append(removals.Artists, artist)
			continue
		}
		onDisk := make(map[string]struct{}, len(albumsOnDisk))
		for _, album := range albumsOnDisk {
			onDisk[album] = struct{}{}
		}
		for _, album := range tracked.TrackedAlbums {
			if _, stillPresent := onDisk[album.AlbumTitle]; !stillPresent {
				removals.Albums = append(removals.Albums, ArtistAlbum{Artist: artist, Album: album.AlbumTitle})
			}
		}
	}

	sort.Strings(removals.Artists)
	sort.Slice(removals.Albums, func(i, j int) bool {
		if removals.Albums[i].Artist != removals.Albums[j].Artist {
			return removals.Albums[i].Artist < removals.Albums[j].Artist
		}
		return removals.Albums[i].Album < removals.Albums[j].Album
	})
	return removals
}
