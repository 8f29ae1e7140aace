// Package state persists the per-album and per-library snapshots that make
// change detection across runs possible. Snapshots are JSON documents with
// an explicit schema_version; unknown versions and corrupt files degrade to
// "never processed" instead of failing a run.
package state

import (
	"sort"

	"euphony/internal/fsmeta"
)

// State file names. Album states live at the root of the album directory
// they describe; the library state lives at the transcoded library root.
const (
	SourceAlbumStateFileName     = ".album.source-state.euphony"
	TranscodedAlbumStateFileName = ".album.transcode-state.euphony"
	LibraryStateFileName         = ".library.state.euphony"
)

const (
	albumStateSchemaVersion   = 2
	libraryStateSchemaVersion = 2
)

// AlbumFileState holds the tracked files of one album directory, keyed by
// path relative to the album root.
type AlbumFileState struct {
	AudioFiles map[string]fsmeta.FileRecord `json:"audio_files"`
	DataFiles  map[string]fsmeta.FileRecord `json:"data_files"`
}

// AlbumState is the persisted snapshot of one album directory. The same
// shape describes both the source album and its transcoded counterpart.
type AlbumState struct {
	SchemaVersion int            `json:"schema_version"`
	TrackedFiles  AlbumFileState `json:"tracked_files"`
}

// NewAlbumState builds a current-schema album state from stat records.
func NewAlbumState(audio, data map[string]fsmeta.FileRecord) *AlbumState {
	if audio == nil {
		audio = map[string]fsmeta.FileRecord{}
	}
	if data == nil {
		data = map[string]fsmeta.FileRecord{}
	}
	return &AlbumState{
		SchemaVersion: albumStateSchemaVersion,
		TrackedFiles: AlbumFileState{
			AudioFiles: audio,
			DataFiles:  data,
		},
	}
}

// TrackedAlbum identifies one album inside the library state.
type TrackedAlbum struct {
	AlbumTitle         string `json:"album_title"`
	SourceRelativePath string `json:"album_source_relative_path"`
}

// TrackedArtistAlbums lists the albums known for one artist.
type TrackedArtistAlbums struct {
	TrackedAlbums []TrackedAlbum `json:"tracked_albums"`
}

// LibraryState records every artist/album identifier known to exist in a
// source library as of the last completed scan. Directory traversal cannot
// see deleted directories, so removal detection needs this standing record.
type LibraryState struct {
	SchemaVersion  int                            `json:"schema_version"`
	TrackedArtists map[string]TrackedArtistAlbums `json:"tracked_artists"`
}

// NewLibraryState returns an empty current-schema library state.
func NewLibraryState() *LibraryState {
	return &LibraryState{
		SchemaVersion:  libraryStateSchemaVersion,
		TrackedArtists: map[string]TrackedArtistAlbums{},
	}
}

// SetArtistAlbums replaces the tracked album list for an artist.
func (s *LibraryState) SetArtistAlbums(artist string, albums []string) {
	tracked := make([]TrackedAlbum, 0, len(albums))
	for _, album := range albums {
		tracked = append(tracked, TrackedAlbum{
			AlbumTitle:         album,
			SourceRelativePath: artist + "/" + album,
		})
	}
	sort.Slice(tracked, func(i, j int) bool {
		return tracked[i].SourceRelativePath < tracked[j].SourceRelativePath
	})
	s.TrackedArtists[artist] = TrackedArtistAlbums{TrackedAlbums: tracked}
}

// TrackAlbum adds one album for an artist, keeping the list sorted and
// deduplicated.
func (s *LibraryState) TrackAlbum(artist, album string) {
	existing := s.TrackedArtists[artist]
	for _, tracked := range existing.TrackedAlbums {
		if tracked.AlbumTitle == album {
			return
		}
	}
	existing.TrackedAlbums = append(existing.TrackedAlbums, TrackedAlbum{
		AlbumTitle:         album,
		SourceRelativePath: artist + "/" + album,
	})
	sort.Slice(existing.TrackedAlbums, func(i, j int) bool {
		return existing.TrackedAlbums[i].SourceRelativePath < existing.TrackedAlbums[j].SourceRelativePath
	})
	s.TrackedArtists[artist] = existing
}

// RemoveAlbum drops one album; the artist entry disappears with its last
// album.
func (s *LibraryState) RemoveAlbum(artist, album string) {
	existing, ok := s.TrackedArtists[artist]
	if !ok {
		return
	}
	remaining := existing.TrackedAlbums[:0]
	for _, tracked := range existing.TrackedAlbums {
		if tracked.AlbumTitle != album {
			remaining = append(remaining, tracked)
		}
	}
	if len(remaining) == 0 {
		delete(s.TrackedArtists, artist)
		return
	}
	existing.TrackedAlbums = remaining
	s.TrackedArtists[artist] = existing
}

// RemoveArtist drops an artist and every album tracked under it.
func (s *LibraryState) RemoveArtist(artist string) {
	delete(s.TrackedArtists, artist)
}

// HasAlbum reports whether the artist/album pair is tracked.
func (s *LibraryState) HasAlbum(artist, album string) bool {
	existing, ok := s.TrackedArtists[artist]
	if !ok {
		return false
	}
	for _, tracked := range existing.TrackedAlbums {
		if tracked.AlbumTitle == album {
			return true
		}
	}
	return false
}
