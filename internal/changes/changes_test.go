package changes_test

import (
	"reflect"
	"testing"

	"euphony/internal/changes"
	"euphony/internal/fsmeta"
	"euphony/internal/state"
)

func record(size uint64, when float64) fsmeta.FileRecord {
	return fsmeta.FileRecord{SizeBytes: size, TimeModified: when, TimeCreated: when}
}

func TestDiffFirstRunMarksEverything(t *testing.T) {
	audio := map[string]fsmeta.FileRecord{"A.flac": record(3403902, 1636881979.7)}
	data := map[string]fsmeta.FileRecord{"cover.jpg": record(512, 1636881979.7)}

	changeSet := changes.Diff(audio, data, nil, "mp3")
	if !reflect.DeepEqual(changeSet.AudioToTranscode, []string{"A.flac"}) {
		t.Fatalf("unexpected audio changes: %v", changeSet.AudioToTranscode)
	}
	if !reflect.DeepEqual(changeSet.DataToCopy, []string{"cover.jpg"}) {
		t.Fatalf("unexpected data changes: %v", changeSet.DataToCopy)
	}
	if len(changeSet.FilesToDeleteInOutput) != 0 {
		t.Fatalf("unexpected deletions: %v", changeSet.FilesToDeleteInOutput)
	}
}

func TestDiffIsEmptyWhenNothingChanged(t *testing.T) {
	audio := map[string]fsmeta.FileRecord{"A.flac": record(3403902, 1636881979.7)}
	data := map[string]fsmeta.FileRecord{"cover.jpg": record(512, 1636881979.7)}
	prior := state.NewAlbumState(
		map[string]fsmeta.FileRecord{"A.flac": record(3403902, 1636881979.72)},
		map[string]fsmeta.FileRecord{"cover.jpg": record(512, 1636881979.68)},
	)

	changeSet := changes.Diff(audio, data, prior, "mp3")
	if !changeSet.IsEmpty() {
		t.Fatalf("expected empty change set, got %+v", changeSet)
	}
}

func TestDiffDetectsMetadataChanges(t *testing.T) {
	prior := state.NewAlbumState(
		map[string]fsmeta.FileRecord{
			"A.flac": record(3403902, 1636881979.7),
			"B.flac": record(100, 1636881979.7),
		},
		map[string]fsmeta.FileRecord{"cover.jpg": record(512, 1636881979.7)},
	)
	audio := map[string]fsmeta.FileRecord{
		"A.flac": record(3403903, 1636881979.7), // one byte larger
		"B.flac": record(100, 1636881999.9),     // touched
	}
	data := map[string]fsmeta.FileRecord{"cover.jpg": record(512, 1636881979.7)}

	changeSet := changes.Diff(audio, data, prior, "mp3")
	if !reflect.DeepEqual(changeSet.AudioToTranscode, []string{"A.flac", "B.flac"}) {
		t.Fatalf("unexpected audio changes: %v", changeSet.AudioToTranscode)
	}
	if len(changeSet.DataToCopy) != 0 {
		t.Fatalf("unchanged data must not be copied: %v", changeSet.DataToCopy)
	}
}

func TestDiffPropagatesDeletions(t *testing.T) {
	prior := state.NewAlbumState(
		map[string]fsmeta.FileRecord{"gone.flac": record(1, 1), "kept.flac": record(2, 2)},
		map[string]fsmeta.FileRecord{"booklet.pdf": record(3, 3)},
	)
	audio := map[string]fsmeta.FileRecord{"kept.flac": record(2, 2)}

	changeSet := changes.Diff(audio, nil, prior, "mp3")
	want := []string{"booklet.pdf", "gone.mp3"}
	if !reflect.DeepEqual(changeSet.FilesToDeleteInOutput, want) {
		t.Fatalf("unexpected deletions: %v", changeSet.FilesToDeleteInOutput)
	}
	if changeSet.TotalJobs() != 2 {
		t.Fatalf("unexpected job count: %d", changeSet.TotalJobs())
	}
}

func TestAudioOutputPath(t *testing.T) {
	cases := map[string]string{
		"A.flac":           "A.mp3",
		"cd1/01 Intro.wav": "cd1/01 Intro.mp3",
		"no-extension":     "no-extension.mp3",
		"dir.with.dots/x":  "dir.with.dots/x.mp3",
	}
	for input, want := range cases {
		if got := changes.AudioOutputPath(input, "mp3"); got != want {
			t.Fatalf("AudioOutputPath(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestDetectRemovals(t *testing.T) {
	prior := state.NewLibraryState()
	prior.SetArtistAlbums("Gone Artist", []string{"Album A", "Album B"})
	prior.SetArtistAlbums("Kept Artist", []string{"Kept Album", "Removed Album"})

	discovered := map[string][]string{
		"Kept Artist": {"Kept Album"},
		"New Artist":  {"Debut"},
	}

	removals := changes.DetectRemovals(discovered, prior)
	if !reflect.DeepEqual(removals.Artists, []string{"Gone Artist"}) {
		t.Fatalf("unexpected removed artists: %v", removals.Artists)
	}
	want := []changes.ArtistAlbum{{Artist: "Kept Artist", Album: "Removed Album"}}
	if !reflect.DeepEqual(removals.Albums, want) {
		t.Fatalf("unexpected removed albums: %v", removals.Albums)
	}

	if empty := changes.DetectRemovals(discovered, nil); !empty.IsEmpty() {
		t.Fatalf("first run must yield no removals: %+v", empty)
	}
}
