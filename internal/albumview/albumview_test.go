package albumview_test

import (
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"euphony/internal/albumview"
	"euphony/internal/config"
	"euphony/internal/services"
	"euphony/internal/testsupport"
)

func testLibrary(path string) *config.Library {
	return &config.Library{
		Name: "Test",
		Path: path,
		Transcoding: config.LibraryTranscoding{
			AudioFileExtensions: []string{"flac", "mp3"},
			OtherFileExtensions: []string{"jpg", "txt"},
			OtherFilesByName:    []string{"cover.png"},
		},
	}
}

func TestBuildClassifiesAlbumRoot(t *testing.T) {
	album := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(album, "01 Intro.flac"), 128)
	testsupport.WriteFile(t, filepath.Join(album, "02 Outro.FLAC"), 128)
	testsupport.WriteFile(t, filepath.Join(album, "cover.jpg"), 64)
	testsupport.WriteFile(t, filepath.Join(album, "cover.png"), 64)
	testsupport.WriteFile(t, filepath.Join(album, "notes.pdf"), 32)
	testsupport.WriteFile(t, filepath.Join(album, ".album.override.euphony"), 16)
	testsupport.WriteFile(t, filepath.Join(album, "cd2", "03 Hidden.flac"), 128)

	view, err := albumview.Build(album, 0, testLibrary(album))
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	wantAudio := []string{"01 Intro.flac", "02 Outro.FLAC"}
	if !reflect.DeepEqual(view.AudioFiles, wantAudio) {
		t.Fatalf("unexpected audio files: %v", view.AudioFiles)
	}
	wantData := []string{"cover.jpg", "cover.png"}
	if !reflect.DeepEqual(view.DataFiles, wantData) {
		t.Fatalf("unexpected data files: %v", view.DataFiles)
	}
	wantIgnored := []string{".album.override.euphony", "notes.pdf"}
	if !reflect.DeepEqual(view.IgnoredFiles, wantIgnored) {
		t.Fatalf("unexpected ignored files: %v", view.IgnoredFiles)
	}
}

func TestBuildHonorsScanDepth(t *testing.T) {
	album := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(album, "cd1", "01 One.flac"), 128)
	testsupport.WriteFile(t, filepath.Join(album, "cd2", "01 Two.flac"), 128)
	testsupport.WriteFile(t, filepath.Join(album, "cd2", "deeper", "x.flac"), 128)

	view, err := albumview.Build(album, 1, testLibrary(album))
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	want := []string{"cd1/01 One.flac", "cd2/01 Two.flac"}
	if !reflect.DeepEqual(view.AudioFiles, want) {
		t.Fatalf("unexpected audio files at depth 1: %v", view.AudioFiles)
	}

	view, err = albumview.Build(album, 2, testLibrary(album))
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	want = []string{"cd1/01 One.flac", "cd2/01 Two.flac", "cd2/deeper/x.flac"}
	if !reflect.DeepEqual(view.AudioFiles, want) {
		t.Fatalf("unexpected audio files at depth 2: %v", view.AudioFiles)
	}
}

func TestBuildFailsOnMissingDirectory(t *testing.T) {
	dir := t.TempDir()
	if _, err := albumview.Build(filepath.Join(dir, "missing"), 0, testLibrary(dir)); !errors.Is(err, services.ErrIO) {
		t.Fatalf("expected io error, got %v", err)
	}
}

func TestSourceRecords(t *testing.T) {
	album := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(album, "01 Intro.flac"), 4096)
	testsupport.WriteFile(t, filepath.Join(album, "cover.jpg"), 512)

	view, err := albumview.Build(album, 0, testLibrary(album))
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	audio, data, err := view.SourceRecords(album)
	if err != nil {
		t.Fatalf("SourceRecords returned error: %v", err)
	}
	if record, ok := audio["01 Intro.flac"]; !ok || record.SizeBytes != 4096 {
		t.Fatalf("unexpected audio records: %+v", audio)
	}
	if record, ok := data["cover.jpg"]; !ok || record.SizeBytes != 512 {
		t.Fatalf("unexpected data records: %+v", data)
	}
}

func TestDiscoverBuildsArtistAlbumTree(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(root, "Aphex Twin", "Drukqs", "01.flac"), 1)
	testsupport.WriteFile(t, filepath.Join(root, "Aphex Twin", "Syro", "01.flac"), 1)
	testsupport.WriteFile(t, filepath.Join(root, "Boards of Canada", "Geogaddi", "01.flac"), 1)
	testsupport.WriteFile(t, filepath.Join(root, "#Queue", "incoming", "x.flac"), 1)
	testsupport.WriteFile(t, filepath.Join(root, "readme.txt"), 1)

	library := testLibrary(root)
	library.IgnoredDirectories = []string{"#Queue"}

	tree, err := albumview.Discover(root, library)
	if err != nil {
		t.Fatalf("Discover returned error: %v", err)
	}
	if len(tree.Issues) != 0 {
		t.Fatalf("unexpected issues: %v", tree.Issues)
	}
	if !reflect.DeepEqual(tree.Artists["Aphex Twin"], []string{"Drukqs", "Syro"}) {
		t.Fatalf("unexpected albums: %v", tree.Artists["Aphex Twin"])
	}
	if _, ok := tree.Artists["#Queue"]; ok {
		t.Fatal("ignored directory must not appear as artist")
	}
	if _, ok := tree.Artists["Boards of Canada"]; !ok {
		t.Fatal("expected Boards of Canada artist")
	}
}

func TestDiscoverFlagsStructureViolations(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(root, "loose.flac"), 1)
	if _, err := albumview.Discover(root, testLibrary(root)); !errors.Is(err, services.ErrStructure) {
		t.Fatalf("expected structure error for audio in library root, got %v", err)
	}

	root = t.TempDir()
	testsupport.WriteFile(t, filepath.Join(root, "Artist", "stray.flac"), 1)
	testsupport.WriteFile(t, filepath.Join(root, "Artist", "Album", "01.flac"), 1)
	tree, err := albumview.Discover(root, testLibrary(root))
	if err != nil {
		t.Fatalf("Discover returned error: %v", err)
	}
	if len(tree.Issues) != 1 || !errors.Is(tree.Issues[0], services.ErrStructure) {
		t.Fatalf("expected one structure issue, got %v", tree.Issues)
	}
	if !reflect.DeepEqual(tree.Artists["Artist"], []string{"Album"}) {
		t.Fatalf("sibling albums must survive: %v", tree.Artists)
	}
}
