package fileutil_test

import (
	"os"
	"path/filepath"
	"testing"

	"euphony/internal/fileutil"
	"euphony/internal/testsupport"
)

func TestCopyFileCreatesParentsAndCopiesBytes(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src", "cover.jpg")
	dst := filepath.Join(dir, "out", "artist", "album", "cover.jpg")
	testsupport.WriteFile(t, src, 4096)

	if err := fileutil.CopyFile(src, dst); err != nil {
		t.Fatalf("CopyFile returned error: %v", err)
	}
	info, err := os.Stat(dst)
	if err != nil {
		t.Fatalf("stat destination: %v", err)
	}
	if info.Size() != 4096 {
		t.Fatalf("unexpected destination size: %d", info.Size())
	}
}

func TestCopyFileMissingSource(t *testing.T) {
	dir := t.TempDir()
	err := fileutil.CopyFile(filepath.Join(dir, "missing"), filepath.Join(dir, "dst"))
	if err == nil {
		t.Fatal("expected error for missing source")
	}
	if _, statErr := os.Stat(filepath.Join(dir, "dst")); !os.IsNotExist(statErr) {
		t.Fatal("destination must not exist after failed copy")
	}
}

func TestRemoveFileIfExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.mp3")
	testsupport.WriteFile(t, path, 1)

	if err := fileutil.RemoveFileIfExists(path); err != nil {
		t.Fatalf("remove existing: %v", err)
	}
	if err := fileutil.RemoveFileIfExists(path); err != nil {
		t.Fatalf("remove absent must succeed: %v", err)
	}
}

func TestRemoveEmptyParents(t *testing.T) {
	root := t.TempDir()
	leaf := filepath.Join(root, "artist", "album", "cd1")
	if err := os.MkdirAll(leaf, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	testsupport.WriteFile(t, filepath.Join(root, "artist", "keep.txt"), 1)

	fileutil.RemoveEmptyParents(leaf, root)

	if _, err := os.Stat(filepath.Join(root, "artist", "album")); !os.IsNotExist(err) {
		t.Fatal("empty album directory should be removed")
	}
	if _, err := os.Stat(filepath.Join(root, "artist")); err != nil {
		t.Fatal("non-empty artist directory must survive")
	}
}
