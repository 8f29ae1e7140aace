package fsmeta_test

import (
	"errors"
	"path/filepath"
	"testing"

	"euphony/internal/fsmeta"
	"euphony/internal/services"
	"euphony/internal/testsupport"
)

func TestStatReadsSizeAndTimes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "track.flac")
	testsupport.WriteFile(t, path, 3403902)

	record, err := fsmeta.Stat(path)
	if err != nil {
		t.Fatalf("Stat returned error: %v", err)
	}
	if record.SizeBytes != 3403902 {
		t.Fatalf("unexpected size: %d", record.SizeBytes)
	}
	if record.TimeModified <= 0 {
		t.Fatalf("expected positive modification time, got %f", record.TimeModified)
	}
	if record.TimeCreated <= 0 {
		t.Fatalf("expected positive creation time, got %f", record.TimeCreated)
	}
}

func TestStatRejectsMissingAndDirectories(t *testing.T) {
	dir := t.TempDir()

	if _, err := fsmeta.Stat(filepath.Join(dir, "missing.flac")); !errors.Is(err, services.ErrIO) {
		t.Fatalf("expected io error for missing file, got %v", err)
	}
	if _, err := fsmeta.Stat(dir); !errors.Is(err, services.ErrIO) {
		t.Fatalf("expected io error for directory, got %v", err)
	}
}

func TestMatchesToleratesTimestampJitter(t *testing.T) {
	base := fsmeta.FileRecord{SizeBytes: 3403902, TimeModified: 1636881979.7, TimeCreated: 1636881979.7}

	jittered := base
	jittered.TimeModified += 0.05
	jittered.TimeCreated -= 0.05
	if !base.Matches(jittered) {
		t.Fatal("sub-0.1s timestamp perturbation must not register as a change")
	}

	moved := base
	moved.TimeModified += 0.2
	if base.Matches(moved) {
		t.Fatal("timestamp difference above tolerance must register as a change")
	}

	resized := base
	resized.SizeBytes++
	if base.Matches(resized) {
		t.Fatal("a single-byte size change must register as a change")
	}
}
