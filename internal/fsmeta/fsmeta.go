// Package fsmeta reads the cheap per-file metadata used for change
// detection: size plus modification and creation timestamps. Content is
// never hashed; an unchanged-looking file with identical size and times is
// assumed unchanged.
package fsmeta

import (
	"fmt"
	"math"
	"os"
	"time"

	"euphony/internal/services"
)

// FileRecord captures the tracked metadata of a single file. Timestamps are
// fractional seconds since the Unix epoch.
type FileRecord struct {
	SizeBytes    uint64  `json:"size_bytes"`
	TimeModified float64 `json:"time_modified"`
	TimeCreated  float64 `json:"time_created"`
}

// timeTolerance absorbs filesystem timestamp jitter across platforms and
// copies. Differences below one decimal digit of a second are not changes.
const timeTolerance = 0.1

// Stat reads the FileRecord for the file at path. Directories and other
// non-regular entries are rejected.
func Stat(path string) (FileRecord, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileRecord{}, services.Wrap(services.ErrIO, "fsmeta", "stat", path, err)
	}
	if !info.Mode().IsRegular() {
		return FileRecord{}, services.Wrap(services.ErrIO, "fsmeta", "stat", fmt.Sprintf("%s is not a regular file", path), nil)
	}

	record := FileRecord{
		SizeBytes:    uint64(info.Size()),
		TimeModified: epochSeconds(info.ModTime()),
	}
	if created, ok := birthTime(path); ok {
		record.TimeCreated = created
	} else {
		// Filesystems without birth time fall back to the modification
		// time, which keeps the record comparable across runs.
		record.TimeCreated = record.TimeModified
	}
	return record, nil
}

// Matches reports whether two records describe the same file state. Any size
// difference is a change; timestamps compare equal when truncated to one
// decimal digit of a second.
func (r FileRecord) Matches(other FileRecord) bool {
	if r.SizeBytes != other.SizeBytes {
		return false
	}
	if !approximateEqual(r.TimeModified, other.TimeModified) {
		return false
	}
	return approximateEqual(r.TimeCreated, other.TimeCreated)
}

func approximateEqual(a, b float64) bool {
	return math.Abs(a-b) <= timeTolerance
}

func epochSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
