//go:build linux

package fsmeta

import "golang.org/x/sys/unix"

// birthTime reads the file creation timestamp via statx. Not every
// filesystem records a birth time; callers fall back when ok is false.
func birthTime(path string) (float64, bool) {
	var stx unix.Statx_t
	err := unix.Statx(unix.AT_FDCWD, path, unix.AT_STATX_SYNC_AS_STAT, unix.STATX_BTIME, &stx)
	if err != nil {
		return 0, false
	}
	if stx.Mask&unix.STATX_BTIME == 0 {
		return 0, false
	}
	return float64(stx.Btime.Sec) + float64(stx.Btime.Nsec)/1e9, true
}
