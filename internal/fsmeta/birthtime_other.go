//go:build !linux

package fsmeta

func birthTime(string) (float64, bool) {
	return 0, false
}
