package ffmpeg

import (
	"strings"
	"sync"
)

// tailBuffer is an io.Writer that keeps only the last maxLines lines
// written to it. ffmpeg can be extremely chatty on stderr; error reports
// only need the tail.
type tailBuffer struct {
	mu       sync.Mutex
	maxLines int
	lines    []string
	partial  strings.Builder
}

func newTailBuffer(maxLines int) *tailBuffer {
	return &tailBuffer{maxLines: maxLines}
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, c := range string(p) {
		if c != '\n' {
			b.partial.WriteRune(c)
			continue
		}
		b.appendLine(b.partial.String())
		b.partial.Reset()
	}
	return len(p), nil
}

func (b *tailBuffer) appendLine(line string) {
	line = strings.TrimRight(line, "\r")
	if strings.TrimSpace(line) == "" {
		return
	}
	b.lines = append(b.lines, line)
	if len(b.lines) > b.maxLines {
		b.lines = b.lines[len(b.lines)-b.maxLines:]
	}
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	lines := b.lines
	if rest := strings.TrimSpace(b.partial.String()); rest != "" {
		lines = append(append([]string(nil), lines...), rest)
	}
	return strings.Join(lines, "; ")
}
