package testsupport

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"euphony/internal/services"
	"euphony/internal/services/ffmpeg"
)

// FakeTranscoder implements ffmpeg.Client for scheduler and pipeline tests.
// A successful call writes a small placeholder output file and reports two
// progress updates. Failures and blocking are scripted per input path.
type FakeTranscoder struct {
	mu sync.Mutex

	calls     []string
	failures  map[string]int
	blocking  map[string]bool
	unblocked chan struct{}
}

func NewFakeTranscoder() *FakeTranscoder {
	return &FakeTranscoder{
		failures:  make(map[string]int),
		blocking:  make(map[string]bool),
		unblocked: make(chan struct{}),
	}
}

// FailTimes scripts the next count calls for the input path to fail with a
// retryable external tool error.
func (f *FakeTranscoder) FailTimes(inputPath string, count int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[inputPath] = count
}

// BlockUntilCancelled scripts calls for the input path to hang until either
// the job context is cancelled or Unblock is called.
func (f *FakeTranscoder) BlockUntilCancelled(inputPath string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blocking[inputPath] = true
}

// Unblock releases every call currently parked by BlockUntilCancelled.
func (f *FakeTranscoder) Unblock() {
	close(f.unblocked)
}

// Calls returns the input paths of every Transcode invocation in order,
// retries included.
func (f *FakeTranscoder) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// CallCount returns how many times the input path was attempted.
func (f *FakeTranscoder) CallCount(inputPath string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, call := range f.calls {
		if call == inputPath {
			count++
		}
	}
	return count
}

func (f *FakeTranscoder) Transcode(ctx context.Context, inputPath, outputPath string, progress func(ffmpeg.ProgressUpdate)) error {
	f.mu.Lock()
	f.calls = append(f.calls, inputPath)
	shouldFail := f.failures[inputPath] > 0
	if shouldFail {
		f.failures[inputPath]--
	}
	shouldBlock := f.blocking[inputPath]
	f.mu.Unlock()

	if shouldBlock {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.unblocked:
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if shouldFail {
		return services.Wrap(services.ErrExternalTool, "ffmpeg", "transcode", "scripted failure", errors.New("exit status 1"))
	}

	if progress != nil {
		progress(ffmpeg.ProgressUpdate{Fraction: 0.5, OutTimeSeconds: 1})
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return services.Wrap(services.ErrIO, "ffmpeg", "transcode", "create output directory", err)
	}
	if err := os.WriteFile(outputPath, []byte("transcoded:"+filepath.Base(inputPath)), 0o644); err != nil {
		return services.Wrap(services.ErrIO, "ffmpeg", "transcode", "write output", err)
	}
	if progress != nil {
		progress(ffmpeg.ProgressUpdate{Fraction: 1, OutTimeSeconds: 2, Done: true})
	}
	return nil
}
