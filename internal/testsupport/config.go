package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"euphony/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test:
// one source library named "music" plus the transcoded library and log
// directories. It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.TranscodedLibraryDir = filepath.Join(base, "transcoded")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Transcoding.Threads = 2
	cfgVal.Transcoding.FailureDelaySeconds = 0
	cfgVal.Libraries = map[string]config.Library{
		"music": {
			Name:        "music",
			Path:        filepath.Join(base, "music"),
			Transcoding: config.DefaultLibraryTranscoding(),
		},
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	for _, library := range builder.cfg.Libraries {
		if err := os.MkdirAll(library.Path, 0o755); err != nil {
			t.Fatalf("create library root: %v", err)
		}
	}

	return builder.cfg
}

// WithThreads overrides the worker pool size on the test config.
func WithThreads(threads int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Transcoding.Threads = threads
	}
}

// WithRetries overrides the failure retry budget on the test config.
func WithRetries(maxRetries int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Transcoding.FailureMaxRetries = maxRetries
	}
}

// WithLibrary adds an extra source library rooted inside the test temp
// directory.
func WithLibrary(key string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Libraries[key] = config.Library{
			Name:        key,
			Path:        filepath.Join(b.baseDir, key),
			Transcoding: config.DefaultLibraryTranscoding(),
		}
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.TranscodedLibraryDir)
}
