package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"euphony/internal/config"
)

func TestLoadDefaultsWhenNoFileExists(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if cfg.Paths.TranscodedLibraryDir != filepath.Join(tempHome, "music", "transcoded") {
		t.Fatalf("unexpected transcoded library dir: %q", cfg.Paths.TranscodedLibraryDir)
	}
	if cfg.Transcoding.Threads != 4 {
		t.Fatalf("unexpected default thread count: %d", cfg.Transcoding.Threads)
	}
	if cfg.Transcoding.FailureMaxRetries != 2 {
		t.Fatalf("unexpected default max retries: %d", cfg.Transcoding.FailureMaxRetries)
	}
	if cfg.FFmpeg.AudioTranscodingOutputExtension != "mp3" {
		t.Fatalf("unexpected output extension: %q", cfg.FFmpeg.AudioTranscodingOutputExtension)
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
}

func TestLoadParsesLibrariesAndNormalizesExtensions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
transcoded_library_dir = "` + filepath.Join(dir, "out") + `"
log_dir = "` + filepath.Join(dir, "logs") + `"

[libraries.lossless]
name = "Lossless"
path = "` + filepath.Join(dir, "lossless") + `"
ignored_directories_in_base_directory = ["#Queue"]

[libraries.lossless.transcoding]
audio_file_extensions = [".FLAC", "wav", "flac"]
other_file_extensions = ["JPG"]
other_files_by_name = ["cover.png"]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}

	library, ok := cfg.Libraries["lossless"]
	if !ok {
		t.Fatal("expected lossless library")
	}
	want := []string{"flac", "wav"}
	if len(library.Transcoding.AudioFileExtensions) != len(want) {
		t.Fatalf("unexpected audio extensions: %v", library.Transcoding.AudioFileExtensions)
	}
	for i, ext := range want {
		if library.Transcoding.AudioFileExtensions[i] != ext {
			t.Fatalf("unexpected audio extensions: %v", library.Transcoding.AudioFileExtensions)
		}
	}

	if !library.IsAudioFile("01 Intro.FLAC") {
		t.Fatal("expected uppercase extension to classify as audio")
	}
	if !library.IsDataFile("scans/front.jpg") {
		t.Fatal("expected jpg to classify as data")
	}
	if !library.IsDataFile("cover.png") {
		t.Fatal("expected cover.png to classify as data by name")
	}
	if library.IsAudioFile("notes.txt") {
		t.Fatal("txt must not classify as audio")
	}
}

func TestValidateRejectsBrokenConfigs(t *testing.T) {
	cases := []struct {
		name     string
		mutate   func(*config.Config)
		fragment string
	}{
		{
			name:     "zero threads",
			mutate:   func(c *config.Config) { c.Transcoding.Threads = 0 },
			fragment: "transcoding.threads",
		},
		{
			name:     "negative retries",
			mutate:   func(c *config.Config) { c.Transcoding.FailureMaxRetries = -1 },
			fragment: "failure_max_retries",
		},
		{
			name:     "missing placeholders",
			mutate:   func(c *config.Config) { c.FFmpeg.AudioTranscodingArgs = []string{"-i", "in.flac"} },
			fragment: "{INPUT}",
		},
		{
			name: "library without path",
			mutate: func(c *config.Config) {
				c.Libraries = map[string]config.Library{"broken": {Name: "Broken"}}
			},
			fragment: "libraries.broken.path",
		},
		{
			name:     "bad log level",
			mutate:   func(c *config.Config) { c.Logging.Level = "verbose" },
			fragment: "logging.level",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Logging.Format = "console"
			cfg.Logging.Level = "info"
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.fragment) {
				t.Fatalf("expected %q in error %q", tc.fragment, err)
			}
		})
	}
}

func TestLoadAlbumOverride(t *testing.T) {
	dir := t.TempDir()

	override, err := config.LoadAlbumOverride(dir)
	if err != nil {
		t.Fatalf("missing override must not error: %v", err)
	}
	if override.Scan.Depth != 0 {
		t.Fatalf("expected default depth 0, got %d", override.Scan.Depth)
	}

	path := filepath.Join(dir, config.AlbumOverrideFileName)
	if err := os.WriteFile(path, []byte("[scan]\ndepth = 2\n"), 0o644); err != nil {
		t.Fatalf("write override: %v", err)
	}
	override, err = config.LoadAlbumOverride(dir)
	if err != nil {
		t.Fatalf("LoadAlbumOverride returned error: %v", err)
	}
	if override.Scan.Depth != 2 {
		t.Fatalf("expected depth 2, got %d", override.Scan.Depth)
	}

	if err := os.WriteFile(path, []byte("[scan\ndepth"), 0o644); err != nil {
		t.Fatalf("write override: %v", err)
	}
	if _, err := config.LoadAlbumOverride(dir); err == nil {
		t.Fatal("expected parse error for malformed override")
	}
}
