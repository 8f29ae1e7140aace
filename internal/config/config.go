package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration shared by every library.
type Paths struct {
	TranscodedLibraryDir string `toml:"transcoded_library_dir"`
	LogDir               string `toml:"log_dir"`
}

// Transcoding contains worker pool sizing and retry policy.
type Transcoding struct {
	Threads             int `toml:"threads"`
	FailureMaxRetries   int `toml:"failure_max_retries"`
	FailureDelaySeconds int `toml:"failure_delay_seconds"`
}

// RetryDelay returns the configured pause before a failed job is attempted
// again.
func (t *Transcoding) RetryDelay() time.Duration {
	return time.Duration(t.FailureDelaySeconds) * time.Second
}

// FFmpeg contains configuration for the external transcoding tool.
//
// AudioTranscodingArgs is an argument template; the {INPUT} and {OUTPUT}
// placeholders are substituted per file.
type FFmpeg struct {
	Binary                          string   `toml:"binary"`
	AudioTranscodingArgs            []string `toml:"audio_transcoding_args"`
	AudioTranscodingOutputExtension string   `toml:"audio_transcoding_output_extension"`
}

// LibraryTranscoding describes which files inside a library are tracked.
// Extensions are matched case-insensitively and without the leading dot;
// OtherFilesByName matches exact base names regardless of extension.
type LibraryTranscoding struct {
	AudioFileExtensions []string `toml:"audio_file_extensions"`
	OtherFileExtensions []string `toml:"other_file_extensions"`
	OtherFilesByName    []string `toml:"other_files_by_name"`
}

// Library describes one source library (a directory of artist directories).
type Library struct {
	Name               string             `toml:"name"`
	Path               string             `toml:"path"`
	IgnoredDirectories []string           `toml:"ignored_directories_in_base_directory"`
	Transcoding        LibraryTranscoding `toml:"transcoding"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for euphony.
//
// Configuration sections by subsystem:
//   - Paths: transcoded library destination and log directory
//   - Transcoding: worker count and retry policy
//   - FFmpeg: external tool binary, argument template, output extension
//   - Libraries: one entry per source library with its tracked-file lists
//   - Logging: log format and level
type Config struct {
	Paths       Paths              `toml:"paths"`
	Transcoding Transcoding        `toml:"transcoding"`
	FFmpeg      FFmpeg             `toml:"ffmpeg"`
	Libraries   map[string]Library `toml:"libraries"`
	Logging     Logging            `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/euphony/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("euphony.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the transcoded library and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.TranscodedLibraryDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the configured transcoding tool executable.
func (c *Config) FFmpegBinary() string {
	if strings.TrimSpace(c.FFmpeg.Binary) == "" {
		return "ffmpeg"
	}
	return c.FFmpeg.Binary
}

// FFprobeBinary returns the ffprobe executable used for duration probing.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

// IsAudioFile reports whether the file name is tracked as audio in this
// library.
func (l *Library) IsAudioFile(fileName string) bool {
	return extensionMatches(fileName, l.Transcoding.AudioFileExtensions)
}

// IsDataFile reports whether the file name is tracked as a data file in this
// library, either by extension or by exact name.
func (l *Library) IsDataFile(fileName string) bool {
	base := filepath.Base(fileName)
	for _, name := range l.Transcoding.OtherFilesByName {
		if strings.EqualFold(base, name) {
			return true
		}
	}
	return extensionMatches(fileName, l.Transcoding.OtherFileExtensions)
}

func extensionMatches(fileName string, extensions []string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(fileName)), ".")
	if ext == "" {
		return false
	}
	for _, candidate := range extensions {
		if ext == candidate {
			return true
		}
	}
	return false
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
