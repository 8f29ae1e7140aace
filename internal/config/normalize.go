package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeLibraries(); err != nil {
		return err
	}
	c.normalizeFFmpeg()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.TranscodedLibraryDir, err = expandPath(c.Paths.TranscodedLibraryDir); err != nil {
		return fmt.Errorf("paths.transcoded_library_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLibraries() error {
	for key, library := range c.Libraries {
		expanded, err := expandPath(library.Path)
		if err != nil {
			return fmt.Errorf("libraries.%s.path: %w", key, err)
		}
		library.Path = expanded

		if strings.TrimSpace(library.Name) == "" {
			library.Name = key
		}
		if len(library.Transcoding.AudioFileExtensions) == 0 &&
			len(library.Transcoding.OtherFileExtensions) == 0 &&
			len(library.Transcoding.OtherFilesByName) == 0 {
			library.Transcoding = DefaultLibraryTranscoding()
		}
		library.Transcoding.AudioFileExtensions = normalizeExtensions(library.Transcoding.AudioFileExtensions)
		library.Transcoding.OtherFileExtensions = normalizeExtensions(library.Transcoding.OtherFileExtensions)

		c.Libraries[key] = library
	}
	return nil
}

func (c *Config) normalizeFFmpeg() {
	c.FFmpeg.Binary = strings.TrimSpace(c.FFmpeg.Binary)
	if c.FFmpeg.Binary == "" {
		c.FFmpeg.Binary = defaultFFmpegBinary
	}
	ext := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(c.FFmpeg.AudioTranscodingOutputExtension)), ".")
	if ext == "" {
		ext = defaultOutputExtension
	}
	c.FFmpeg.AudioTranscodingOutputExtension = ext
	if len(c.FFmpeg.AudioTranscodingArgs) == 0 {
		c.FFmpeg.AudioTranscodingArgs = defaultAudioTranscodingArgs()
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func normalizeExtensions(extensions []string) []string {
	normalized := make([]string, 0, len(extensions))
	seen := map[string]struct{}{}
	for _, ext := range extensions {
		cleaned := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
		if cleaned == "" {
			continue
		}
		if _, ok := seen[cleaned]; ok {
			continue
		}
		seen[cleaned] = struct{}{}
		normalized = append(normalized, cleaned)
	}
	return normalized
}
