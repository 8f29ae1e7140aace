package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateTranscoding(); err != nil {
		return err
	}
	if err := c.validateFFmpeg(); err != nil {
		return err
	}
	if err := c.validateLibraries(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.TranscodedLibraryDir) == "" {
		return errors.New("paths.transcoded_library_dir must be set")
	}
	return nil
}

func (c *Config) validateTranscoding() error {
	if c.Transcoding.Threads <= 0 {
		return errors.New("transcoding.threads must be positive")
	}
	if c.Transcoding.FailureMaxRetries < 0 {
		return errors.New("transcoding.failure_max_retries must not be negative")
	}
	if c.Transcoding.FailureDelaySeconds < 0 {
		return errors.New("transcoding.failure_delay_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateFFmpeg() error {
	var hasInput, hasOutput bool
	for _, arg := range c.FFmpeg.AudioTranscodingArgs {
		if strings.Contains(arg, "{INPUT}") {
			hasInput = true
		}
		if strings.Contains(arg, "{OUTPUT}") {
			hasOutput = true
		}
	}
	if !hasInput || !hasOutput {
		return errors.New("ffmpeg.audio_transcoding_args must contain the {INPUT} and {OUTPUT} placeholders")
	}
	return nil
}

func (c *Config) validateLibraries() error {
	for key, library := range c.Libraries {
		if strings.TrimSpace(library.Path) == "" {
			return fmt.Errorf("libraries.%s.path must be set", key)
		}
		if len(library.Transcoding.AudioFileExtensions) == 0 {
			return fmt.Errorf("libraries.%s.transcoding.audio_file_extensions must not be empty", key)
		}
		for other, candidate := range c.Libraries {
			if other == key {
				continue
			}
			if candidate.Path == library.Path {
				return fmt.Errorf("libraries.%s and libraries.%s share the same path", key, other)
			}
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
