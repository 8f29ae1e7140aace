package config

const (
	defaultTranscodedLibraryDir = "~/music/transcoded"
	defaultLogDir               = "~/.local/share/euphony/logs"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultTranscodeThreads     = 4
	defaultFailureMaxRetries    = 2
	defaultFailureDelaySeconds  = 2
	defaultFFmpegBinary         = "ffmpeg"
	defaultOutputExtension      = "mp3"
)

func defaultAudioTranscodingArgs() []string {
	return []string{
		"-i", "{INPUT}",
		"-vn",
		"-map_metadata", "0",
		"-codec:a", "libmp3lame",
		"-b:a", "320k",
		"-y",
		"{OUTPUT}",
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			TranscodedLibraryDir: defaultTranscodedLibraryDir,
			LogDir:               defaultLogDir,
		},
		Transcoding: Transcoding{
			Threads:             defaultTranscodeThreads,
			FailureMaxRetries:   defaultFailureMaxRetries,
			FailureDelaySeconds: defaultFailureDelaySeconds,
		},
		FFmpeg: FFmpeg{
			Binary:                          defaultFFmpegBinary,
			AudioTranscodingArgs:            defaultAudioTranscodingArgs(),
			AudioTranscodingOutputExtension: defaultOutputExtension,
		},
		Libraries: map[string]Library{},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

// DefaultLibraryTranscoding returns the tracked-file lists applied to a
// library that does not configure its own.
func DefaultLibraryTranscoding() LibraryTranscoding {
	return LibraryTranscoding{
		AudioFileExtensions: []string{"flac", "wav", "aiff", "alac", "mp3", "m4a", "ogg", "opus"},
		OtherFileExtensions: []string{"jpg", "jpeg", "png", "gif", "txt", "log", "cue", "m3u8"},
		OtherFilesByName:    []string{"cover.jpg", "cover.png", "folder.jpg"},
	}
}
