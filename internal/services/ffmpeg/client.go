package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"euphony/internal/services"
)

var commandContext = exec.CommandContext

// ProgressUpdate captures one progress report from a running transcode.
type ProgressUpdate struct {
	// Fraction is the completed share of the input duration, 0..1. It stays
	// at zero when the input duration could not be probed.
	Fraction float64
	// OutTimeSeconds is the position ffmpeg has encoded up to.
	OutTimeSeconds float64
	// Done is set on the final report.
	Done bool
}

// Client defines transcoding behaviour. The core treats any returned error
// as a job failure eligible for retry.
type Client interface {
	Transcode(ctx context.Context, inputPath, outputPath string, progress func(ProgressUpdate)) error
}

// Option configures the CLI client.
type Option func(*CLI)

// WithBinary overrides the default ffmpeg binary name.
func WithBinary(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.binary = binary
		}
	}
}

// WithProbeBinary overrides the default ffprobe binary name.
func WithProbeBinary(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.probeBinary = binary
		}
	}
}

// WithArgs replaces the argument template. The template must contain the
// {INPUT} and {OUTPUT} placeholders.
func WithArgs(args []string) Option {
	return func(c *CLI) {
		if len(args) > 0 {
			c.args = append([]string(nil), args...)
		}
	}
}

// CLI wraps the ffmpeg command-line tool.
type CLI struct {
	binary      string
	probeBinary string
	args        []string
}

// NewCLI constructs a CLI client using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{
		binary:      "ffmpeg",
		probeBinary: "ffprobe",
		args:        []string{"-i", "{INPUT}", "-vn", "-codec:a", "libmp3lame", "-b:a", "320k", "-y", "{OUTPUT}"},
	}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// Transcode runs the configured tool for one file, streaming progress
// reports parsed from ffmpeg's -progress output. The output's parent
// directory is created on demand.
func (c *CLI) Transcode(ctx context.Context, inputPath, outputPath string, progress func(ProgressUpdate)) error {
	if inputPath == "" {
		return errors.New("input path required")
	}
	if outputPath == "" {
		return errors.New("output path required")
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return services.Wrap(services.ErrIO, "ffmpeg", "create output directory", outputPath, err)
	}

	// Duration is only needed to turn out_time into a fraction; a probe
	// failure degrades to coarse progress, never to a job failure.
	duration, _ := c.probeDuration(ctx, inputPath)

	args := make([]string, 0, len(c.args)+6)
	args = append(args, "-hide_banner", "-nostats", "-loglevel", "error", "-progress", "pipe:1")
	for _, arg := range c.args {
		arg = strings.ReplaceAll(arg, "{INPUT}", inputPath)
		arg = strings.ReplaceAll(arg, "{OUTPUT}", outputPath)
		args = append(args, arg)
	}

	cmd := commandContext(ctx, c.binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "ffmpeg", "stdout pipe", "", err)
	}
	stderrTail := newTailBuffer(20)
	cmd.Stderr = stderrTail

	if err := cmd.Start(); err != nil {
		return services.Wrap(services.ErrExternalTool, "ffmpeg", "start", c.binary, err)
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		key, value, found := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if !found || progress == nil {
			continue
		}
		switch key {
		case "out_time_us", "out_time_ms":
			// Both report microseconds.
			micros, err := strconv.ParseInt(value, 10, 64)
			if err != nil || micros < 0 {
				continue
			}
			update := ProgressUpdate{OutTimeSeconds: float64(micros) / 1e6}
			if duration > 0 {
				update.Fraction = min(update.OutTimeSeconds/duration, 1)
			}
			progress(update)
		case "progress":
			if value == "end" {
				progress(ProgressUpdate{Fraction: 1, OutTimeSeconds: duration, Done: true})
			}
		}
	}

	waitErr := cmd.Wait()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if waitErr != nil {
		return services.Wrap(services.ErrExternalTool, "ffmpeg", "transcode", stderrTail.String(), waitErr)
	}
	if err := scanner.Err(); err != nil {
		return services.Wrap(services.ErrExternalTool, "ffmpeg", "read progress output", "", err)
	}
	return nil
}

// probeDuration asks ffprobe for the input duration in seconds.
func (c *CLI) probeDuration(ctx context.Context, inputPath string) (float64, error) {
	cmd := commandContext(ctx, c.probeBinary,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		inputPath,
	) //nolint:gosec
	output, err := cmd.Output()
	if err != nil {
		return 0, services.Wrap(services.ErrExternalTool, "ffmpeg", "probe duration", inputPath, err)
	}
	duration, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, services.Wrap(services.ErrExternalTool, "ffmpeg", "parse duration", strings.TrimSpace(string(output)), err)
	}
	return duration, nil
}

var _ Client = (*CLI)(nil)
