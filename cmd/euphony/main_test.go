package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"euphony/internal/testsupport"
)

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

type cliTestEnv struct {
	baseDir        string
	configPath     string
	musicDir       string
	transcodedDir  string
	ffmpegStubPath string
}

// setupCLITestEnv writes a full config file backed by temp directories and a
// stub ffmpeg that copies a marker to its last argument.
func setupCLITestEnv(t *testing.T, ffmpegScript string) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	env := &cliTestEnv{
		baseDir:        base,
		configPath:     filepath.Join(base, "config.toml"),
		musicDir:       filepath.Join(base, "music"),
		transcodedDir:  filepath.Join(base, "transcoded"),
		ffmpegStubPath: filepath.Join(base, "bin", "ffmpeg"),
	}

	if err := os.MkdirAll(env.musicDir, 0o755); err != nil {
		t.Fatalf("create music dir: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(env.ffmpegStubPath), 0o755); err != nil {
		t.Fatalf("create stub bin dir: %v", err)
	}
	if ffmpegScript == "" {
		ffmpegScript = "#!/bin/sh\nfor arg in \"$@\"; do out=\"$arg\"; done\necho transcoded > \"$out\"\n"
	}
	if err := os.WriteFile(env.ffmpegStubPath, []byte(ffmpegScript), 0o755); err != nil {
		t.Fatalf("write ffmpeg stub: %v", err)
	}

	content := fmt.Sprintf(`[paths]
transcoded_library_dir = %q
log_dir = %q

[transcoding]
threads = 2
failure_max_retries = 0
failure_delay_seconds = 0

[ffmpeg]
binary = %q

[libraries.music]
path = %q
`, env.transcodedDir, filepath.Join(base, "logs"), env.ffmpegStubPath, env.musicDir)
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

func TestCLIConfigInit(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	out, _, err := runCLI(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, "Wrote sample configuration") {
		t.Fatalf("unexpected init output: %q", out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected sample config written: %v", err)
	}

	if _, _, err := runCLI(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected error without --overwrite")
	}
	if _, _, err := runCLI(t, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestCLIConfigValidate(t *testing.T) {
	env := setupCLITestEnv(t, "")

	out, _, err := runCLI(t, "--config", env.configPath, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	if !strings.Contains(out, "Configuration valid") {
		t.Fatalf("unexpected validate output: %q", out)
	}
}

func TestCLIConfigPath(t *testing.T) {
	env := setupCLITestEnv(t, "")

	out, _, err := runCLI(t, "--config", env.configPath, "config", "path")
	if err != nil {
		t.Fatalf("config path: %v", err)
	}
	if !strings.Contains(out, env.configPath) {
		t.Fatalf("expected resolved path, got %q", out)
	}
}

func TestCLIShowConfig(t *testing.T) {
	env := setupCLITestEnv(t, "")

	out, _, err := runCLI(t, "--config", env.configPath, "show-config")
	if err != nil {
		t.Fatalf("show-config: %v", err)
	}
	if !strings.Contains(out, "transcoded_library_dir") {
		t.Fatalf("expected resolved paths in output: %q", out)
	}
	if !strings.Contains(out, env.configPath) {
		t.Fatalf("expected config path in output: %q", out)
	}
}

func TestCLITranscodeEndToEnd(t *testing.T) {
	env := setupCLITestEnv(t, "")

	testsupport.WriteFile(t, filepath.Join(env.musicDir, "Artist", "Album", "01 - Song.flac"), 512)
	testsupport.WriteFile(t, filepath.Join(env.musicDir, "Artist", "Album", "cover.jpg"), 128)

	out, _, err := runCLI(t, "--config", env.configPath, "transcode", "--plain")
	if err != nil {
		t.Fatalf("transcode: %v", err)
	}
	if !strings.Contains(out, "RUN SUMMARY") {
		t.Fatalf("expected summary table, got %q", out)
	}

	for _, want := range []string{"01 - Song.mp3", "cover.jpg"} {
		if _, err := os.Stat(filepath.Join(env.transcodedDir, "Artist", "Album", want)); err != nil {
			t.Fatalf("expected output %s: %v", want, err)
		}
	}
}

func TestCLITranscodeReportsFailure(t *testing.T) {
	env := setupCLITestEnv(t, "#!/bin/sh\necho 'boom' >&2\nexit 1\n")

	testsupport.WriteFile(t, filepath.Join(env.musicDir, "Artist", "Album", "01 - Song.flac"), 512)

	out, _, err := runCLI(t, "--config", env.configPath, "transcode", "--plain")
	if err == nil {
		t.Fatal("expected failing run to return an error")
	}
	if !strings.Contains(out, "failed: Artist/Album") {
		t.Fatalf("expected failure listed in summary, got %q", out)
	}
}
