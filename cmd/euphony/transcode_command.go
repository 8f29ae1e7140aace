package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"euphony/internal/pipeline"
	"euphony/internal/report"
	"euphony/internal/services/ffmpeg"
)

func newTranscodeCommand(cmdCtx *commandContext) *cobra.Command {
	var plainOutput bool

	cmd := &cobra.Command{
		Use:   "transcode",
		Short: "Synchronize the transcoded library with every source library",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}

			logger, err := newRunLogger(cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			transcoder := ffmpeg.NewCLI(
				ffmpeg.WithBinary(cfg.FFmpegBinary()),
				ffmpeg.WithProbeBinary(cfg.FFprobeBinary()),
				ffmpeg.WithArgs(cfg.FFmpeg.AudioTranscodingArgs),
			)

			var consumer report.Consumer
			if !plainOutput && isatty.IsTerminal(os.Stdout.Fd()) {
				consumer = report.NewDashboard(cmd.OutOrStdout())
			} else {
				consumer = report.NewLogConsumer(logger)
			}

			runner := pipeline.New(cfg, transcoder, consumer, logger)
			summary, err := runner.Run(ctx)
			if err != nil {
				if errors.Is(err, pipeline.ErrAlreadyRunning) {
					return err
				}
				return fmt.Errorf("synchronization run: %w", err)
			}

			printRunSummary(cmd, summary)

			if summary.Cancelled {
				return errors.New("run cancelled; incomplete albums will be retried on the next run")
			}
			if !summary.Clean() {
				return errors.New("run finished with failures; see the log for details")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&plainOutput, "plain", false, "Force plain log output instead of the live dashboard")
	return cmd
}

func printRunSummary(cmd *cobra.Command, summary *pipeline.Summary) {
	rows := [][2]string{
		{"Libraries scanned", strconv.Itoa(summary.LibrariesScanned)},
		{"Albums scanned", strconv.Itoa(summary.AlbumsScanned)},
		{"Albums up to date", strconv.Itoa(summary.AlbumsUpToDate)},
		{"Albums committed", strconv.Itoa(len(summary.Scheduler.CommittedAlbums))},
		{"Albums failed", strconv.Itoa(len(summary.Scheduler.FailedAlbums))},
		{"Albums cancelled", strconv.Itoa(len(summary.Scheduler.CancelledAlbums))},
		{"Jobs succeeded", strconv.Itoa(summary.Scheduler.JobsSucceeded)},
		{"Jobs failed", strconv.Itoa(summary.Scheduler.JobsFailed)},
		{"Jobs cancelled", strconv.Itoa(summary.Scheduler.JobsCancelled)},
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, renderSummaryTable("Run summary", rows))

	for _, failure := range summary.Scheduler.FailedAlbums {
		fmt.Fprintf(out, "failed: %s/%s: %v\n", failure.Plan.Artist, failure.Plan.Album, failure.Err)
	}
	for _, issue := range summary.LibraryIssues {
		fmt.Fprintf(out, "skipped library: %s\n", issue)
	}
	for _, issue := range summary.AlbumIssues {
		fmt.Fprintf(out, "skipped: %s\n", issue)
	}
	for _, issue := range summary.StructureIssues {
		fmt.Fprintf(out, "structure: %s\n", issue)
	}
}
