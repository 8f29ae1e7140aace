// Package pipeline ties the scan, diff, scheduling and state stages into one
// run: discover the artist/album tree of every configured library, diff each
// album against its persisted snapshot, execute the resulting jobs and
// record the outcome. A run holds an exclusive lock on the transcoded
// library so two euphony processes never race on the same output tree.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/gofrs/flock"

	"euphony/internal/albumview"
	"euphony/internal/changes"
	"euphony/internal/config"
	"euphony/internal/logging"
	"euphony/internal/report"
	"euphony/internal/scheduler"
	"euphony/internal/services"
	"euphony/internal/services/ffmpeg"
	"euphony/internal/state"
)

// LockFileName is the advisory lock taken at the transcoded library root for
// the duration of a run.
const LockFileName = ".euphony.lock"

const eventBuffer = 64

// ErrAlreadyRunning reports that another euphony process holds the library
// lock.
var ErrAlreadyRunning = errors.New("another euphony run is already processing this transcoded library")

// Summary aggregates the outcome of one full run.
type Summary struct {
	Scheduler *scheduler.Summary

	LibrariesScanned int
	AlbumsScanned    int
	AlbumsUpToDate   int

	// LibraryIssues, StructureIssues and AlbumIssues are non-fatal problems
	// found during the scan; the affected library or album was skipped.
	LibraryIssues   []string
	StructureIssues []string
	AlbumIssues     []string

	Cancelled bool
}

// Clean reports whether the run finished with nothing left to redo.
func (s *Summary) Clean() bool {
	return !s.Cancelled && len(s.LibraryIssues) == 0 && len(s.AlbumIssues) == 0 && s.Scheduler.Clean()
}

// Runner executes full synchronization runs for one configuration.
type Runner struct {
	cfg        *config.Config
	transcoder ffmpeg.Client
	consumer   report.Consumer
	logger     *slog.Logger
}

func New(cfg *config.Config, transcoder ffmpeg.Client, consumer report.Consumer, logger *slog.Logger) *Runner {
	return &Runner{
		cfg:        cfg,
		transcoder: transcoder,
		consumer:   consumer,
		logger:     logging.NewComponentLogger(logger, "pipeline"),
	}
}

type trackedAlbum struct {
	artist string
	album  string
}

// Run performs one synchronization pass over every configured library.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	if err := r.cfg.EnsureDirectories(); err != nil {
		return nil, services.Wrap(services.ErrIO, "pipeline", "prepare directories", "", err)
	}

	transcodedRoot := r.cfg.Paths.TranscodedLibraryDir
	lock := flock.New(filepath.Join(transcodedRoot, LockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrIO, "pipeline", "acquire library lock", transcodedRoot, err)
	}
	if !locked {
		return nil, ErrAlreadyRunning
	}
	defer lock.Unlock()

	publisher := report.NewPublisher(eventBuffer)
	drained := make(chan struct{})
	go func() {
		report.Drain(publisher.Events(), r.consumer)
		close(drained)
	}()
	defer func() {
		publisher.Close()
		<-drained
	}()

	priorLibrary, err := state.LoadLibraryState(transcodedRoot)
	if err != nil {
		if !errors.Is(err, services.ErrSerialization) {
			return nil, err
		}
		r.logger.Warn("library state unreadable, treating as first run", logging.Error(err))
		priorLibrary = nil
	}

	summary := &Summary{}
	discovered := map[string][]string{}
	var plans []*scheduler.AlbumPlan
	var upToDate []trackedAlbum

	for _, key := range sortedLibraryKeys(r.cfg.Libraries) {
		library := r.cfg.Libraries[key]
		summary.LibrariesScanned++
		publisher.Publish(report.Event{Kind: report.KindLogLine, Level: "info",
			Text: fmt.Sprintf("scanning library %s at %s", library.Name, library.Path)})

		tree, err := albumview.Discover(library.Path, &library)
		if err != nil {
			issue := fmt.Sprintf("%s: %v", library.Name, err)
			summary.LibraryIssues = append(summary.LibraryIssues, issue)
			publisher.Publish(report.Event{Kind: report.KindLogLine, Level: "error", Text: "skipping library " + issue})
			continue
		}
		for _, issue := range tree.Issues {
			summary.StructureIssues = append(summary.StructureIssues, issue.Error())
			publisher.Publish(report.Event{Kind: report.KindLogLine, Level: "warn", Text: issue.Error()})
		}

		for artist, albums := range tree.Artists {
			discovered[artist] = mergeAlbums(discovered[artist], albums)
			for _, album := range albums {
				summary.AlbumsScanned++
				plan, err := r.planAlbum(&library, artist, album, transcodedRoot)
				if err != nil {
					issue := fmt.Sprintf("%s/%s: %v", artist, album, err)
					summary.AlbumIssues = append(summary.AlbumIssues, issue)
					publisher.Publish(report.Event{Kind: report.KindLogLine, Level: "error", Text: "skipping album " + issue})
					continue
				}
				if plan.Changes.IsEmpty() {
					summary.AlbumsUpToDate++
					upToDate = append(upToDate, trackedAlbum{artist: artist, album: album})
					continue
				}
				plans = append(plans, plan)
			}
		}
	}

	// Removal detection needs a complete picture of every library; a skipped
	// library would make all of its albums look deleted.
	removals := &changes.Removals{}
	if len(summary.LibraryIssues) == 0 {
		removals = changes.DetectRemovals(discovered, priorLibrary)
	}
	treeRemovals := r.expandRemovals(removals, transcodedRoot)

	pool := scheduler.New(r.transcoder, publisher, r.logger, r.cfg.Transcoding.Threads, scheduler.RetryPolicy{
		MaxRetries: r.cfg.Transcoding.FailureMaxRetries,
		RetryDelay: r.cfg.Transcoding.RetryDelay(),
	}, r.cfg.FFmpeg.AudioTranscodingOutputExtension, transcodedRoot)

	summary.Scheduler = pool.Run(ctx, plans, treeRemovals)
	summary.Cancelled = ctx.Err() != nil

	// A cancelled run keeps the previous library state so the next run sees
	// exactly what the last completed scan saw.
	if !summary.Cancelled {
		if err := r.commitLibraryState(priorLibrary, removals, summary.Scheduler, upToDate, transcodedRoot); err != nil {
			return nil, err
		}
	}

	return summary, nil
}

// planAlbum builds the scan view and change set for one album.
func (r *Runner) planAlbum(library *config.Library, artist, album, transcodedRoot string) (*scheduler.AlbumPlan, error) {
	sourceDir := filepath.Join(library.Path, artist, album)
	outputDir := filepath.Join(transcodedRoot, artist, album)

	override, err := config.LoadAlbumOverride(sourceDir)
	if err != nil {
		return nil, err
	}

	view, err := albumview.Build(sourceDir, override.Scan.Depth, library)
	if err != nil {
		return nil, err
	}
	audio, data, err := view.SourceRecords(sourceDir)
	if err != nil {
		return nil, err
	}

	prior, err := state.LoadAlbumState(filepath.Join(sourceDir, state.SourceAlbumStateFileName))
	if err != nil {
		if !errors.Is(err, services.ErrSerialization) {
			return nil, err
		}
		r.logger.Warn("album state unreadable, reprocessing album",
			logging.String(logging.FieldArtist, artist),
			logging.String(logging.FieldAlbum, album),
			logging.Error(err),
		)
		prior = nil
	}

	return &scheduler.AlbumPlan{
		Library:      library.Name,
		Artist:       artist,
		Album:        album,
		SourceDir:    sourceDir,
		OutputDir:    outputDir,
		Changes:      changes.Diff(audio, data, prior, r.cfg.FFmpeg.AudioTranscodingOutputExtension),
		AudioRecords: audio,
		DataRecords:  data,
	}, nil
}

func (r *Runner) expandRemovals(removals *changes.Removals, transcodedRoot string) []scheduler.TreeRemoval {
	var treeRemovals []scheduler.TreeRemoval
	for _, artist := range removals.Artists {
		treeRemovals = append(treeRemovals, scheduler.TreeRemoval{
			Artist: artist,
			Path:   filepath.Join(transcodedRoot, artist),
		})
	}
	for _, pair := range removals.Albums {
		treeRemovals = append(treeRemovals, scheduler.TreeRemoval{
			Artist: pair.Artist,
			Album:  pair.Album,
			Path:   filepath.Join(transcodedRoot, pair.Artist, pair.Album),
		})
	}
	return treeRemovals
}

// commitLibraryState folds the run outcome into the persisted library state:
// successful removals are dropped, committed and up-to-date albums tracked.
// Failed albums keep whatever tracking they had before.
func (r *Runner) commitLibraryState(prior *state.LibraryState, removals *changes.Removals, schedulerSummary *scheduler.Summary, upToDate []trackedAlbum, transcodedRoot string) error {
	next := prior
	if next == nil {
		next = state.NewLibraryState()
	}

	failedRemovals := make(map[string]struct{}, len(schedulerSummary.FailedRemovals))
	for _, removal := range schedulerSummary.FailedRemovals {
		failedRemovals[removal.Artist+"\x00"+removal.Album] = struct{}{}
	}
	for _, artist := range removals.Artists {
		if _, failed := failedRemovals[artist+"\x00"]; failed {
			continue
		}
		next.RemoveArtist(artist)
	}
	for _, pair := range removals.Albums {
		if _, failed := failedRemovals[pair.Artist+"\x00"+pair.Album]; failed {
			continue
		}
		next.RemoveAlbum(pair.Artist, pair.Album)
	}

	for _, plan := range schedulerSummary.CommittedAlbums {
		next.TrackAlbum(plan.Artist, plan.Album)
	}
	for _, entry := range upToDate {
		next.TrackAlbum(entry.artist, entry.album)
	}

	return state.SaveLibraryState(transcodedRoot, next)
}

// mergeAlbums unions album lists when the same artist appears in more than
// one source library.
func mergeAlbums(existing, found []string) []string {
	seen := make(map[string]struct{}, len(existing)+len(found))
	merged := make([]string, 0, len(existing)+len(found))
	for _, album := range existing {
		if _, dup := seen[album]; dup {
			continue
		}
		seen[album] = struct{}{}
		merged = append(merged, album)
	}
	for _, album := range found {
		if _, dup := seen[album]; dup {
			continue
		}
		seen[album] = struct{}{}
		merged = append(merged, album)
	}
	sort.Strings(merged)
	return merged
}

func sortedLibraryKeys(libraries map[string]config.Library) []string {
	keys := make([]string, 0, len(libraries))
	for key := range libraries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
