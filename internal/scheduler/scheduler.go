// Package scheduler expands per-album change sets into file jobs and runs
// them on a fixed worker pool. Albums are committed strictly after every one
// of their jobs has finished cleanly; a failed or cancelled job leaves the
// album's persisted state untouched so the next run retries the outstanding
// work.
package scheduler

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"euphony/internal/changes"
	"euphony/internal/fileutil"
	"euphony/internal/fsmeta"
	"euphony/internal/logging"
	"euphony/internal/report"
	"euphony/internal/services"
	"euphony/internal/services/ffmpeg"
	"euphony/internal/state"
)

// JobKind identifies the operation a job performs.
type JobKind string

const (
	JobTranscode  JobKind = "transcode"
	JobCopy       JobKind = "copy"
	JobDeleteFile JobKind = "delete_file"
	JobDeleteTree JobKind = "delete_tree"
)

// AlbumPlan carries everything the scheduler needs to process one album:
// the change set to execute and the fresh stat records captured during the
// scan, which become the source snapshot on commit.
type AlbumPlan struct {
	Library string
	Artist  string
	Album   string

	// SourceDir and OutputDir are the absolute album roots on both sides.
	SourceDir string
	OutputDir string

	Changes *changes.ChangeSet

	AudioRecords map[string]fsmeta.FileRecord
	DataRecords  map[string]fsmeta.FileRecord
}

// TreeRemoval asks for a whole output directory to go away because its
// source artist or album no longer exists. Album is empty when the entire
// artist is gone.
type TreeRemoval struct {
	Library string
	Artist  string
	Album   string
	Path    string
}

// RetryPolicy bounds how often a failed job is retried and how long the
// owning worker pauses before the next attempt. The pause never blocks
// other workers.
type RetryPolicy struct {
	MaxRetries int
	RetryDelay time.Duration
}

// AlbumFailure pairs a plan with the first error that sank it.
type AlbumFailure struct {
	Plan *AlbumPlan
	Err  error
}

// Summary is the outcome of one scheduler run.
type Summary struct {
	CommittedAlbums []*AlbumPlan
	FailedAlbums    []AlbumFailure
	CancelledAlbums []*AlbumPlan
	FailedRemovals  []TreeRemoval

	JobsSucceeded int
	JobsFailed    int
	JobsCancelled int
}

// Clean reports whether every album committed and every removal went
// through.
func (s *Summary) Clean() bool {
	return len(s.FailedAlbums) == 0 && len(s.CancelledAlbums) == 0 && len(s.FailedRemovals) == 0
}

// Scheduler runs album plans against the transcoding tool.
type Scheduler struct {
	transcoder      ffmpeg.Client
	publisher       *report.Publisher
	logger          *slog.Logger
	threads         int
	policy          RetryPolicy
	outputExtension string
	transcodedRoot  string
}

func New(transcoder ffmpeg.Client, publisher *report.Publisher, logger *slog.Logger, threads int, policy RetryPolicy, outputExtension, transcodedRoot string) *Scheduler {
	if threads < 1 {
		threads = 1
	}
	return &Scheduler{
		transcoder:      transcoder,
		publisher:       publisher,
		logger:          logging.NewComponentLogger(logger, "scheduler"),
		threads:         threads,
		policy:          policy,
		outputExtension: outputExtension,
		transcodedRoot:  transcodedRoot,
	}
}

// albumTracker is the per-album completion barrier. The worker that brings
// pending to zero owns the commit.
type albumTracker struct {
	plan      *AlbumPlan
	pending   int
	failed    bool
	cancelled bool
	firstErr  error
}

type job struct {
	id    string
	kind  JobKind
	album *albumTracker

	// relPath is relative to the album root on the side the job touches.
	relPath    string
	inputPath  string
	outputPath string

	removal *TreeRemoval
}

// Run executes every plan and removal, blocking until all jobs have a
// terminal outcome. Closing the publisher stays with its creator; Run only
// guarantees that no events follow its return.
func (s *Scheduler) Run(ctx context.Context, plans []*AlbumPlan, removals []TreeRemoval) *Summary {
	summary := &Summary{}
	var summaryMu sync.Mutex

	jobs := s.expand(plans, removals, summary, &summaryMu)

	queue := make(chan *job, len(jobs))
	for _, j := range jobs {
		queue <- j
	}
	close(queue)

	var workers sync.WaitGroup
	for i := 0; i < s.threads; i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			for j := range queue {
				s.runJob(ctx, j, summary, &summaryMu)
			}
		}()
	}
	workers.Wait()

	return summary
}

// expand turns plans and removals into the flat job list. Albums whose
// change set is somehow empty commit immediately.
func (s *Scheduler) expand(plans []*AlbumPlan, removals []TreeRemoval, summary *Summary, summaryMu *sync.Mutex) []*job {
	var jobs []*job

	for _, plan := range plans {
		tracker := &albumTracker{plan: plan, pending: plan.Changes.TotalJobs()}

		s.publisher.Publish(report.Event{
			Kind:    report.KindAlbumStarted,
			Library: plan.Library,
			Artist:  plan.Artist,
			Album:   plan.Album,
		})

		if tracker.pending == 0 {
			s.commitAlbum(tracker, summary, summaryMu)
			continue
		}

		for _, relPath := range plan.Changes.AudioToTranscode {
			jobs = append(jobs, &job{
				id:         uuid.NewString(),
				kind:       JobTranscode,
				album:      tracker,
				relPath:    relPath,
				inputPath:  filepath.Join(plan.SourceDir, filepath.FromSlash(relPath)),
				outputPath: filepath.Join(plan.OutputDir, filepath.FromSlash(changes.AudioOutputPath(relPath, s.outputExtension))),
			})
		}
		for _, relPath := range plan.Changes.DataToCopy {
			jobs = append(jobs, &job{
				id:         uuid.NewString(),
				kind:       JobCopy,
				album:      tracker,
				relPath:    relPath,
				inputPath:  filepath.Join(plan.SourceDir, filepath.FromSlash(relPath)),
				outputPath: filepath.Join(plan.OutputDir, filepath.FromSlash(relPath)),
			})
		}
		for _, relPath := range plan.Changes.FilesToDeleteInOutput {
			jobs = append(jobs, &job{
				id:         uuid.NewString(),
				kind:       JobDeleteFile,
				album:      tracker,
				relPath:    relPath,
				outputPath: filepath.Join(plan.OutputDir, filepath.FromSlash(relPath)),
			})
		}
	}

	for _, removal := range removals {
		removal := removal
		jobs = append(jobs, &job{
			id:      uuid.NewString(),
			kind:    JobDeleteTree,
			removal: &removal,
		})
	}

	return jobs
}

func (s *Scheduler) runJob(ctx context.Context, j *job, summary *Summary, summaryMu *sync.Mutex) {
	if ctx.Err() != nil {
		s.finishCancelled(j, summary, summaryMu)
		return
	}

	s.publisher.Publish(s.jobEvent(report.KindJobStarted, j))

	for attempt := 1; ; attempt++ {
		err := s.execute(ctx, j)
		if err == nil {
			s.finishSucceeded(j, summary, summaryMu)
			return
		}

		if services.IsCancellation(err) || ctx.Err() != nil {
			s.cleanupPartialOutput(j)
			s.finishCancelled(j, summary, summaryMu)
			return
		}

		s.cleanupPartialOutput(j)

		willRetry := services.Retryable(err) && attempt <= s.policy.MaxRetries
		event := s.jobEvent(report.KindJobFailed, j)
		event.Attempt = attempt
		event.WillRetry = willRetry
		event.Err = err
		s.publisher.Publish(event)

		if !willRetry {
			s.finishFailed(j, err, summary, summaryMu)
			return
		}

		if !s.waitRetryDelay(ctx) {
			s.finishCancelled(j, summary, summaryMu)
			return
		}
	}
}

// waitRetryDelay pauses the calling worker, returning false when the run
// was cancelled during the pause.
func (s *Scheduler) waitRetryDelay(ctx context.Context) bool {
	if s.policy.RetryDelay <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(s.policy.RetryDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (s *Scheduler) execute(ctx context.Context, j *job) error {
	switch j.kind {
	case JobTranscode:
		return s.transcoder.Transcode(ctx, j.inputPath, j.outputPath, func(update ffmpeg.ProgressUpdate) {
			event := s.jobEvent(report.KindJobProgress, j)
			event.Fraction = update.Fraction
			s.publisher.Publish(event)
		})
	case JobCopy:
		if err := fileutil.CopyFile(j.inputPath, j.outputPath); err != nil {
			return services.Wrap(services.ErrIO, "scheduler", "copy", j.relPath, err)
		}
		return nil
	case JobDeleteFile:
		if err := fileutil.RemoveFileIfExists(j.outputPath); err != nil {
			return services.Wrap(services.ErrIO, "scheduler", "delete output file", j.relPath, err)
		}
		fileutil.RemoveEmptyParents(filepath.Dir(j.outputPath), j.album.plan.OutputDir)
		return nil
	case JobDeleteTree:
		if err := os.RemoveAll(j.removal.Path); err != nil {
			return services.Wrap(services.ErrIO, "scheduler", "delete output tree", j.removal.Path, err)
		}
		fileutil.RemoveEmptyParents(filepath.Dir(j.removal.Path), s.transcodedRoot)
		return nil
	default:
		return services.Wrap(services.ErrStructure, "scheduler", "execute", "unknown job kind "+string(j.kind), nil)
	}
}

// cleanupPartialOutput removes whatever a broken transcode or copy left
// behind. Delete jobs have nothing to clean.
func (s *Scheduler) cleanupPartialOutput(j *job) {
	if j.kind != JobTranscode && j.kind != JobCopy {
		return
	}
	if err := fileutil.RemoveFileIfExists(j.outputPath); err != nil {
		s.logger.Warn("removing partial output failed",
			logging.String("path", j.outputPath),
			logging.Error(err),
		)
	}
}

func (s *Scheduler) finishSucceeded(j *job, summary *Summary, summaryMu *sync.Mutex) {
	s.publisher.Publish(s.jobEvent(report.KindJobSucceeded, j))
	summaryMu.Lock()
	summary.JobsSucceeded++
	summaryMu.Unlock()
	s.jobDone(j, nil, false, summary, summaryMu)
}

func (s *Scheduler) finishFailed(j *job, err error, summary *Summary, summaryMu *sync.Mutex) {
	summaryMu.Lock()
	summary.JobsFailed++
	if j.removal != nil {
		summary.FailedRemovals = append(summary.FailedRemovals, *j.removal)
	}
	summaryMu.Unlock()
	s.jobDone(j, err, false, summary, summaryMu)
}

func (s *Scheduler) finishCancelled(j *job, summary *Summary, summaryMu *sync.Mutex) {
	s.publisher.Publish(s.jobEvent(report.KindJobCancelled, j))
	summaryMu.Lock()
	summary.JobsCancelled++
	summaryMu.Unlock()
	s.jobDone(j, nil, true, summary, summaryMu)
}

// jobDone decrements the album barrier and lets the worker that closed it
// commit or record the album outcome. Removal jobs have no album.
func (s *Scheduler) jobDone(j *job, err error, cancelled bool, summary *Summary, summaryMu *sync.Mutex) {
	tracker := j.album
	if tracker == nil {
		return
	}

	summaryMu.Lock()
	if cancelled {
		tracker.cancelled = true
	} else if err != nil {
		tracker.failed = true
		if tracker.firstErr == nil {
			tracker.firstErr = err
		}
	}
	tracker.pending--
	last := tracker.pending == 0
	summaryMu.Unlock()

	if !last {
		return
	}

	switch {
	case tracker.cancelled:
		summaryMu.Lock()
		summary.CancelledAlbums = append(summary.CancelledAlbums, tracker.plan)
		summaryMu.Unlock()
	case tracker.failed:
		summaryMu.Lock()
		summary.FailedAlbums = append(summary.FailedAlbums, AlbumFailure{Plan: tracker.plan, Err: tracker.firstErr})
		summaryMu.Unlock()
	default:
		s.commitAlbum(tracker, summary, summaryMu)
	}
}

// commitAlbum persists both album snapshots once every job of the album has
// succeeded. The source snapshot reuses the records captured during the
// scan; the transcoded snapshot stats the output files the run just
// produced.
func (s *Scheduler) commitAlbum(tracker *albumTracker, summary *Summary, summaryMu *sync.Mutex) {
	plan := tracker.plan

	sourceState := state.NewAlbumState(plan.AudioRecords, plan.DataRecords)
	if err := state.SaveAlbumState(filepath.Join(plan.SourceDir, state.SourceAlbumStateFileName), sourceState); err != nil {
		s.recordCommitFailure(plan, err, summary, summaryMu)
		return
	}

	transcodeState, err := s.statOutputs(plan)
	if err != nil {
		s.recordCommitFailure(plan, err, summary, summaryMu)
		return
	}
	if err := state.SaveAlbumState(filepath.Join(plan.OutputDir, state.TranscodedAlbumStateFileName), transcodeState); err != nil {
		s.recordCommitFailure(plan, err, summary, summaryMu)
		return
	}

	summaryMu.Lock()
	summary.CommittedAlbums = append(summary.CommittedAlbums, plan)
	summaryMu.Unlock()

	s.publisher.Publish(report.Event{
		Kind:    report.KindAlbumCommitted,
		Library: plan.Library,
		Artist:  plan.Artist,
		Album:   plan.Album,
	})
}

func (s *Scheduler) recordCommitFailure(plan *AlbumPlan, err error, summary *Summary, summaryMu *sync.Mutex) {
	s.logger.Error("album commit failed",
		logging.String(logging.FieldArtist, plan.Artist),
		logging.String(logging.FieldAlbum, plan.Album),
		logging.Error(err),
	)
	summaryMu.Lock()
	summary.FailedAlbums = append(summary.FailedAlbums, AlbumFailure{Plan: plan, Err: err})
	summaryMu.Unlock()
}

// statOutputs builds the transcoded album snapshot by stat-ing every file
// the album is expected to contain after a clean run.
func (s *Scheduler) statOutputs(plan *AlbumPlan) (*state.AlbumState, error) {
	audio := make(map[string]fsmeta.FileRecord, len(plan.AudioRecords))
	for relPath := range plan.AudioRecords {
		outputRel := changes.AudioOutputPath(relPath, s.outputExtension)
		record, err := fsmeta.Stat(filepath.Join(plan.OutputDir, filepath.FromSlash(outputRel)))
		if err != nil {
			return nil, services.Wrap(services.ErrIO, "scheduler", "stat transcoded file", outputRel, err)
		}
		audio[outputRel] = record
	}
	data := make(map[string]fsmeta.FileRecord, len(plan.DataRecords))
	for relPath := range plan.DataRecords {
		record, err := fsmeta.Stat(filepath.Join(plan.OutputDir, filepath.FromSlash(relPath)))
		if err != nil {
			return nil, services.Wrap(services.ErrIO, "scheduler", "stat copied file", relPath, err)
		}
		data[relPath] = record
	}
	return state.NewAlbumState(audio, data), nil
}

func (s *Scheduler) jobEvent(kind report.Kind, j *job) report.Event {
	event := report.Event{
		Kind:    kind,
		JobID:   j.id,
		JobKind: string(j.kind),
	}
	if j.album != nil {
		event.Library = j.album.plan.Library
		event.Artist = j.album.plan.Artist
		event.Album = j.album.plan.Album
		event.Path = j.relPath
	} else if j.removal != nil {
		event.Library = j.removal.Library
		event.Artist = j.removal.Artist
		event.Album = j.removal.Album
		event.Path = j.removal.Path
	}
	return event
}
