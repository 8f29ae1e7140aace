// Package report decouples job execution from progress presentation: the
// scheduler publishes an ordered event stream and exactly one consumer per
// run renders it, either as a live dashboard or as plain log lines. The
// scheduler never knows which.
package report

// Kind enumerates the event vocabulary.
type Kind string

const (
	KindJobStarted     Kind = "job_started"
	KindJobProgress    Kind = "job_progress"
	KindJobSucceeded   Kind = "job_succeeded"
	KindJobFailed      Kind = "job_failed"
	KindJobCancelled   Kind = "job_cancelled"
	KindAlbumStarted   Kind = "album_started"
	KindAlbumCommitted Kind = "album_committed"
	KindLogLine        Kind = "log_line"
)

// Event is one entry of the progress stream. Only the fields relevant to
// the Kind are populated.
type Event struct {
	Kind Kind

	JobID   string
	JobKind string

	Library string
	Artist  string
	Album   string

	// Path is the file the job works on, relative to its album root.
	Path string

	// Fraction is the completed share of a running job, 0..1.
	Fraction float64

	// Attempt counts from 1; WillRetry is set on non-final failures.
	Attempt   int
	WillRetry bool

	Err error

	Level string
	Text  string
}

// Terminal reports whether the event is a terminal outcome that consumers
// must observe.
func (e Event) Terminal() bool {
	switch e.Kind {
	case KindJobSucceeded, KindJobCancelled, KindAlbumCommitted:
		return true
	case KindJobFailed:
		return !e.WillRetry
	default:
		return false
	}
}
