package report

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/progress"
)

const trackerTotal = 1000

// Dashboard renders the event stream as an in-place terminal view with
// one tracker per active job. It owns a background render goroutine
// that Close stops.
type Dashboard struct {
	writer   progress.Writer
	trackers map[string]*progress.Tracker
}

func NewDashboard(out io.Writer) *Dashboard {
	pw := progress.NewWriter()
	pw.SetOutputWriter(out)
	pw.SetUpdateFrequency(100 * time.Millisecond)
	pw.SetTrackerLength(30)
	pw.SetTrackerPosition(progress.PositionRight)
	pw.SetSortBy(progress.SortByMessage)
	pw.SetStyle(progress.StyleDefault)
	pw.Style().Visibility.ETA = false
	pw.Style().Visibility.Time = true
	pw.Style().Visibility.Value = false

	go pw.Render()

	return &Dashboard{
		writer:   pw,
		trackers: make(map[string]*progress.Tracker),
	}
}

func (d *Dashboard) HandleEvent(event Event) {
	switch event.Kind {
	case KindJobStarted:
		tracker := &progress.Tracker{
			Message: jobMessage(event),
			Total:   trackerTotal,
			Units:   progress.UnitsDefault,
		}
		d.trackers[event.JobID] = tracker
		d.writer.AppendTracker(tracker)
	case KindJobProgress:
		if tracker, ok := d.trackers[event.JobID]; ok {
			tracker.SetValue(int64(event.Fraction * trackerTotal))
		}
	case KindJobSucceeded:
		if tracker, ok := d.trackers[event.JobID]; ok {
			tracker.SetValue(trackerTotal)
			tracker.MarkAsDone()
			delete(d.trackers, event.JobID)
		}
	case KindJobFailed:
		if event.WillRetry {
			if tracker, ok := d.trackers[event.JobID]; ok {
				tracker.SetValue(0)
			}
			d.writer.Log("retrying %s: %v", jobMessage(event), event.Err)
			return
		}
		if tracker, ok := d.trackers[event.JobID]; ok {
			tracker.MarkAsErrored()
			delete(d.trackers, event.JobID)
		}
		d.writer.Log("failed %s: %v", jobMessage(event), event.Err)
	case KindJobCancelled:
		if tracker, ok := d.trackers[event.JobID]; ok {
			tracker.MarkAsErrored()
			delete(d.trackers, event.JobID)
		}
	case KindAlbumStarted:
		d.writer.Log("processing %s / %s", event.Artist, event.Album)
	case KindAlbumCommitted:
		d.writer.Log("committed %s / %s", event.Artist, event.Album)
	case KindLogLine:
		d.writer.Log("%s", event.Text)
	}
}

// Close stops the render goroutine after letting it paint the final
// state.
func (d *Dashboard) Close() {
	for _, tracker := range d.trackers {
		tracker.MarkAsErrored()
	}
	time.Sleep(150 * time.Millisecond)
	d.writer.Stop()
	for d.writer.IsRenderInProgress() {
		time.Sleep(10 * time.Millisecond)
	}
}

func jobMessage(event Event) string {
	return fmt.Sprintf("%s %s/%s/%s", event.JobKind, event.Artist, event.Album, event.Path)
}
