package report

import (
	"log/slog"

	"euphony/internal/logging"
)

// progressLogStep keeps plain-log output readable when a consumer cannot
// redraw in place. Progress events are sampled at this granularity.
const progressLogStep = 0.25

// LogConsumer renders the event stream as structured log lines. It is
// the fallback for non-interactive runs where a live dashboard would
// fill the output with control sequences.
type LogConsumer struct {
	logger *slog.Logger

	// lastFraction tracks the most recently logged fraction per job so
	// progress lines appear in coarse steps instead of per update.
	lastFraction map[string]float64
}

func NewLogConsumer(logger *slog.Logger) *LogConsumer {
	return &LogConsumer{
		logger:       logging.NewComponentLogger(logger, "report"),
		lastFraction: make(map[string]float64),
	}
}

func (c *LogConsumer) HandleEvent(event Event) {
	switch event.Kind {
	case KindJobStarted:
		c.logger.Info("job started", c.jobAttrs(event)...)
	case KindJobProgress:
		if event.Fraction-c.lastFraction[event.JobID] < progressLogStep {
			return
		}
		c.lastFraction[event.JobID] = event.Fraction
		attrs := append(c.jobAttrs(event), logging.Float64("fraction", event.Fraction))
		c.logger.Debug("job progress", attrs...)
	case KindJobSucceeded:
		delete(c.lastFraction, event.JobID)
		c.logger.Info("job succeeded", c.jobAttrs(event)...)
	case KindJobFailed:
		delete(c.lastFraction, event.JobID)
		attrs := append(c.jobAttrs(event),
			logging.Int("attempt", event.Attempt),
			logging.Bool("will_retry", event.WillRetry),
			logging.Error(event.Err),
		)
		if event.WillRetry {
			c.logger.Warn("job failed, retrying", attrs...)
		} else {
			c.logger.Error("job failed", attrs...)
		}
	case KindJobCancelled:
		delete(c.lastFraction, event.JobID)
		c.logger.Info("job cancelled", c.jobAttrs(event)...)
	case KindAlbumStarted:
		c.logger.Info("album started", c.albumAttrs(event)...)
	case KindAlbumCommitted:
		c.logger.Info("album committed", c.albumAttrs(event)...)
	case KindLogLine:
		c.logLine(event)
	}
}

func (c *LogConsumer) logLine(event Event) {
	switch event.Level {
	case "debug":
		c.logger.Debug(event.Text)
	case "warn":
		c.logger.Warn(event.Text)
	case "error":
		c.logger.Error(event.Text)
	default:
		c.logger.Info(event.Text)
	}
}

func (c *LogConsumer) jobAttrs(event Event) []any {
	return []any{
		logging.String(logging.FieldJobID, event.JobID),
		logging.String(logging.FieldJobKind, event.JobKind),
		logging.String(logging.FieldArtist, event.Artist),
		logging.String(logging.FieldAlbum, event.Album),
		logging.String("path", event.Path),
	}
}

func (c *LogConsumer) albumAttrs(event Event) []any {
	return []any{
		logging.String(logging.FieldLibrary, event.Library),
		logging.String(logging.FieldArtist, event.Artist),
		logging.String(logging.FieldAlbum, event.Album),
	}
}
