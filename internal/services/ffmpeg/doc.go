// Package ffmpeg wraps the external transcoding tool behind a narrow
// client interface so the scheduler can be tested with a fake.
package ffmpeg
