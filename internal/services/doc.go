// Package services defines shared utilities consumed by the transcoding
// pipeline and external tool integrations.
//
// Key responsibilities:
//   - Structured error markers plus the Wrap helper that classify failures
//     into the run's error taxonomy (I/O, structure, serialization, tool).
//   - Retry eligibility rules shared by the scheduler so operational
//     behaviour stays uniform across job kinds.
package services
