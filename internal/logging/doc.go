// Package logging configures the process-wide slog logger: a terse console
// handler for interactive use and a JSON handler for machine consumption,
// plus attr helpers shared by every component.
package logging
