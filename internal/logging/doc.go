// Package logging assembles structured slog loggers and formatting helpers used
// across vidtools.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so pipeline code can tag log
// lines with job IDs, operations, stages, and correlation IDs. The package
// also provides a no-op logger for tests and a progress limiter that keeps
// ffmpeg progress output to a few lines per pass.
package logging
