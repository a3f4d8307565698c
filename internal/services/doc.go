// Package services defines shared utilities consumed by the job pipeline,
// the HTTP layer, and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, stage names, operations, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     into client errors (400) and processing errors (500).
//
// Use these helpers when wiring new pipeline stages so error reporting and
// observability stay uniform across operations.
package services
