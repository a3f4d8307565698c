// Package preflight provides readiness checks for the binaries, directories,
// and transcription services vidtools depends on.
//
// The server runs the local checks at startup and serves them from
// /api/status; the CLI "vidtools status" command adds the network checks
// against the configured transcription provider.
package preflight
