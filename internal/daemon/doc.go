// Package daemon coordinates the long-running vidtools server process.
//
// It wires configuration, the job-status store, the events hub, the
// pipeline and the stale-file sweeper into a single lifecycle with
// flock-based locking to prevent multiple instances sharing one working
// directory. The HTTP API (chi router, multipart uploads, output serving and
// the job events websocket) lives here too.
//
// Keep orchestration logic here: the media work itself belongs to the
// pipeline package while the daemon focuses on startup, shutdown, request
// parsing and high level coordination.
package daemon
