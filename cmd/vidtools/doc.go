// Package main hosts the vidtools CLI entrypoint and command graph.
//
// The Cobra command tree starts the HTTP daemon, runs the same media
// operations locally against files on disk, reports environment status and
// scaffolds configuration. Operation logic lives in internal/pipeline; the
// commands here only resolve configuration, build inputs and render results.
package main
