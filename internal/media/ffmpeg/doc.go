// Package ffmpeg runs ffmpeg invocations under a process-wide concurrency
// bound and turns its machine-readable progress output into callbacks.
//
// Every invocation is prefixed with "-hide_banner -y -progress pipe:1
// -nostats" so stdout carries key=value progress blocks while stderr keeps
// the diagnostics; the last few kilobytes of stderr are attached to the
// returned error.
package ffmpeg
