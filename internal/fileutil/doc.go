// Package fileutil moves finished outputs out of the working directories for
// the local CLI commands, falling back to a copy across filesystems.
package fileutil
