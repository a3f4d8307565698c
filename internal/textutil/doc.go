// Package textutil sanitizes client-supplied names before they become part
// of paths under the upload and output directories.
package textutil
