package pipeline

import (
	"os"
	"strings"
)

// WriteConcatList writes an ffmpeg concat demuxer manifest listing clips in
// order. Single quotes inside a path are closed, escaped and reopened.
func WriteConcatList(path string, clips []string) error {
	var b strings.Builder
	for _, clip := range clips {
		b.WriteString("file '")
		b.WriteString(strings.ReplaceAll(clip, "'", `'\''`))
		b.WriteString("'\n")
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}
