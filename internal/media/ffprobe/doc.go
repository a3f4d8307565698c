// Package ffprobe wraps ffprobe's JSON output in typed values.
//
// Prober.Inspect runs the binary once per file; the helpers on Result answer the
// questions the pipelines ask: the first video stream and its resolution,
// the container duration (for progress percentages), size, and format name.
package ffprobe
