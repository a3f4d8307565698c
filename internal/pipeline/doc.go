// Package pipeline runs the video jobs: compress, extract-mp3, watermark,
// merge, format conversion and subtitle burn-in.
//
// Each Run is one request-scoped sequence of blocking ffmpeg and
// transcription calls. Validation happens before any file is touched. Every
// file a job creates is registered with its Tracker once it exists; on
// failure all of them are removed, on success everything except the final
// output is. State changes and ffmpeg progress are published to the events
// hub as the job moves through received, probing, transforming, cleanup and
// done or failed.
//
// Merge standardizes every input to one profile (H.264/AAC, 1920x1080
// letterboxed, 30 fps) so the concat demuxer can stream-copy them.
package pipeline
