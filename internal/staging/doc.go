// Package staging sweeps the upload, temp and output directories.
//
// Pipelines delete their own artifacts, but a crash or a killed ffmpeg can
// leave files behind; CleanStale removes anything older than a cutoff so the
// working directories stay bounded.
package staging
