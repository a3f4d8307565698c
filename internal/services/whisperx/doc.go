// Package whisperx runs WhisperX locally through uvx and reads the segment
// JSON it writes next to the transcript.
//
// Callers hand it a mono 16 kHz WAV already extracted by ffmpeg; the
// transcription package adapts the segments into subtitle utterances.
package whisperx
