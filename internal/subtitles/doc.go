// Package subtitles turns timed transcription output into SRT documents.
//
// Utterances from any transcription provider are split into display-sized
// chunks (bounded by word and character counts), each chunk receives an
// equal share of its utterance's interval, and the resulting records are
// numbered globally and rendered as SubRip text. The package also parses
// and validates SRT content before it is burned into video.
package subtitles
