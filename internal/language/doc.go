// Package language normalizes the transcription language hint and guesses
// the language of generated subtitle text.
//
// Providers accept ISO 639-1 codes; operators tend to write whatever they
// have at hand ("eng", "en-US", "english"). Parsing is delegated to
// golang.org/x/text/language with a small alias table for forms BCP 47
// does not cover. Detection of transcript text uses whatlanggo.
package language
