package language

import (
	"strings"

	"github.com/abadojack/whatlanggo"
)

// Detect guesses the ISO 639-1 language of text. It reports false when the
// text is empty or the guess is not reliable.
func Detect(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}
	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return "", false
	}
	code := info.Lang.Iso6391()
	if code == "" {
		return "", false
	}
	return code, true
}

// DetectLines joins lines before detecting, since single subtitle cues are
// usually too short to classify on their own.
func DetectLines(lines []string) (string, bool) {
	return Detect(strings.Join(lines, " "))
}
