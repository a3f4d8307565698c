package language

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// ISO 639-2 bibliographic codes and English word forms that callers pass
// around but that BCP 47 parsing does not resolve on its own.
var aliases = map[string]string{
	"fre":        "fr",
	"ger":        "de",
	"dut":        "nl",
	"chi":        "zh",
	"english":    "en",
	"spanish":    "es",
	"french":     "fr",
	"german":     "de",
	"italian":    "it",
	"portuguese": "pt",
	"japanese":   "ja",
	"korean":     "ko",
	"chinese":    "zh",
	"russian":    "ru",
	"arabic":     "ar",
	"hindi":      "hi",
	"dutch":      "nl",
	"polish":     "pl",
	"swedish":    "sv",
	"danish":     "da",
	"norwegian":  "no",
	"finnish":    "fi",
}

func parse(code string) (language.Base, bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return language.Base{}, false
	}
	if alias, ok := aliases[code]; ok {
		code = alias
	}
	tag, err := language.Parse(strings.ReplaceAll(code, "_", "-"))
	if err != nil {
		return language.Base{}, false
	}
	base, conf := tag.Base()
	if conf == language.No || base.String() == "und" {
		return language.Base{}, false
	}
	return base, true
}

// ToISO2 normalizes a language hint (ISO 639-1, ISO 639-2, a BCP 47 tag, or
// an English name) to its two-letter code. Returns "" when unrecognised.
func ToISO2(code string) string {
	base, ok := parse(code)
	if !ok {
		return ""
	}
	out := base.String()
	if len(out) != 2 {
		return ""
	}
	return out
}

// ToISO3 returns the three-letter ISO 639-2/T code for a language hint.
func ToISO3(code string) string {
	base, ok := parse(code)
	if !ok {
		return ""
	}
	return base.ISO3()
}

// DisplayName returns the English name for a language hint, or the trimmed
// input when it cannot be resolved.
func DisplayName(code string) string {
	base, ok := parse(code)
	if !ok {
		return strings.TrimSpace(code)
	}
	tag, err := language.Compose(base)
	if err != nil {
		return strings.TrimSpace(code)
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return base.String()
}
