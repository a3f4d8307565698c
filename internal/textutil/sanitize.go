package textutil

import (
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// maxNameBytes bounds a stored name so the timestamp and token prefixes added
// by the server still fit within common filesystem limits.
const maxNameBytes = 180

// SafeBaseName reduces a client-supplied file name to something that can be
// joined onto a server directory. Directory parts in either separator style
// are dropped, unsafe characters are replaced or removed, leading dots are
// stripped so the result is never hidden or "..", and long names are cut
// while keeping the extension. fallback is returned when nothing usable is
// left.
func SafeBaseName(name, fallback string) string {
	name = norm.NFC.String(name)
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	name = strings.Map(mapNameRune, name)
	name = strings.TrimLeft(strings.TrimSpace(name), ".")
	name = strings.TrimSpace(name)
	if name == "" {
		return fallback
	}
	return truncateName(name, maxNameBytes)
}

func mapNameRune(r rune) rune {
	switch r {
	case ':', '*':
		return '-'
	case '?', '"', '\'', '<', '>', '|':
		return -1
	}
	if unicode.IsControl(r) || r == utf8.RuneError {
		return -1
	}
	return r
}

func truncateName(name string, limit int) string {
	if len(name) <= limit {
		return name
	}
	ext := filepath.Ext(name)
	if len(ext) >= limit/2 {
		ext = ""
	}
	stem := name[:len(name)-len(ext)]
	cut := limit - len(ext)
	for cut > 0 && !utf8.RuneStart(stem[cut]) {
		cut--
	}
	return strings.TrimSpace(stem[:cut]) + ext
}
