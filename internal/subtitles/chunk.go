package subtitles

import (
	"strings"
	"unicode/utf8"
)

// Display limits for a single subtitle line.
const (
	DefaultMaxWords = 7
	DefaultMaxChars = 35
)

// ChunkOptions bounds the size of each subtitle chunk.
type ChunkOptions struct {
	MaxWords int
	MaxChars int
}

// DefaultChunkOptions returns the standard 7 word / 35 character limits.
func DefaultChunkOptions() ChunkOptions {
	return ChunkOptions{MaxWords: DefaultMaxWords, MaxChars: DefaultMaxChars}
}

func (o ChunkOptions) normalized() ChunkOptions {
	if o.MaxWords <= 0 {
		o.MaxWords = DefaultMaxWords
	}
	if o.MaxChars <= 0 {
		o.MaxChars = DefaultMaxChars
	}
	return o
}

// ChunkText splits text into display chunks. A new chunk starts when the
// current one already holds maxWords words or when adding the next word would
// push the joined line past maxChars. A single word longer than maxChars is
// kept whole in its own chunk. Blank text yields no chunks.
func ChunkText(text string, maxWords, maxChars int) []string {
	opts := ChunkOptions{MaxWords: maxWords, MaxChars: maxChars}.normalized()

	var (
		chunks  []string
		current []string
		length  int
	)
	for _, word := range strings.Fields(text) {
		wordLen := utf8.RuneCountInString(word)
		if len(current) > 0 && (len(current) >= opts.MaxWords || length+wordLen > opts.MaxChars) {
			chunks = append(chunks, strings.Join(current, " "))
			current = current[:0]
			length = 0
		}
		current = append(current, word)
		length += wordLen + 1
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	return chunks
}
