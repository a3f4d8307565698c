package subtitles

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Utterance is a timed span of transcribed speech.
type Utterance struct {
	Text    string  `json:"text"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker,omitempty"`
}

// Record is one numbered SRT cue.
type Record struct {
	Index int
	Start float64
	End   float64
	Text  string
}

// Assemble converts utterances into sequential records. Each utterance's
// interval is divided evenly across its chunks. Utterances with blank text or
// a non-positive duration are skipped and consume no index.
func Assemble(utterances []Utterance, opts ChunkOptions) []Record {
	opts = opts.normalized()
	records := make([]Record, 0, len(utterances))
	index := 1
	for _, u := range utterances {
		if u.End <= u.Start {
			continue
		}
		chunks := ChunkText(u.Text, opts.MaxWords, opts.MaxChars)
		if len(chunks) == 0 {
			continue
		}
		step := (u.End - u.Start) / float64(len(chunks))
		for i, chunk := range chunks {
			start := u.Start + float64(i)*step
			end := u.Start + float64(i+1)*step
			if i == len(chunks)-1 {
				end = u.End
			}
			records = append(records, Record{Index: index, Start: start, End: end, Text: chunk})
			index++
		}
	}
	return records
}

// Render writes records as SRT text: blocks separated by a blank line and a
// trailing newline after the last block.
func Render(records []Record) string {
	if len(records) == 0 {
		return ""
	}
	var b strings.Builder
	for i, rec := range records {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(strconv.Itoa(rec.Index))
		b.WriteByte('\n')
		b.WriteString(FormatTimestamp(rec.Start))
		b.WriteString(" --> ")
		b.WriteString(FormatTimestamp(rec.End))
		b.WriteByte('\n')
		b.WriteString(rec.Text)
	}
	b.WriteByte('\n')
	return b.String()
}

// WriteFile assembles utterances and writes the SRT document to path. It
// returns the number of records written.
func WriteFile(path string, utterances []Utterance, opts ChunkOptions) (int, error) {
	records := Assemble(utterances, opts)
	if err := os.WriteFile(path, []byte(Render(records)), 0o644); err != nil {
		return 0, fmt.Errorf("write srt: %w", err)
	}
	return len(records), nil
}
