package subtitles

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// trailingToleranceSeconds is how far the last cue may run past the end of
// the video before validation flags it.
const trailingToleranceSeconds = 2.0

// Parse reads SRT text back into records. Malformed blocks are skipped.
func Parse(content string) []Record {
	content = strings.TrimSpace(strings.ReplaceAll(content, "\r\n", "\n"))
	if content == "" {
		return nil
	}
	var records []Record
	for _, block := range strings.Split(content, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		lines := strings.Split(block, "\n")
		if len(lines) < 3 {
			continue
		}
		index, err := strconv.Atoi(strings.TrimSpace(lines[0]))
		if err != nil {
			continue
		}
		parts := strings.Split(lines[1], "-->")
		if len(parts) != 2 {
			continue
		}
		start, err := ParseTimestamp(parts[0])
		if err != nil {
			continue
		}
		end, err := ParseTimestamp(parts[1])
		if err != nil {
			continue
		}
		records = append(records, Record{
			Index: index,
			Start: start,
			End:   end,
			Text:  strings.Join(lines[2:], "\n"),
		})
	}
	return records
}

// Bounds returns the first start and last end across records.
func Bounds(records []Record) (float64, float64) {
	if len(records) == 0 {
		return 0, 0
	}
	first := math.Inf(1)
	var last float64
	for _, rec := range records {
		if rec.Start < first {
			first = rec.Start
		}
		if rec.End > last {
			last = rec.End
		}
	}
	return first, last
}

// Validate checks SRT content for format issues. Returns a list of issues
// found; an empty slice means validation passed. videoSeconds enables the
// trailing-cue check when positive.
func Validate(content string, videoSeconds float64) []string {
	var issues []string

	records := Parse(content)
	if len(records) == 0 {
		return append(issues, "empty_subtitle_file")
	}

	for i, rec := range records {
		if rec.Index != i+1 {
			issues = append(issues, fmt.Sprintf("index_gap: cue %d has index %d", i+1, rec.Index))
			break
		}
	}
	for _, rec := range records {
		if rec.End <= rec.Start {
			issues = append(issues, fmt.Sprintf("non_positive_duration: cue %d", rec.Index))
		}
	}

	if videoSeconds > 0 {
		_, last := Bounds(records)
		if delta := last - videoSeconds; delta > trailingToleranceSeconds {
			issues = append(issues, fmt.Sprintf("duration_mismatch: delta=%.1fs", delta))
		}
	}
	return issues
}
