package subtitles

import (
	"strings"
	"testing"
)

func TestValidateEmpty(t *testing.T) {
	issues := Validate("  \n", 0)
	if len(issues) != 1 || issues[0] != "empty_subtitle_file" {
		t.Fatalf("unexpected issues %v", issues)
	}
}

func TestValidateFlagsProblems(t *testing.T) {
	content := strings.Join([]string{
		"1\n00:00:00,000 --> 00:00:01,000\nok",
		"3\n00:00:02,000 --> 00:00:02,000\nzero",
		"4\n00:00:03,000 --> 00:01:00,000\nlong",
	}, "\n\n")
	issues := Validate(content, 10)
	joined := strings.Join(issues, ";")
	for _, want := range []string{"index_gap", "non_positive_duration", "duration_mismatch"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected %s in %v", want, issues)
		}
	}
}

func TestParseSkipsMalformedBlocks(t *testing.T) {
	content := "x\n00:00:00,000 --> 00:00:01,000\nbad index\n\n2\n00:00:01,000 --> 00:00:02,500\ngood\nline two\r\n"
	records := Parse(content)
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %+v", records)
	}
	if records[0].Text != "good\nline two" || records[0].End != 2.5 {
		t.Fatalf("unexpected record %+v", records[0])
	}
	first, last := Bounds(records)
	if first != 1 || last != 2.5 {
		t.Fatalf("Bounds = %v %v", first, last)
	}
}
