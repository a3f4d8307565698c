package main

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/jedib0t/go-pretty/v6/text"

	"vidtools/internal/deps"
	"vidtools/internal/events"
	"vidtools/internal/preflight"
)

func TestFormatLineNoColor(t *testing.T) {
	got := formatLine("FFmpeg", kindFail, "not available", false)
	want := fmt.Sprintf("  %-*s %s", reportLabelWidth, "FFmpeg:", "[ERROR] not available")
	if got != want {
		t.Fatalf("formatLine mismatch\n got: %q\nwant: %q", got, want)
	}
	if got := formatLine("Auth", kindInfo, "", false); !strings.HasSuffix(got, "[INFO]") {
		t.Fatalf("expected bare tag, got %q", got)
	}
}

func TestFormatLineWithColor(t *testing.T) {
	plain := formatLine("Auth", kindOK, "yes", false)
	got := formatLine("Auth", kindOK, "yes", true)
	if want := (text.Colors{text.FgGreen}).Sprint(plain); got != want {
		t.Fatalf("expected green line\n got: %q\nwant: %q", got, want)
	}
}

func TestLineKinds(t *testing.T) {
	if checkKind(preflight.Result{Passed: true}) != kindOK || checkKind(preflight.Result{}) != kindFail {
		t.Fatal("unexpected check kinds")
	}
	cases := []struct {
		status deps.Status
		want   lineKind
	}{
		{deps.Status{Available: true}, kindOK},
		{deps.Status{Available: true, Optional: true}, kindOK},
		{deps.Status{Optional: true}, kindWarn},
		{deps.Status{}, kindFail},
	}
	for _, tc := range cases {
		if got := dependencyKind(tc.status); got != tc.want {
			t.Fatalf("dependencyKind(%+v) = %d, want %d", tc.status, got, tc.want)
		}
	}
}

func TestReportWriterSections(t *testing.T) {
	var buf bytes.Buffer
	rw := newReportWriter(&buf)
	rw.section(" Checks ")
	rw.line("Upload dir", kindOK, "writable")
	rw.blank()

	lines := strings.Split(buf.String(), "\n")
	if lines[0] != "== Checks ==" || lines[1] != strings.Repeat("-", len("== Checks ==")) {
		t.Fatalf("unexpected header %q", lines[:2])
	}
	if !strings.Contains(lines[2], "Upload dir:") || !strings.HasSuffix(lines[2], "[OK] writable") {
		t.Fatalf("unexpected line %q", lines[2])
	}
	if lines[3] != "" {
		t.Fatalf("expected blank separator, got %q", lines[3])
	}
}

func TestDependencyLines(t *testing.T) {
	lines := dependencyLines([]dependencyReport{
		{Status: deps.Status{Name: "FFmpeg", Command: "ffmpeg", Available: true}, Version: "ffmpeg version 7.1"},
		{Status: deps.Status{Name: "FFprobe", Command: "ffprobe", Available: false}},
		{Status: deps.Status{Name: "uvx", Command: "uvx", Optional: true, Detail: "not installed"}},
		{Status: deps.Status{Name: "Whisper", Command: "whisper", Available: true}},
	}, false)
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d: %v", len(lines), lines)
	}
	if !strings.Contains(lines[0], "[OK] ffmpeg version 7.1") {
		t.Fatalf("expected version in first line, got %q", lines[0])
	}
	if !strings.Contains(lines[1], "[ERROR] not available") {
		t.Fatalf("expected error in second line, got %q", lines[1])
	}
	if !strings.Contains(lines[2], "[WARN] not installed") {
		t.Fatalf("expected warning in third line, got %q", lines[2])
	}
	if !strings.Contains(lines[3], "[OK] Ready (command: whisper)") {
		t.Fatalf("expected ready line, got %q", lines[3])
	}
	if !strings.Contains(lines[4], "FFprobe") || strings.Contains(lines[4], "uvx") {
		t.Fatalf("expected only required deps in summary, got %q", lines[4])
	}
}

func TestHumanBytes(t *testing.T) {
	cases := map[int64]string{
		0:               "0 B",
		1023:            "1023 B",
		1536:            "1.5 KiB",
		5 * 1024 * 1024: "5.0 MiB",
	}
	for in, want := range cases {
		if got := humanBytes(in); got != want {
			t.Fatalf("humanBytes(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable([]column{{title: "A"}, {title: "B", right: true}}, [][]string{{"only"}})
	if !strings.Contains(out, "only") || !strings.Contains(out, "A") {
		t.Fatalf("unexpected table %q", out)
	}
	if renderTable(nil, nil) != "" {
		t.Fatal("expected empty render without headers")
	}
}

func TestProgressPrinterPlainOutput(t *testing.T) {
	var buf bytes.Buffer
	p := newProgressPrinter(&buf)
	p.Append(events.Event{State: events.StateReceived, Message: "Job received"})
	p.Append(events.Event{State: events.StateTransforming, Stage: "compress", Percent: 0})
	p.Append(events.Event{State: events.StateTransforming, Stage: "compress", Percent: 42})
	p.Append(events.Event{State: events.StateTransforming, Stage: "compress", Percent: 100})
	p.Append(events.Event{State: events.StateFailed, Message: "boom"})

	want := "Job received\ncompress 0%\ncompress 100%\nfailed: boom\n"
	if got := buf.String(); got != want {
		t.Fatalf("unexpected progress output\n got: %q\nwant: %q", got, want)
	}
}
