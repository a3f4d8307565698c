package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"vidtools/internal/deps"
	"vidtools/internal/preflight"
)

type lineKind int

const (
	kindInfo lineKind = iota
	kindOK
	kindWarn
	kindFail
)

var kindStyles = map[lineKind]struct {
	tag   string
	color text.Colors
}{
	kindInfo: {"INFO", text.Colors{text.FgBlue}},
	kindOK:   {"OK", text.Colors{text.FgGreen}},
	kindWarn: {"WARN", text.Colors{text.FgYellow}},
	kindFail: {"ERROR", text.Colors{text.FgRed}},
}

const reportLabelWidth = 22

var headingColor = text.Colors{text.FgBlue, text.Bold}

func checkKind(r preflight.Result) lineKind {
	if r.Passed {
		return kindOK
	}
	return kindFail
}

// dependencyKind treats a missing optional binary as a warning.
func dependencyKind(s deps.Status) lineKind {
	switch {
	case s.Available:
		return kindOK
	case s.Optional:
		return kindWarn
	default:
		return kindFail
	}
}

// formatLine renders "  label:   [TAG] detail", colored by kind when color
// is set.
func formatLine(label string, kind lineKind, detail string, color bool) string {
	style := kindStyles[kind]
	tag := "[" + style.tag + "]"
	if detail != "" {
		tag += " " + detail
	}
	line := fmt.Sprintf("  %-*s %s", reportLabelWidth, label+":", tag)
	if color {
		return style.color.Sprint(line)
	}
	return line
}

// reportWriter prints sectioned status lines for the human-readable CLI
// reports.
type reportWriter struct {
	out   io.Writer
	color bool
}

func newReportWriter(out io.Writer) *reportWriter {
	return &reportWriter{out: out, color: isTerminal(out)}
}

func (rw *reportWriter) section(title string) {
	heading := "== " + strings.TrimSpace(title) + " =="
	rule := strings.Repeat("-", len(heading))
	if rw.color {
		heading, rule = headingColor.Sprint(heading), headingColor.Sprint(rule)
	}
	fmt.Fprintln(rw.out, heading)
	fmt.Fprintln(rw.out, rule)
}

func (rw *reportWriter) line(label string, kind lineKind, detail string) {
	fmt.Fprintln(rw.out, formatLine(label, kind, detail, rw.color))
}

func (rw *reportWriter) lines(lines []string) {
	for _, l := range lines {
		fmt.Fprintln(rw.out, l)
	}
}

func (rw *reportWriter) blank() {
	fmt.Fprintln(rw.out)
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

type column struct {
	title string
	right bool
}

// renderTable draws rows under the column titles. Short rows are padded.
func renderTable(columns []column, rows [][]string) string {
	if len(columns) == 0 {
		return ""
	}
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(columns))
	configs := make([]table.ColumnConfig, len(columns))
	for i, c := range columns {
		header[i] = c.title
		configs[i] = table.ColumnConfig{Number: i + 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft}
		if c.right {
			configs[i].Align = text.AlignRight
		}
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, row := range rows {
		r := make(table.Row, len(columns))
		for i := range r {
			r[i] = ""
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}
	return tw.Render()
}

// writeJSON prints v as indented JSON. Paths and ffmpeg filter strings are
// left unescaped.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
