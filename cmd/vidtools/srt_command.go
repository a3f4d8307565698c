package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"vidtools/internal/language"
	"vidtools/internal/media/ffprobe"
	"vidtools/internal/subtitles"
)

type srtReport struct {
	Path     string   `json:"path"`
	Cues     int      `json:"cues"`
	First    string   `json:"first,omitempty"`
	Last     string   `json:"last,omitempty"`
	Language string   `json:"language,omitempty"`
	Issues   []string `json:"issues"`
}

func newSRTCommand(ctx *commandContext) *cobra.Command {
	srtCmd := &cobra.Command{
		Use:   "srt",
		Short: "Subtitle file utilities",
	}
	srtCmd.AddCommand(newSRTCheckCommand(ctx))
	return srtCmd
}

func newSRTCheckCommand(ctx *commandContext) *cobra.Command {
	var videoPath string
	var durationSeconds float64
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "check <file.srt>",
		Short: "Validate cue numbering and timing, optionally against a video's duration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read subtitles: %w", err)
			}

			if videoPath != "" {
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				info, err := ffprobe.NewProber(cfg.Media.FFprobeBinary).Inspect(cmd.Context(), videoPath)
				if err != nil {
					return fmt.Errorf("probe %s: %w", videoPath, err)
				}
				durationSeconds = info.DurationSeconds()
			}

			content := string(data)
			records := subtitles.Parse(content)
			report := srtReport{
				Path:   args[0],
				Cues:   len(records),
				Issues: subtitles.Validate(content, durationSeconds),
			}
			if len(records) > 0 {
				first, last := subtitles.Bounds(records)
				report.First = subtitles.FormatTimestamp(first)
				report.Last = subtitles.FormatTimestamp(last)
				texts := make([]string, 0, len(records))
				for _, rec := range records {
					texts = append(texts, rec.Text)
				}
				report.Language, _ = language.DetectLines(texts)
			}
			if report.Issues == nil {
				report.Issues = []string{}
			}

			if asJSON {
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
			} else {
				rw := newReportWriter(cmd.OutOrStdout())
				rw.line("Cues", kindInfo, fmt.Sprintf("%d", report.Cues))
				if report.Cues > 0 {
					rw.line("Span", kindInfo, report.First+" --> "+report.Last)
				}
				if report.Language != "" {
					rw.line("Language", kindInfo, language.DisplayName(report.Language))
				}
				if len(report.Issues) == 0 {
					rw.line("Validation", kindOK, "no issues")
				}
				for _, issue := range report.Issues {
					rw.line("Validation", kindWarn, issue)
				}
			}
			if len(report.Issues) > 0 {
				return fmt.Errorf("%s: %d issue(s) found", args[0], len(report.Issues))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&videoPath, "video", "", "Probe this video for the duration check")
	cmd.Flags().Float64Var(&durationSeconds, "duration", 0, "Video duration in seconds for the trailing-cue check")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
