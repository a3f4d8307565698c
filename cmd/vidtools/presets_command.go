package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"vidtools/internal/api"
	"vidtools/internal/pipeline"
)

func newPresetsCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:         "presets",
		Short:       "List quality presets, output formats and watermark positions",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			presets := pipeline.QualityPresets()
			if asJSON {
				return writeJSON(cmd, api.OptionsResponse{
					Qualities:      api.FromPresets(presets),
					Formats:        pipeline.FormatNames(),
					Positions:      pipeline.PositionNames(),
					DefaultQuality: pipeline.DefaultQuality,
					DefaultFormat:  pipeline.DefaultFormat,
				})
			}

			rows := make([][]string, 0, len(presets))
			for _, p := range presets {
				name := p.Name
				if name == pipeline.DefaultQuality {
					name += " (default)"
				}
				rows = append(rows, []string{name, p.Resolution(), fmt.Sprintf("%d", p.FPS), p.VideoBitrate, p.AudioBitrate})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]column{
				{title: "Quality"},
				{title: "Resolution", right: true},
				{title: "FPS", right: true},
				{title: "Video", right: true},
				{title: "Audio", right: true},
			}, rows))
			fmt.Fprintf(out, "Formats:   %s (default %s)\n", strings.Join(pipeline.FormatNames(), ", "), pipeline.DefaultFormat)
			fmt.Fprintf(out, "Positions: %s (default %s)\n", strings.Join(pipeline.PositionNames(), ", "), pipeline.DefaultPosition)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
