package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"vidtools/internal/api"
	"vidtools/internal/config"
	"vidtools/internal/events"
	"vidtools/internal/fileutil"
	"vidtools/internal/logging"
	"vidtools/internal/pipeline"
	"vidtools/internal/transcription"
)

// operationSpec describes how one pipeline operation is exposed as a command.
type operationSpec struct {
	op        pipeline.Operation
	use       string
	short     string
	args      cobra.PositionalArgs
	quality   bool
	format    bool
	watermark bool
}

var operationSpecs = []operationSpec{
	{
		op:      pipeline.OpCompress,
		use:     "compress <video>",
		short:   "Re-encode a video with a quality preset",
		args:    cobra.ExactArgs(1),
		quality: true,
	},
	{
		op:    pipeline.OpExtractAudio,
		use:   "extract-mp3 <video>",
		short: "Extract the audio track as MP3",
		args:  cobra.ExactArgs(1),
	},
	{
		op:        pipeline.OpWatermark,
		use:       "watermark <video> --image <file>",
		short:     "Overlay an image on a video",
		args:      cobra.ExactArgs(1),
		watermark: true,
	},
	{
		op:    pipeline.OpMerge,
		use:   "merge <video> <video>...",
		short: "Standardize and concatenate videos in order",
		args:  cobra.MinimumNArgs(2),
	},
	{
		op:     pipeline.OpConvert,
		use:    "convert <video>",
		short:  "Convert a video to another container format",
		args:   cobra.ExactArgs(1),
		format: true,
	},
	{
		op:    pipeline.OpSubtitles,
		use:   "subtitles <video>",
		short: "Transcribe speech and burn subtitles into a video",
		args:  cobra.ExactArgs(1),
	},
}

func newOperationCommands(ctx *commandContext) []*cobra.Command {
	cmds := make([]*cobra.Command, 0, len(operationSpecs))
	for _, spec := range operationSpecs {
		cmds = append(cmds, newOperationCommand(ctx, spec))
	}
	return cmds
}

func newOperationCommand(ctx *commandContext, spec operationSpec) *cobra.Command {
	var quality, format, position, image, outPath string
	var asJSON, quiet bool

	cmd := &cobra.Command{
		Use:   spec.use,
		Short: spec.short,
		Args:  spec.args,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			req := pipeline.Request{
				Operation: spec.op,
				Quality:   quality,
				Format:    format,
				Position:  position,
			}
			for _, path := range args {
				asset, err := localAsset(path)
				if err != nil {
					return err
				}
				req.Inputs = append(req.Inputs, asset)
			}
			if spec.watermark {
				asset, err := localAsset(image)
				if err != nil {
					return err
				}
				req.Watermark = &asset
			}

			logger := ctx.cliLogger()
			hub := events.NewHub(0)
			if !quiet {
				hub.AddSink(newProgressPrinter(cmd.ErrOrStderr()))
			}
			var provider transcription.Provider
			if spec.op == pipeline.OpSubtitles {
				provider = localProvider(cfg, logger)
			}
			p, err := pipeline.NewFromConfig(cfg, hub, provider, logger)
			if err != nil {
				return err
			}

			result, err := p.Run(cmd.Context(), req)
			if err != nil {
				return err
			}
			if outPath != "" {
				if err := moveOutput(result.OutputPath, outPath); err != nil {
					return err
				}
				result.OutputPath = outPath
			}

			if asJSON {
				resp := api.FromResult(result)
				resp.OutputFile = result.OutputPath
				return writeJSON(cmd, resp)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %s (%s)\n", result.Message, result.OutputPath, humanBytes(result.FileSize))
			if result.Stats != nil {
				fmt.Fprintf(out, "Size: %s -> %s (%s%% smaller)\n",
					humanBytes(result.Stats.OriginalSize), humanBytes(result.Stats.CompressedSize), result.Stats.CompressionRatio)
			}
			if result.Subtitles > 0 {
				fmt.Fprintf(out, "Subtitles: %d cue(s)\n", result.Subtitles)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	if spec.quality {
		flags.StringVarP(&quality, "quality", "q", pipeline.DefaultQuality, "Quality preset (see `vidtools presets`)")
	}
	if spec.format {
		flags.StringVarP(&format, "format", "f", pipeline.DefaultFormat, "Output container format")
	}
	if spec.watermark {
		flags.StringVar(&image, "image", "", "Watermark image file")
		flags.StringVar(&position, "position", pipeline.DefaultPosition, "Watermark position")
		_ = cmd.MarkFlagRequired("image")
	}
	flags.StringVarP(&outPath, "out", "o", "", "Move the result to this path instead of the output directory")
	flags.BoolVar(&asJSON, "json", false, "Output as JSON")
	flags.BoolVar(&quiet, "quiet", false, "Suppress progress output")
	return cmd
}

func newStandardizeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "standardize <input> <output>",
		Short: "Re-encode a clip to the 1280x720 30fps H.264/AAC merge format",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if _, err := localAsset(args[0]); err != nil {
				return err
			}
			p, err := pipeline.NewFromConfig(cfg, nil, nil, ctx.cliLogger())
			if err != nil {
				return err
			}
			if err := p.Standardize(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Standardized %s -> %s\n", args[0], args[1])
			return nil
		},
	}
}

// localAsset describes a file the caller keeps; the pipeline never removes it.
func localAsset(path string) (pipeline.Asset, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return pipeline.Asset{}, fmt.Errorf("input path is required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return pipeline.Asset{}, fmt.Errorf("resolve %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return pipeline.Asset{}, fmt.Errorf("input %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return pipeline.Asset{}, fmt.Errorf("input %s is not a regular file", path)
	}
	return pipeline.Asset{
		Path:      abs,
		Name:      filepath.Base(abs),
		Size:      info.Size(),
		CreatedAt: info.ModTime(),
	}, nil
}

func localProvider(cfg *config.Config, logger *slog.Logger) transcription.Provider {
	provider, err := transcription.New(cfg, logger)
	if err != nil {
		logger.Warn("transcription unavailable", logging.Error(err))
		return transcription.Unavailable(cfg.Transcription.Provider, err)
	}
	return provider
}

func moveOutput(src, dst string) error {
	if err := fileutil.MoveFile(src, dst); err != nil {
		return fmt.Errorf("move output to %s: %w", dst, err)
	}
	return nil
}
