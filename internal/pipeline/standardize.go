package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"vidtools/internal/logging"
	"vidtools/internal/media/ffmpeg"
	"vidtools/internal/services"
)

// Standard profile every merge input is converted to.
const (
	StandardWidth  = 1920
	StandardHeight = 1080
	StandardFPS    = 30
)

// StandardizeArgs re-encodes src to H.264/AAC, 1920x1080 letterboxed at
// 30 fps. The arguments do not depend on the input, so running it on an
// already standardized file yields the same profile.
func StandardizeArgs(src, dst string) []string {
	return []string{
		"-i", src,
		"-c:v", "libx264",
		"-preset", "medium",
		"-crf", "23",
		"-c:a", "aac",
		"-ar", "44100",
		"-b:a", "128k",
		"-pix_fmt", "yuv420p",
		"-vf", "scale=1920:1080:force_original_aspect_ratio=decrease,pad=1920:1080:-1:-1:color=black",
		"-r", "30",
		"-movflags", "+faststart",
		dst,
	}
}

// Standardize converts src to the merge profile at dst. A partial dst is
// removed when the encoder fails; a dst the encoder never touched is left alone.
func (p *Pipeline) Standardize(ctx context.Context, src, dst string) error {
	logger := logging.WithContext(ctx, p.logger)
	if _, err := p.standardize(ctx, logger, src, dst, nil); err != nil {
		if !errors.Is(err, services.ErrStandardizeFailed) {
			return err
		}
		if rmErr := p.remove(dst); rmErr != nil && !os.IsNotExist(rmErr) {
			logger.Warn("failed to remove partial output", logging.String("path", dst), logging.Error(rmErr))
		}
		return err
	}
	return nil
}

// standardize probes src, logs what it found and encodes it. It returns the
// probed duration for progress accounting.
func (p *Pipeline) standardize(ctx context.Context, logger *slog.Logger, src, dst string, progress ffmpeg.ProgressFunc) (float64, error) {
	info, err := p.prober.Inspect(ctx, src)
	if err != nil {
		return 0, services.Wrap(services.ErrProbeFailed, "probe", "standardize", "unable to read video metadata", err)
	}
	logger.Info("standardizing video",
		logging.String("source", src),
		logging.String("resolution", info.Resolution()),
		logging.Float64("duration_seconds", info.DurationSeconds()),
		logging.Int64("size_bytes", info.SizeBytes()),
		logging.String("format", info.FormatName()),
	)
	err = p.encoder.Run(ctx, ffmpeg.Command{
		Label:           "standardize",
		Args:            StandardizeArgs(src, dst),
		DurationSeconds: info.DurationSeconds(),
		Progress:        progress,
	})
	if err != nil {
		return 0, services.Wrap(services.ErrStandardizeFailed, "standardize", "standardize", "ffmpeg standardization failed", err)
	}
	return info.DurationSeconds(), nil
}

// markerOf returns the classification marker carried by err.
func markerOf(err error) error {
	for _, marker := range []error{services.ErrProbeFailed, services.ErrStandardizeFailed, services.ErrTranscriptionFailed} {
		if errors.Is(err, marker) {
			return marker
		}
	}
	return services.ErrTransformFailed
}
