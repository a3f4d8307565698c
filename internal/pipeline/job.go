package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"vidtools/internal/events"
	"vidtools/internal/logging"
	"vidtools/internal/media/ffmpeg"
	"vidtools/internal/media/ffprobe"
	"vidtools/internal/services"
)

// job is the per-run state of one request.
type job struct {
	p       *Pipeline
	id      string
	op      Operation
	stamp   string
	stage   string
	started time.Time
	tracker *Tracker
	logger  *slog.Logger
	limiter *logging.ProgressLimiter
}

func (p *Pipeline) newJob(ctx context.Context, id string, op Operation) *job {
	logger := logging.WithContext(ctx, p.logger)
	now := p.now()
	return &job{
		p:       p,
		id:      id,
		op:      op,
		stamp:   fmt.Sprintf("%d-%s", now.UnixMilli(), p.token()),
		started: now,
		tracker: NewTracker(p.remove, logger),
		logger:  logger,
		limiter: logging.NewProgressLimiter(10),
	}
}

func (j *job) execute(ctx context.Context, req Request, pl plan) (Result, error) {
	switch req.Operation {
	case OpCompress:
		return j.compress(ctx, req.Inputs[0], pl.quality)
	case OpExtractAudio:
		return j.extractAudio(ctx, req.Inputs[0])
	case OpWatermark:
		return j.watermark(ctx, req.Inputs[0], *req.Watermark, pl.overlay)
	case OpMerge:
		return j.merge(ctx, req.Inputs)
	case OpConvert:
		return j.convert(ctx, req.Inputs[0], pl.format)
	case OpSubtitles:
		return j.generateSubtitles(ctx, req.Inputs[0])
	}
	return Result{}, services.Wrap(services.ErrInvalidRequest, "validate", string(req.Operation), "unknown operation", nil)
}

func (j *job) publish(state events.State, stage string, percent float64, message string) {
	if stage != "" {
		j.stage = stage
	}
	if j.p.events == nil {
		return
	}
	j.p.events.Publish(events.Event{
		JobID:     j.id,
		Operation: string(j.op),
		State:     state,
		Stage:     stage,
		Percent:   percent,
		Message:   message,
	})
}

func (j *job) publishDone(outputFile, message string) {
	if j.p.events == nil {
		return
	}
	j.p.events.Publish(events.Event{
		JobID:      j.id,
		Operation:  string(j.op),
		State:      events.StateDone,
		Stage:      "done",
		Percent:    100,
		Message:    message,
		OutputFile: outputFile,
	})
}

// fail removes everything the job created and reports err.
func (j *job) fail(err error) error {
	removed := j.tracker.Cleanup()
	detail := services.Details(err)
	stage := detail.Stage
	if stage == "" {
		stage = j.stage
	}
	logging.ErrorWithContext(j.logger, "job failed", "job_failed",
		logging.String(logging.FieldStage, stage),
		logging.String("kind", detail.Kind),
		logging.Error(err),
		logging.Int("files_removed", len(removed)),
		logging.String(logging.FieldErrorHint, failureHint(err)),
	)
	if j.p.events != nil {
		j.p.events.Publish(events.Event{
			JobID:     j.id,
			Operation: string(j.op),
			State:     events.StateFailed,
			Stage:     stage,
			Message:   detail.Message,
			Error:     err.Error(),
		})
	}
	return err
}

func failureHint(err error) string {
	switch services.Kind(err) {
	case services.ErrInvalidRequest.Error():
		return "check the uploaded files and options"
	case services.ErrProbeFailed.Error():
		return "input may not be a readable video"
	case services.ErrTranscriptionFailed.Error():
		return "check transcription provider credentials and connectivity"
	default:
		return "inspect the ffmpeg stderr excerpt"
	}
}

// probe inspects path. Optional probes log and continue on failure.
func (j *job) probe(ctx context.Context, path string, required bool) (ffprobe.Result, error) {
	j.publish(events.StateProbing, "probe", 0, "")
	info, err := j.p.prober.Inspect(ctx, path)
	if err != nil {
		if required {
			return ffprobe.Result{}, services.Wrap(services.ErrProbeFailed, "probe", string(j.op), "unable to read video metadata", err)
		}
		logging.WarnWithContext(j.logger, "probe failed; progress percentages unavailable", "probe_skipped",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "progress reported without percentages"),
		)
		return ffprobe.Result{}, nil
	}
	j.logger.Info("probed input",
		logging.String("path", path),
		logging.String("resolution", info.Resolution()),
		logging.Float64("duration_seconds", info.DurationSeconds()),
		logging.Int64("size_bytes", info.SizeBytes()),
		logging.String("format", info.FormatName()),
		logging.Int("video_streams", info.VideoStreamCount()),
		logging.Int("audio_streams", info.AudioStreamCount()),
	)
	return info, nil
}

// encodeStep is one ffmpeg invocation of a job.
type encodeStep struct {
	stage    string
	args     []string
	output   string
	duration float64
}

// encode runs step and tracks its output whether or not ffmpeg succeeded.
func (j *job) encode(ctx context.Context, step encodeStep) error {
	j.publish(events.StateTransforming, step.stage, 0, stageTitle(step.stage))
	err := j.p.encoder.Run(ctx, ffmpeg.Command{
		Label:           step.stage,
		Args:            step.args,
		DurationSeconds: step.duration,
		Progress:        j.progress(step.stage),
	})
	tracked := j.tracker.Track(step.output)
	if err != nil {
		return err
	}
	if !tracked {
		return fmt.Errorf("ffmpeg produced no output at %s", step.output)
	}
	return nil
}

// progress publishes one event per whole-percent change.
func (j *job) progress(stage string) ffmpeg.ProgressFunc {
	last := -1
	title := stageTitle(stage)
	return func(pr ffmpeg.Progress) {
		if pr.Percent < 0 {
			return
		}
		pct := int(pr.Percent)
		if pct == last {
			return
		}
		last = pct
		j.publish(events.StateTransforming, stage, float64(pct), fmt.Sprintf("%s %d%%", title, pct))
		if j.limiter.Allow(stage, pr.Percent) {
			j.logger.Debug("ffmpeg progress",
				logging.String(logging.FieldStage, stage),
				logging.Int("percent", pct),
				logging.Float64("speed", pr.Speed),
			)
		}
	}
}

func stageTitle(stage string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(stage, "_", " "))
}

func (j *job) outputPath(name string) string {
	return filepath.Join(j.p.dirs.Output, name)
}

func (j *job) tempPath(name string) string {
	return filepath.Join(j.p.dirs.Temp, name)
}

// displayName is the sanitized client file name of asset.
func displayName(asset Asset, fallback string) string {
	name := asset.Name
	if strings.TrimSpace(name) == "" {
		name = filepath.Base(asset.Path)
	}
	return safeName(name, fallback)
}

func fileSize(asset Asset) int64 {
	if asset.Size > 0 {
		return asset.Size
	}
	info, err := os.Stat(asset.Path)
	if err != nil {
		return 0
	}
	return info.Size()
}
