package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"vidtools/internal/config"
	"vidtools/internal/events"
	"vidtools/internal/logging"
	"vidtools/internal/media/ffmpeg"
	"vidtools/internal/media/ffprobe"
	"vidtools/internal/services"
	"vidtools/internal/subtitles"
	"vidtools/internal/transcription"
)

// Encoder runs one ffmpeg invocation. *ffmpeg.Runner satisfies it.
type Encoder interface {
	Run(ctx context.Context, cmd ffmpeg.Command) error
}

// Prober reads container metadata. *ffprobe.Prober satisfies it.
type Prober interface {
	Inspect(ctx context.Context, path string) (ffprobe.Result, error)
}

// Dirs are the working directories of the pipeline.
type Dirs struct {
	Upload string
	Temp   string
	Output string
}

// Pipeline executes jobs against ffmpeg and a transcription provider.
type Pipeline struct {
	dirs           Dirs
	encoder        Encoder
	prober         Prober
	events         *events.Hub
	transcriber    transcription.Provider
	logger         *slog.Logger
	now            func() time.Time
	token          func() string
	remove         func(string) error
	chunk          subtitles.ChunkOptions
	maxMergeInputs int
	jobTimeout     time.Duration
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithEvents publishes job state changes to hub.
func WithEvents(hub *events.Hub) Option {
	return func(p *Pipeline) { p.events = hub }
}

// WithTranscriber sets the provider used by subtitle jobs.
func WithTranscriber(provider transcription.Provider) Option {
	return func(p *Pipeline) { p.transcriber = provider }
}

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithClock overrides the time source used in file names.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// WithTokenSource overrides the per-job token used in file names.
func WithTokenSource(token func() string) Option {
	return func(p *Pipeline) {
		if token != nil {
			p.token = token
		}
	}
}

// WithRemove overrides file deletion (tests).
func WithRemove(remove func(string) error) Option {
	return func(p *Pipeline) {
		if remove != nil {
			p.remove = remove
		}
	}
}

// WithChunkOptions bounds burned-in subtitle lines.
func WithChunkOptions(opts subtitles.ChunkOptions) Option {
	return func(p *Pipeline) { p.chunk = opts }
}

// WithMaxMergeInputs caps the number of merge inputs. Zero means no cap.
func WithMaxMergeInputs(n int) Option {
	return func(p *Pipeline) { p.maxMergeInputs = n }
}

// WithJobTimeout bounds each job in addition to the caller's context.
func WithJobTimeout(d time.Duration) Option {
	return func(p *Pipeline) { p.jobTimeout = d }
}

// New builds a pipeline and creates its working directories.
func New(dirs Dirs, encoder Encoder, prober Prober, opts ...Option) (*Pipeline, error) {
	if encoder == nil || prober == nil {
		return nil, errors.New("pipeline requires an encoder and a prober")
	}
	p := &Pipeline{
		dirs:    dirs,
		encoder: encoder,
		prober:  prober,
		logger:  logging.NewNop(),
		now:     time.Now,
		token:   defaultToken,
		remove:  os.Remove,
		chunk:   subtitles.DefaultChunkOptions(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logging.NewComponentLogger(p.logger, "pipeline")
	for _, dir := range []string{dirs.Upload, dirs.Temp, dirs.Output} {
		if err := EnsureDirectory(dir); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// NewFromConfig wires the ffmpeg runner, prober and subtitle limits from cfg.
func NewFromConfig(cfg *config.Config, hub *events.Hub, provider transcription.Provider, logger *slog.Logger) (*Pipeline, error) {
	if cfg == nil {
		return nil, errors.New("pipeline requires configuration")
	}
	runner := ffmpeg.NewRunner(cfg.Media.FFmpegBinary, cfg.Media.MaxConcurrentEncodes, logger)
	prober := ffprobe.NewProber(cfg.Media.FFprobeBinary)
	return New(
		Dirs{Upload: cfg.Paths.UploadDir, Temp: cfg.Paths.TempDir, Output: cfg.Paths.OutputDir},
		runner,
		prober,
		WithEvents(hub),
		WithTranscriber(provider),
		WithLogger(logger),
		WithChunkOptions(subtitles.ChunkOptions{
			MaxWords: cfg.Subtitles.MaxWordsPerLine,
			MaxChars: cfg.Subtitles.MaxCharsPerLine,
		}),
		WithMaxMergeInputs(cfg.Server.MaxMergeInputs),
		WithJobTimeout(cfg.JobTimeout()),
	)
}

// EnsureDirectory creates dir and its parents if missing.
func EnsureDirectory(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return errors.New("directory path is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}

// Dirs returns the working directories.
func (p *Pipeline) Dirs() Dirs {
	return p.dirs
}

// Transcriber returns the configured provider, or nil.
func (p *Pipeline) Transcriber() transcription.Provider {
	return p.transcriber
}

func defaultToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// Run executes req to completion. Owned inputs and every intermediate are
// removed whether or not the job succeeds; only the output survives.
func (p *Pipeline) Run(ctx context.Context, req Request) (Result, error) {
	jobID := strings.TrimSpace(req.JobID)
	if jobID == "" {
		jobID = uuid.NewString()
	}
	ctx = services.WithJobID(ctx, jobID)
	ctx = services.WithOperation(ctx, string(req.Operation))
	j := p.newJob(ctx, jobID, req.Operation)
	j.publish(events.StateReceived, "validate", 0, "")

	pl, err := p.validate(req)
	for _, asset := range req.assets() {
		if asset.Owned {
			j.tracker.Track(asset.Path)
		}
	}
	if err != nil {
		return Result{}, j.fail(err)
	}

	if p.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.jobTimeout)
		defer cancel()
	}

	j.logger.Info("job started", append([]any{logging.Int("inputs", len(req.Inputs))}, pl.logAttrs()...)...)

	result, err := j.execute(ctx, req, pl)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			j.logger.Debug("job interrupted", logging.Error(err))
			err = services.Wrap(services.ErrTransformFailed, j.stage, string(req.Operation), cancelMessage(ctxErr), ctxErr)
		}
		return Result{}, j.fail(err)
	}

	j.publish(events.StateCleanup, "cleanup", 100, "")
	j.tracker.Keep(result.OutputPath)
	removed := j.tracker.Cleanup()

	result.JobID = jobID
	result.Operation = req.Operation
	result.OutputFile = "/output/" + filepath.Base(result.OutputPath)
	if info, statErr := os.Stat(result.OutputPath); statErr == nil {
		result.FileSize = info.Size()
	}
	if result.Stats != nil {
		result.Stats.CompressedSize = result.FileSize
		result.Stats.CompressionRatio = CompressionRatio(result.Stats.OriginalSize, result.FileSize)
	}

	j.logger.Info("job completed",
		logging.String("output", result.OutputPath),
		logging.Int64("size_bytes", result.FileSize),
		logging.Int("files_removed", len(removed)),
		logging.Duration("elapsed", time.Since(j.started)),
	)
	j.publishDone(result.OutputFile, result.Message)
	return result, nil
}

func cancelMessage(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "job timed out"
	}
	return "job cancelled"
}

// plan holds the resolved options of a validated request.
type plan struct {
	quality QualityPreset
	format  OutputFormat
	overlay string
}

// resolveOptions looks up only the options req.Operation reads; stray
// fields are ignored.
func resolveOptions(req Request) (plan, error) {
	var out plan
	var err error
	switch req.Operation {
	case OpCompress:
		out.quality, err = LookupQuality(req.Quality)
	case OpConvert:
		out.format, err = LookupFormat(req.Format)
	case OpWatermark:
		out.overlay, err = LookupPosition(req.Position)
	}
	return out, err
}

// CheckOptions reports whether the options req.Operation reads are known.
func CheckOptions(req Request) error {
	_, err := resolveOptions(req)
	return err
}

// logAttrs reports only the options the operation resolved.
func (pl plan) logAttrs() []any {
	var attrs []any
	if pl.quality.Name != "" {
		attrs = append(attrs, logging.String("quality", pl.quality.Name))
	}
	if pl.format.Name != "" {
		attrs = append(attrs, logging.String("format", pl.format.Name))
	}
	if pl.overlay != "" {
		attrs = append(attrs, logging.String("overlay", pl.overlay))
	}
	return attrs
}

// validate checks counts and options without touching the filesystem.
func (p *Pipeline) validate(req Request) (plan, error) {
	op := string(req.Operation)
	invalid := func(msg string) (plan, error) {
		return plan{}, services.Wrap(services.ErrInvalidRequest, "validate", op, msg, nil)
	}
	for _, asset := range req.assets() {
		if strings.TrimSpace(asset.Path) == "" {
			return invalid("input file path is empty")
		}
	}

	switch req.Operation {
	case OpCompress, OpExtractAudio, OpConvert, OpSubtitles:
		if len(req.Inputs) == 0 {
			return invalid("no video file uploaded")
		}
	case OpWatermark:
		if len(req.Inputs) == 0 || req.Watermark == nil {
			return invalid("both video and watermark image are required")
		}
	case OpMerge:
		if len(req.Inputs) < 2 {
			return invalid("at least two videos are required for merging")
		}
		if p.maxMergeInputs > 0 && len(req.Inputs) > p.maxMergeInputs {
			return invalid(fmt.Sprintf("at most %d videos can be merged", p.maxMergeInputs))
		}
	default:
		return invalid(fmt.Sprintf("unknown operation %q", op))
	}

	out, err := resolveOptions(req)
	if err != nil {
		return invalid(err.Error())
	}
	return out, nil
}
