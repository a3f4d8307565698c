package whisperx

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	langpkg "vidtools/internal/language"
)

// CommandRunner executes an external command and returns its combined
// output. Tests substitute a fake.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Service shells out to whisperx via uvx.
type Service struct {
	cfg    Config
	runner CommandRunner
}

// Option customizes a Service.
type Option func(*Service)

// WithRunner replaces the exec-based command runner.
func WithRunner(r CommandRunner) Option {
	return func(s *Service) {
		if r != nil {
			s.runner = r
		}
	}
}

func NewService(cfg Config, opts ...Option) *Service {
	s := &Service{cfg: cfg, runner: execRunner}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Model returns the model name passed to whisperx.
func (s *Service) Model() string {
	if s.cfg.Model == "" {
		return DefaultModel
	}
	return s.cfg.Model
}

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	// torch >= 2.6 defaults torch.load to weights_only, which pyannote checkpoints fail.
	if os.Getenv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD") == "" {
		cmd.Env = append(os.Environ(), "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1")
	}
	return cmd.CombinedOutput()
}

// TranscribeFile runs whisperx on a WAV file and returns the segments it
// wrote to JSONPath(source, outputDir). An empty outputDir means the
// source's directory.
func (s *Service) TranscribeFile(ctx context.Context, source, outputDir, language string) ([]Segment, error) {
	if source == "" {
		return nil, fmt.Errorf("whisperx: source path required")
	}
	if outputDir == "" {
		outputDir = filepath.Dir(source)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("whisperx: output dir: %w", err)
	}

	uvx := s.cfg.UVXBinary
	if uvx == "" {
		uvx = uvxCommand
	}
	if out, err := s.runner(ctx, uvx, s.buildArgs(source, outputDir, language)...); err != nil {
		msg := strings.TrimSpace(string(out))
		if len(msg) > maxErrorOutput {
			msg = msg[len(msg)-maxErrorOutput:]
		}
		return nil, fmt.Errorf("whisperx: %w: %s", err, msg)
	}
	return readSegments(JSONPath(source, outputDir))
}

// maxErrorOutput caps how much of the whisperx log tail ends up in errors.
const maxErrorOutput = 2000

// JSONPath returns where whisperx writes the segment JSON for source.
func JSONPath(source, outputDir string) string {
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	return filepath.Join(outputDir, base+".json")
}

func (s *Service) buildArgs(source, outputDir, language string) []string {
	args := []string{"--index-url", pypiIndexURL}
	if s.cfg.CUDAEnabled {
		args = []string{"--index-url", cudaIndexURL, "--extra-index-url", pypiIndexURL}
	}
	args = append(args,
		"whisperx", source,
		"--model", s.Model(),
		"--output_dir", outputDir,
		"--output_format", "json",
		"--segment_resolution", "sentence",
	)
	args = append(args, s.cfg.Tuning.withDefaults().args()...)

	vad := s.cfg.VADMethod
	if vad == "" {
		vad = VADMethodSilero
	}
	args = append(args, "--vad_method", vad)
	if vad == VADMethodPyannote && s.cfg.HFToken != "" {
		args = append(args, "--hf_token", s.cfg.HFToken)
	}
	if lang := langpkg.ToISO2(language); lang != "" {
		args = append(args, "--language", lang)
	}
	if s.cfg.CUDAEnabled {
		return append(args, "--device", "cuda")
	}
	return append(args, "--device", "cpu", "--compute_type", "float32")
}

// Segment is one sentence-level span from the whisperx JSON output.
type Segment struct {
	Text    string  `json:"text"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker,omitempty"`
}

func readSegments(path string) ([]Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("whisperx: read output: %w", err)
	}
	var doc struct {
		Segments []Segment `json:"segments"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("whisperx: parse output: %w", err)
	}
	return doc.Segments, nil
}
