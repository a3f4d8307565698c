package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the working directories the pipeline reads and writes.
type Paths struct {
	UploadDir string `toml:"upload_dir"`
	TempDir   string `toml:"temp_dir"`
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
}

// Server contains HTTP listener and request limits.
type Server struct {
	APIBind            string   `toml:"api_bind"`
	APIToken           string   `toml:"api_token"`
	AllowedOrigins     []string `toml:"allowed_origins"`
	MaxUploadMB        int      `toml:"max_upload_mb"`
	MaxMergeInputs     int      `toml:"max_merge_inputs"`
	ShutdownTimeoutSec int      `toml:"shutdown_timeout_seconds"`
}

// Media contains ffmpeg/ffprobe settings.
type Media struct {
	FFmpegBinary         string `toml:"ffmpeg_binary"`
	FFprobeBinary        string `toml:"ffprobe_binary"`
	MaxConcurrentEncodes int    `toml:"max_concurrent_encodes"`
	JobTimeoutMinutes    int    `toml:"job_timeout_minutes"`
}

// Transcription selects and configures the speech-to-text provider used for
// subtitle generation.
type Transcription struct {
	Provider            string `toml:"provider"`
	Language            string `toml:"language"`
	OpenAIAPIKey        string `toml:"openai_api_key"`
	OpenAIBaseURL       string `toml:"openai_base_url"`
	OpenAIModel         string `toml:"openai_model"`
	AssemblyAIAPIKey    string `toml:"assemblyai_api_key"`
	AssemblyAIBaseURL   string `toml:"assemblyai_base_url"`
	PollIntervalSeconds int    `toml:"poll_interval_seconds"`
	TimeoutMinutes      int    `toml:"timeout_minutes"`
	WhisperXModel       string `toml:"whisperx_model"`
	WhisperXCUDAEnabled bool   `toml:"whisperx_cuda_enabled"`
	WhisperXVADMethod   string `toml:"whisperx_vad_method"`
	WhisperXHFToken     string `toml:"whisperx_hf_token"`
}

// Subtitles bounds the size of each burned-in subtitle line.
type Subtitles struct {
	MaxWordsPerLine int `toml:"max_words_per_line"`
	MaxCharsPerLine int `toml:"max_chars_per_line"`
}

// Cleanup controls the stale file sweeper.
type Cleanup struct {
	Schedule             string `toml:"schedule"`
	MaxAgeHours          int    `toml:"max_age_hours"`
	OutputRetentionHours int    `toml:"output_retention_hours"`
	LogRetentionDays     int    `toml:"log_retention_days"`
}

// Jobs configures the job status store.
type Jobs struct {
	Database     string `toml:"database"`
	HistoryLimit int    `toml:"history_limit"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for vidtools.
//
// Configuration sections by subsystem:
//   - Paths: upload, temp, output and log directories
//   - Server: listener address, CORS and upload limits
//   - Media: ffmpeg/ffprobe binaries and encode concurrency
//   - Transcription: provider selection and credentials
//   - Subtitles: line length limits
//   - Cleanup: stale file sweeper schedule and ages
//   - Jobs: job status store
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Server        Server        `toml:"server"`
	Media         Media         `toml:"media"`
	Transcription Transcription `toml:"transcription"`
	Subtitles     Subtitles     `toml:"subtitles"`
	Cleanup       Cleanup       `toml:"cleanup"`
	Jobs          Jobs          `toml:"jobs"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return ExpandPath("~/.config/vidtools/config.toml")
}

// Load locates, parses, and validates a configuration file. A .env file in
// the working directory (or next to the config file) is loaded first so its
// values can serve as environment fallbacks. It returns the config, the path
// it was resolved from, and whether that file existed.
func Load(path string) (*Config, string, bool, error) {
	resolved, exists, err := locate(path)
	if err != nil {
		return nil, "", false, err
	}
	if err := loadDotEnv(filepath.Dir(resolved)); err != nil {
		return nil, "", false, err
	}

	cfg := Default()
	if exists {
		if err := decodeFile(resolved, &cfg); err != nil {
			return nil, "", false, err
		}
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolved, exists, nil
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return fmt.Errorf("parse config %s:%d:%d: %w", filepath.Base(path), row, col, err)
		}
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// locate picks the config file: an explicit path, then the user config
// directory, then ./vidtools.toml. When none exists the user config path is
// returned with exists=false so "config init" knows where to write.
func locate(explicit string) (string, bool, error) {
	if explicit != "" {
		p, err := ExpandPath(explicit)
		if err != nil {
			return "", false, err
		}
		switch _, err := os.Stat(p); {
		case err == nil:
			return p, true, nil
		case errors.Is(err, fs.ErrNotExist):
			return p, false, nil
		default:
			return "", false, fmt.Errorf("stat config: %w", err)
		}
	}

	user, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	local, err := filepath.Abs("vidtools.toml")
	if err != nil {
		return "", false, err
	}
	for _, candidate := range []string{user, local} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true, nil
		}
	}
	return user, false, nil
}

// loadDotEnv reads .env from the working directory and from configDir.
// Variables already present in the environment win.
func loadDotEnv(configDir string) error {
	candidates := []string{".env"}
	if configDir != "" {
		candidates = append(candidates, filepath.Join(configDir, ".env"))
	}
	seen := make(map[string]struct{}, len(candidates))
	for _, candidate := range candidates {
		abs, err := filepath.Abs(candidate)
		if err != nil {
			continue
		}
		if _, ok := seen[abs]; ok {
			continue
		}
		seen[abs] = struct{}{}
		if info, err := os.Stat(abs); err != nil || info.IsDir() {
			continue
		}
		if err := godotenv.Load(abs); err != nil {
			return fmt.Errorf("load %s: %w", abs, err)
		}
	}
	return nil
}

// EnsureDirectories creates the working directories. It is idempotent.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.UploadDir, c.Paths.TempDir, c.Paths.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.LogDir) != "" {
		if err := os.MkdirAll(c.Paths.LogDir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", c.Paths.LogDir, err)
		}
	}
	return nil
}

// LockPath returns the single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.TempDir, "vidtools.lock")
}

// MaxUploadBytes returns the request body limit for uploads.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Server.MaxUploadMB) << 20
}

// JobTimeout returns the per-job deadline, or zero when unbounded.
func (c *Config) JobTimeout() time.Duration {
	if c.Media.JobTimeoutMinutes <= 0 {
		return 0
	}
	return time.Duration(c.Media.JobTimeoutMinutes) * time.Minute
}

// ShutdownTimeout returns the graceful shutdown window for the HTTP server.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeoutSec) * time.Second
}

// StaleAge returns the age after which upload and temp files are swept.
func (c *Config) StaleAge() time.Duration {
	return time.Duration(c.Cleanup.MaxAgeHours) * time.Hour
}

// OutputRetention returns how long finished outputs are kept; zero keeps them forever.
func (c *Config) OutputRetention() time.Duration {
	return time.Duration(c.Cleanup.OutputRetentionHours) * time.Hour
}

// PollInterval returns the asynchronous transcription polling cadence.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Transcription.PollIntervalSeconds) * time.Second
}

// TranscriptionTimeout returns the HTTP timeout for transcription providers.
func (c *Config) TranscriptionTimeout() time.Duration {
	return time.Duration(c.Transcription.TimeoutMinutes) * time.Minute
}

// ExpandPath resolves a leading ~ to the home directory and returns an
// absolute, cleaned path. Empty input stays empty.
func ExpandPath(p string) (string, error) {
	if p == "" {
		return "", nil
	}
	if p == "~" || strings.HasPrefix(p, "~/") || strings.HasPrefix(p, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		p = filepath.Join(home, p[1:])
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", p, err)
	}
	return abs, nil
}

// SampleConfig returns the embedded sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
