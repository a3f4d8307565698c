package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeServer()
	c.normalizeMedia()
	if err := c.normalizeJobs(); err != nil {
		return err
	}
	c.normalizeTranscription()
	c.normalizeCleanup()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.UploadDir) == "" {
		c.Paths.UploadDir = defaultUploadDir
	}
	if strings.TrimSpace(c.Paths.TempDir) == "" {
		c.Paths.TempDir = defaultTempDir
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.UploadDir, err = ExpandPath(c.Paths.UploadDir); err != nil {
		return fmt.Errorf("paths.upload_dir: %w", err)
	}
	if c.Paths.TempDir, err = ExpandPath(c.Paths.TempDir); err != nil {
		return fmt.Errorf("paths.temp_dir: %w", err)
	}
	if c.Paths.OutputDir, err = ExpandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = ExpandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeServer() {
	c.Server.APIBind = strings.TrimSpace(c.Server.APIBind)
	if value, ok := os.LookupEnv("VIDTOOLS_API_BIND"); ok && strings.TrimSpace(value) != "" {
		c.Server.APIBind = strings.TrimSpace(value)
	} else if value, ok := os.LookupEnv("PORT"); ok && strings.TrimSpace(value) != "" {
		c.Server.APIBind = ":" + strings.TrimSpace(value)
	}
	if c.Server.APIBind == "" {
		c.Server.APIBind = defaultAPIBind
	}
	c.Server.APIToken = strings.TrimSpace(c.Server.APIToken)
	if c.Server.APIToken == "" {
		if value, ok := os.LookupEnv("VIDTOOLS_API_TOKEN"); ok {
			c.Server.APIToken = strings.TrimSpace(value)
		}
	}
	origins := c.Server.AllowedOrigins[:0]
	for _, origin := range c.Server.AllowedOrigins {
		if trimmed := strings.TrimRight(strings.TrimSpace(origin), "/"); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	c.Server.AllowedOrigins = origins
	if c.Server.MaxUploadMB <= 0 {
		c.Server.MaxUploadMB = defaultMaxUploadMB
	}
	if c.Server.MaxMergeInputs <= 0 {
		c.Server.MaxMergeInputs = defaultMaxMergeInputs
	}
	if c.Server.ShutdownTimeoutSec <= 0 {
		c.Server.ShutdownTimeoutSec = defaultShutdownTimeoutSec
	}
}

func (c *Config) normalizeMedia() {
	c.Media.FFmpegBinary = strings.TrimSpace(c.Media.FFmpegBinary)
	if c.Media.FFmpegBinary == "" {
		c.Media.FFmpegBinary = defaultFFmpegBinary
	}
	c.Media.FFprobeBinary = strings.TrimSpace(c.Media.FFprobeBinary)
	if c.Media.FFprobeBinary == "" {
		c.Media.FFprobeBinary = defaultFFprobeBinary
	}
	if c.Media.MaxConcurrentEncodes <= 0 {
		c.Media.MaxConcurrentEncodes = defaultConcurrentEncodes()
	}
}

func (c *Config) normalizeJobs() error {
	c.Jobs.Database = strings.TrimSpace(c.Jobs.Database)
	if c.Jobs.Database == "" {
		c.Jobs.Database = defaultJobsDatabase
	}
	if c.Jobs.Database != defaultJobsDatabase && !strings.HasPrefix(c.Jobs.Database, "file:") {
		expanded, err := ExpandPath(c.Jobs.Database)
		if err != nil {
			return fmt.Errorf("jobs.database: %w", err)
		}
		c.Jobs.Database = expanded
	}
	if c.Jobs.HistoryLimit <= 0 {
		c.Jobs.HistoryLimit = defaultJobsHistoryLimit
	}
	return nil
}

func (c *Config) normalizeTranscription() {
	t := &c.Transcription
	t.Provider = strings.ToLower(strings.TrimSpace(t.Provider))
	if t.Provider == "" {
		t.Provider = defaultTranscriptionVendor
	}
	t.Language = strings.TrimSpace(t.Language)

	t.OpenAIAPIKey = strings.TrimSpace(t.OpenAIAPIKey)
	if t.OpenAIAPIKey == "" {
		if value, ok := os.LookupEnv("OPENAI_API_KEY"); ok {
			t.OpenAIAPIKey = strings.TrimSpace(value)
		}
	}
	t.OpenAIBaseURL = strings.TrimRight(strings.TrimSpace(t.OpenAIBaseURL), "/")
	if t.OpenAIBaseURL == "" {
		t.OpenAIBaseURL = defaultOpenAIBaseURL
	}
	t.OpenAIModel = strings.TrimSpace(t.OpenAIModel)
	if t.OpenAIModel == "" {
		t.OpenAIModel = defaultOpenAIModel
	}

	t.AssemblyAIAPIKey = strings.TrimSpace(t.AssemblyAIAPIKey)
	if t.AssemblyAIAPIKey == "" {
		if value, ok := os.LookupEnv("ASSEMBLYAI_API_KEY"); ok {
			t.AssemblyAIAPIKey = strings.TrimSpace(value)
		}
	}
	t.AssemblyAIBaseURL = strings.TrimRight(strings.TrimSpace(t.AssemblyAIBaseURL), "/")
	if t.AssemblyAIBaseURL == "" {
		t.AssemblyAIBaseURL = defaultAssemblyAIBaseURL
	}
	if t.PollIntervalSeconds <= 0 {
		t.PollIntervalSeconds = defaultPollIntervalSeconds
	}
	if t.TimeoutMinutes <= 0 {
		t.TimeoutMinutes = defaultTranscriptionTimeout
	}

	t.WhisperXModel = strings.TrimSpace(t.WhisperXModel)
	if t.WhisperXModel == "" {
		t.WhisperXModel = defaultWhisperXModel
	}
	t.WhisperXVADMethod = strings.ToLower(strings.TrimSpace(t.WhisperXVADMethod))
	if t.WhisperXVADMethod == "" {
		t.WhisperXVADMethod = defaultWhisperXVADMethod
	}
	t.WhisperXHFToken = strings.TrimSpace(t.WhisperXHFToken)
	if t.WhisperXHFToken == "" {
		if value, ok := os.LookupEnv("HUGGING_FACE_HUB_TOKEN"); ok {
			t.WhisperXHFToken = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("HF_TOKEN"); ok {
			t.WhisperXHFToken = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeCleanup() {
	c.Cleanup.Schedule = strings.TrimSpace(c.Cleanup.Schedule)
	if c.Cleanup.Schedule == "" {
		c.Cleanup.Schedule = defaultCleanupSchedule
	}
	if c.Cleanup.MaxAgeHours <= 0 {
		c.Cleanup.MaxAgeHours = defaultCleanupMaxAgeHours
	}
	if c.Cleanup.OutputRetentionHours < 0 {
		c.Cleanup.OutputRetentionHours = 0
	}
	if c.Cleanup.LogRetentionDays < 0 {
		c.Cleanup.LogRetentionDays = 0
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
