package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateSubtitles(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateCleanup(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateTranscription() error {
	switch c.Transcription.Provider {
	case ProviderOpenAI, ProviderAssemblyAI, ProviderWhisperX:
	default:
		return fmt.Errorf("transcription.provider: unsupported value %q (want openai, assemblyai or whisperx)", c.Transcription.Provider)
	}
	switch c.Transcription.WhisperXVADMethod {
	case "silero", "pyannote":
	default:
		return fmt.Errorf("transcription.whisperx_vad_method: unsupported value %q", c.Transcription.WhisperXVADMethod)
	}
	return nil
}

// TranscriptionReady reports whether the selected provider has the
// credentials it needs. Missing credentials only disable subtitle generation.
func (c *Config) TranscriptionReady() error {
	switch c.Transcription.Provider {
	case ProviderOpenAI:
		if c.Transcription.OpenAIAPIKey == "" {
			return errors.New("transcription.openai_api_key is not set (set OPENAI_API_KEY or edit the config)")
		}
	case ProviderAssemblyAI:
		if c.Transcription.AssemblyAIAPIKey == "" {
			return errors.New("transcription.assemblyai_api_key is not set (set ASSEMBLYAI_API_KEY or edit the config)")
		}
	case ProviderWhisperX:
		if c.Transcription.WhisperXVADMethod == "pyannote" && c.Transcription.WhisperXHFToken == "" {
			return errors.New("transcription.whisperx_hf_token is required for the pyannote VAD method")
		}
	}
	return nil
}

func (c *Config) validateSubtitles() error {
	if c.Subtitles.MaxWordsPerLine <= 0 {
		return errors.New("subtitles.max_words_per_line must be positive")
	}
	if c.Subtitles.MaxCharsPerLine <= 0 {
		return errors.New("subtitles.max_chars_per_line must be positive")
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.MaxMergeInputs < 2 {
		return errors.New("server.max_merge_inputs must be at least 2")
	}
	for _, origin := range c.Server.AllowedOrigins {
		if origin != "*" && !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			return fmt.Errorf("server.allowed_origins: %q must be an http(s) origin or *", origin)
		}
	}
	return nil
}

func (c *Config) validateCleanup() error {
	if _, err := cron.ParseStandard(c.Cleanup.Schedule); err != nil {
		return fmt.Errorf("cleanup.schedule: %w", err)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
