package config

import "runtime"

const (
	defaultUploadDir            = "uploads"
	defaultTempDir              = "temp"
	defaultOutputDir            = "output"
	defaultAPIBind              = ":3001"
	defaultMaxUploadMB          = 2048
	defaultMaxMergeInputs       = 10
	defaultShutdownTimeoutSec   = 30
	defaultFFmpegBinary         = "ffmpeg"
	defaultFFprobeBinary        = "ffprobe"
	defaultTranscriptionVendor  = ProviderOpenAI
	defaultOpenAIBaseURL        = "https://api.openai.com"
	defaultOpenAIModel          = "whisper-1"
	defaultAssemblyAIBaseURL    = "https://api.assemblyai.com"
	defaultPollIntervalSeconds  = 3
	defaultTranscriptionTimeout = 10
	defaultWhisperXModel        = "large-v3"
	defaultWhisperXVADMethod    = "silero"
	defaultMaxWordsPerLine      = 7
	defaultMaxCharsPerLine      = 35
	defaultCleanupSchedule      = "@every 15m"
	defaultCleanupMaxAgeHours   = 6
	defaultOutputRetentionHours = 24
	defaultLogRetentionDays     = 30
	defaultJobsDatabase         = ":memory:"
	defaultJobsHistoryLimit     = 200
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Transcription provider identifiers.
const (
	ProviderOpenAI     = "openai"
	ProviderAssemblyAI = "assemblyai"
	ProviderWhisperX   = "whisperx"
)

var defaultAllowedOrigins = []string{"http://localhost:5173", "https://vidtools.vercel.app"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			UploadDir: defaultUploadDir,
			TempDir:   defaultTempDir,
			OutputDir: defaultOutputDir,
		},
		Server: Server{
			APIBind:            defaultAPIBind,
			AllowedOrigins:     append([]string(nil), defaultAllowedOrigins...),
			MaxUploadMB:        defaultMaxUploadMB,
			MaxMergeInputs:     defaultMaxMergeInputs,
			ShutdownTimeoutSec: defaultShutdownTimeoutSec,
		},
		Media: Media{
			FFmpegBinary:         defaultFFmpegBinary,
			FFprobeBinary:        defaultFFprobeBinary,
			MaxConcurrentEncodes: defaultConcurrentEncodes(),
		},
		Transcription: Transcription{
			Provider:            defaultTranscriptionVendor,
			OpenAIBaseURL:       defaultOpenAIBaseURL,
			OpenAIModel:         defaultOpenAIModel,
			AssemblyAIBaseURL:   defaultAssemblyAIBaseURL,
			PollIntervalSeconds: defaultPollIntervalSeconds,
			TimeoutMinutes:      defaultTranscriptionTimeout,
			WhisperXModel:       defaultWhisperXModel,
			WhisperXVADMethod:   defaultWhisperXVADMethod,
		},
		Subtitles: Subtitles{
			MaxWordsPerLine: defaultMaxWordsPerLine,
			MaxCharsPerLine: defaultMaxCharsPerLine,
		},
		Cleanup: Cleanup{
			Schedule:             defaultCleanupSchedule,
			MaxAgeHours:          defaultCleanupMaxAgeHours,
			OutputRetentionHours: defaultOutputRetentionHours,
			LogRetentionDays:     defaultLogRetentionDays,
		},
		Jobs: Jobs{
			Database:     defaultJobsDatabase,
			HistoryLimit: defaultJobsHistoryLimit,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

func defaultConcurrentEncodes() int {
	n := runtime.NumCPU() / 2
	if n < 1 {
		return 1
	}
	return n
}
