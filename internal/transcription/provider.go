package transcription

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"vidtools/internal/config"
	langpkg "vidtools/internal/language"
	"vidtools/internal/logging"
	"vidtools/internal/services"
	"vidtools/internal/services/whisperx"
	"vidtools/internal/subtitles"
)

// Provider transcribes an audio file.
type Provider interface {
	Name() string
	Transcribe(ctx context.Context, audioPath string) ([]subtitles.Utterance, error)
}

// New returns the provider selected by cfg.Transcription.Provider.
func New(cfg *config.Config, logger *slog.Logger) (Provider, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "transcribe", "select provider", "config is nil", nil)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	t := cfg.Transcription
	if err := cfg.TranscriptionReady(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "transcribe", "select provider", t.Provider+" is not ready", err)
	}
	language := langpkg.ToISO2(t.Language)

	switch t.Provider {
	case config.ProviderOpenAI:
		return NewOpenAIClient(t.OpenAIAPIKey,
			WithOpenAIBaseURL(t.OpenAIBaseURL),
			WithOpenAIModel(t.OpenAIModel),
			WithOpenAILanguage(language),
		), nil
	case config.ProviderAssemblyAI:
		return NewAssemblyAIClient(t.AssemblyAIAPIKey,
			WithAssemblyAIBaseURL(t.AssemblyAIBaseURL),
			WithPollInterval(cfg.PollInterval()),
			WithAssemblyAITimeout(cfg.TranscriptionTimeout()),
			WithAssemblyAILanguage(language),
			WithAssemblyAILogger(logger),
		), nil
	case config.ProviderWhisperX:
		svc := whisperx.NewService(whisperx.Config{
			Model:       t.WhisperXModel,
			CUDAEnabled: t.WhisperXCUDAEnabled,
			VADMethod:   t.WhisperXVADMethod,
			HFToken:     t.WhisperXHFToken,
		})
		return NewWhisperX(svc, language), nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "transcribe", "select provider", fmt.Sprintf("unknown provider %q", t.Provider), nil)
	}
}

// Unavailable returns a provider that fails every call with err.
func Unavailable(name string, err error) Provider {
	return unavailable{name: strings.TrimSpace(name), err: err}
}

type unavailable struct {
	name string
	err  error
}

func (u unavailable) Name() string { return u.name }

func (u unavailable) Transcribe(context.Context, string) ([]subtitles.Utterance, error) {
	return nil, u.err
}

// linesToUtterances spreads plain transcript text over fixed two-second
// slots, one per non-blank line. Used when a provider returns no timings.
func linesToUtterances(text string) []subtitles.Utterance {
	const slot = 2.0
	var out []subtitles.Utterance
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		start := float64(len(out)) * slot
		out = append(out, subtitles.Utterance{Text: line, Start: start, End: start + slot})
	}
	return out
}
