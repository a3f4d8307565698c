package transcription

import (
	"context"
	"path/filepath"
	"strings"

	"vidtools/internal/services/whisperx"
	"vidtools/internal/subtitles"
)

// WhisperX adapts a local WhisperX service to Provider.
type WhisperX struct {
	svc      *whisperx.Service
	language string
}

// NewWhisperX wraps svc.
func NewWhisperX(svc *whisperx.Service, language string) *WhisperX {
	return &WhisperX{svc: svc, language: language}
}

// Name implements Provider.
func (w *WhisperX) Name() string { return "whisperx" }

// Transcribe runs WhisperX with its JSON written next to the audio file.
// The JSON is left for the caller's cleanup to remove.
func (w *WhisperX) Transcribe(ctx context.Context, audioPath string) ([]subtitles.Utterance, error) {
	segments, err := w.svc.TranscribeFile(ctx, audioPath, filepath.Dir(audioPath), w.language)
	if err != nil {
		return nil, err
	}
	out := make([]subtitles.Utterance, 0, len(segments))
	for _, seg := range segments {
		out = append(out, subtitles.Utterance{
			Text:    strings.TrimSpace(seg.Text),
			Start:   seg.Start,
			End:     seg.End,
			Speaker: seg.Speaker,
		})
	}
	return out, nil
}

// SidecarPath reports the JSON file a run on audioPath leaves behind.
func (w *WhisperX) SidecarPath(audioPath string) string {
	return whisperx.JSONPath(audioPath, filepath.Dir(audioPath))
}
