package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"vidtools/internal/events"
	"vidtools/internal/language"
	"vidtools/internal/logging"
	"vidtools/internal/services"
	"vidtools/internal/subtitles"
	"vidtools/internal/textutil"
)

const defaultVideoName = "video.mp4"

// safeName sanitizes a client file name and guarantees an extension.
func safeName(name, fallback string) string {
	safe := textutil.SafeBaseName(name, fallback)
	if filepath.Ext(safe) == "" {
		safe += ".mp4"
	}
	return safe
}

func (j *job) compress(ctx context.Context, input Asset, quality QualityPreset) (Result, error) {
	info, err := j.probe(ctx, input.Path, true)
	if err != nil {
		return Result{}, err
	}
	output := j.outputPath(fmt.Sprintf("compressed-%s-%s", j.stamp, displayName(input, defaultVideoName)))
	err = j.encode(ctx, encodeStep{
		stage:    "compress",
		args:     CompressArgs(input.Path, output, quality),
		output:   output,
		duration: info.DurationSeconds(),
	})
	if err != nil {
		return Result{}, services.Wrap(services.ErrTransformFailed, "compress", string(j.op), "video compression failed", err)
	}
	return Result{
		OutputPath: output,
		Message:    "Video compressed successfully",
		Stats:      &CompressionStats{OriginalSize: fileSize(input)},
	}, nil
}

func (j *job) extractAudio(ctx context.Context, input Asset) (Result, error) {
	info, _ := j.probe(ctx, input.Path, false)
	output := j.outputPath(fmt.Sprintf("audio-%s.mp3", j.stamp))
	err := j.encode(ctx, encodeStep{
		stage:    "extract_audio",
		args:     ExtractAudioArgs(input.Path, output),
		output:   output,
		duration: info.DurationSeconds(),
	})
	if err != nil {
		return Result{}, services.Wrap(services.ErrTransformFailed, "extract_audio", string(j.op), "audio extraction failed", err)
	}
	return Result{OutputPath: output, Format: "mp3", Message: "Audio extracted successfully"}, nil
}

func (j *job) watermark(ctx context.Context, video, image Asset, overlay string) (Result, error) {
	info, _ := j.probe(ctx, video.Path, false)
	output := j.outputPath(fmt.Sprintf("watermarked-%s-%s", j.stamp, displayName(video, defaultVideoName)))
	err := j.encode(ctx, encodeStep{
		stage:    "watermark",
		args:     WatermarkArgs(video.Path, image.Path, output, overlay),
		output:   output,
		duration: info.DurationSeconds(),
	})
	if err != nil {
		return Result{}, services.Wrap(services.ErrTransformFailed, "watermark", string(j.op), "adding watermark failed", err)
	}
	return Result{OutputPath: output, Message: "Watermark added successfully"}, nil
}

// merge standardizes every input and stream-copies the clips together.
func (j *job) merge(ctx context.Context, inputs []Asset) (Result, error) {
	clips := make([]string, 0, len(inputs))
	var total float64
	for i, input := range inputs {
		clip := j.tempPath(fmt.Sprintf("standardized-%d-%s.mp4", i, j.stamp))
		j.publish(events.StateProbing, "probe", 0, "")
		duration, err := j.p.standardize(ctx, j.logger, input.Path, clip, j.progress("standardize"))
		j.tracker.Track(clip)
		if err != nil {
			return Result{}, services.Wrap(markerOf(err), services.StageOf(err), string(j.op), fmt.Sprintf("failed to process video %d", i+1), err)
		}
		if input.Owned {
			j.tracker.Release(input.Path)
		}
		abs, err := filepath.Abs(clip)
		if err != nil {
			abs = clip
		}
		clips = append(clips, abs)
		total += duration
	}

	list := j.tempPath(fmt.Sprintf("concat-%s.txt", j.id))
	if err := WriteConcatList(list, clips); err != nil {
		return Result{}, services.Wrap(services.ErrTransformFailed, "concat", string(j.op), "writing concat list failed", err)
	}
	j.tracker.Track(list)

	output := j.outputPath(fmt.Sprintf("merged-%s.mp4", j.stamp))
	err := j.encode(ctx, encodeStep{
		stage:    "concat",
		args:     ConcatArgs(list, output),
		output:   output,
		duration: total,
	})
	if err != nil {
		return Result{}, services.Wrap(services.ErrTransformFailed, "concat", string(j.op), "concatenation failed", err)
	}
	return Result{OutputPath: output, Message: "Videos merged successfully"}, nil
}

func (j *job) convert(ctx context.Context, input Asset, format OutputFormat) (Result, error) {
	info, _ := j.probe(ctx, input.Path, false)
	output := j.outputPath(fmt.Sprintf("converted-%s%s", j.stamp, format.Extension()))
	err := j.encode(ctx, encodeStep{
		stage:    "convert",
		args:     ConvertArgs(input.Path, output, format),
		output:   output,
		duration: info.DurationSeconds(),
	})
	if err != nil {
		return Result{}, services.Wrap(services.ErrTransformFailed, "convert", string(j.op), "format conversion failed", err)
	}
	return Result{OutputPath: output, Format: format.Name, Message: "Video converted successfully"}, nil
}

// sidecarProvider is implemented by providers that leave files next to the
// audio they transcribe.
type sidecarProvider interface {
	SidecarPath(audioPath string) string
}

func (j *job) generateSubtitles(ctx context.Context, input Asset) (Result, error) {
	op := string(j.op)
	info, err := j.probe(ctx, input.Path, true)
	if err != nil {
		return Result{}, err
	}

	audio := j.tempPath(fmt.Sprintf("audio-%s.wav", j.stamp))
	err = j.encode(ctx, encodeStep{
		stage:    "extract_audio",
		args:     TranscriptionAudioArgs(input.Path, audio),
		output:   audio,
		duration: info.DurationSeconds(),
	})
	if err != nil {
		return Result{}, services.Wrap(services.ErrTransformFailed, "extract_audio", op, "audio extraction failed", err)
	}

	provider := j.p.transcriber
	if provider == nil {
		return Result{}, services.Wrap(services.ErrTranscriptionFailed, "transcribe", op, "no transcription provider configured", nil)
	}
	j.publish(events.StateTransforming, "transcribe", 0, "Transcribing with "+provider.Name())
	utterances, err := provider.Transcribe(ctx, audio)
	if sidecar, ok := provider.(sidecarProvider); ok {
		j.tracker.Track(sidecar.SidecarPath(audio))
	}
	if err != nil {
		return Result{}, services.Wrap(services.ErrTranscriptionFailed, "transcribe", op, provider.Name()+" transcription failed", err)
	}
	j.tracker.Release(audio)

	records := subtitles.Assemble(utterances, j.p.chunk)
	if len(records) == 0 {
		return Result{}, services.Wrap(services.ErrTranscriptionFailed, "transcribe", op, "no speech found in audio", nil)
	}
	content := subtitles.Render(records)
	lines := make([]string, 0, len(records))
	for _, rec := range records {
		lines = append(lines, rec.Text)
	}
	detected, _ := language.DetectLines(lines)
	srt := j.tempPath(j.stamp + ".srt")
	if err := os.WriteFile(srt, []byte(content), 0o644); err != nil {
		return Result{}, services.Wrap(services.ErrTransformFailed, "write_subtitles", op, "writing subtitle file failed", err)
	}
	j.tracker.Track(srt)
	j.logger.Info("subtitles generated",
		logging.String("provider", provider.Name()),
		logging.Int("utterances", len(utterances)),
		logging.Int("cues", len(records)),
		logging.String("language", detected),
	)
	if issues := subtitles.Validate(content, info.DurationSeconds()); len(issues) > 0 {
		logging.WarnWithContext(j.logger, "subtitle validation issues", "subtitle_validation",
			logging.Strings("issues", issues),
			logging.String(logging.FieldImpact, "subtitles burned in as generated"),
		)
	}

	output := j.outputPath(fmt.Sprintf("subtitled-%s-%s", j.stamp, displayName(input, defaultVideoName)))
	err = j.encode(ctx, encodeStep{
		stage:    "burn_subtitles",
		args:     BurnSubtitlesArgs(input.Path, srt, output),
		output:   output,
		duration: info.DurationSeconds(),
	})
	if err != nil {
		return Result{}, services.Wrap(services.ErrTransformFailed, "burn_subtitles", op, "burning subtitles failed", err)
	}
	return Result{
		OutputPath: output,
		Message:    "Subtitles generated successfully",
		Subtitles:  len(records),
		Language:   detected,
	}, nil
}

// CompressArgs scales and re-encodes src at the preset's bitrates.
func CompressArgs(src, dst string, q QualityPreset) []string {
	return []string{
		"-i", src,
		"-b:v", q.VideoBitrate,
		"-b:a", q.AudioBitrate,
		"-vf", fmt.Sprintf("scale=%d:%d", q.Width, q.Height),
		"-r", strconv.Itoa(q.FPS),
		"-preset", "medium",
		"-movflags", "+faststart",
		dst,
	}
}

// ExtractAudioArgs writes the audio track of src as 192k stereo MP3.
func ExtractAudioArgs(src, dst string) []string {
	return []string{"-i", src, "-vn", "-f", "mp3", "-b:a", "192k", "-ar", "44100", "-ac", "2", dst}
}

// WatermarkArgs overlays image on video at the overlay expression.
func WatermarkArgs(video, image, dst, overlay string) []string {
	return []string{
		"-i", video,
		"-i", image,
		"-filter_complex", "overlay=" + overlay,
		"-preset", "medium",
		"-movflags", "+faststart",
		dst,
	}
}

// ConcatArgs stream-copies the clips named in list.
func ConcatArgs(list, dst string) []string {
	return []string{"-f", "concat", "-safe", "0", "-i", list, "-c", "copy", "-movflags", "+faststart", dst}
}

// ConvertArgs remuxes or transcodes src into format.
func ConvertArgs(src, dst string, format OutputFormat) []string {
	return []string{"-i", src, "-f", format.Muxer, dst}
}

// TranscriptionAudioArgs extracts mono 16 kHz PCM for speech recognition.
func TranscriptionAudioArgs(src, dst string) []string {
	return []string{"-i", src, "-vn", "-ac", "1", "-ar", "16000", "-c:a", "pcm_s16le", dst}
}

// BurnSubtitlesArgs renders srt into the video frames of src.
func BurnSubtitlesArgs(src, srt, dst string) []string {
	return []string{
		"-i", src,
		"-vf", "subtitles=filename=" + escapeFilterPath(srt),
		"-preset", "medium",
		"-movflags", "+faststart",
		dst,
	}
}

var (
	filterOptionEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`, `:`, `\:`)
	filterGraphEscaper  = strings.NewReplacer(`\`, `\\`, `'`, `\'`, `[`, `\[`, `]`, `\]`, `,`, `\,`, `;`, `\;`)
)

// escapeFilterPath quotes a path for use as a filter option inside a
// filtergraph, applying both levels of ffmpeg escaping.
func escapeFilterPath(path string) string {
	return filterGraphEscaper.Replace(filterOptionEscaper.Replace(path))
}
