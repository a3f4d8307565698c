package pipeline

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/google/uuid"

	"vidtools/internal/events"
	"vidtools/internal/media/ffmpeg"
	"vidtools/internal/services"
	"vidtools/internal/subtitles"
)

func TestCompressProducesStatsAndCleansInputs(t *testing.T) {
	enc := &fakeEncoder{size: 400}
	env := newTestEnv(t, enc, &fakeProber{})
	input := env.upload(t, "clip.mp4", 1000)

	res, err := env.pipeline.Run(context.Background(), Request{
		JobID:     "job-1",
		Operation: OpCompress,
		Inputs:    []Asset{input},
		Quality:   "low",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.OutputFile != "/output/compressed-1700000000000-abcd1234-clip.mp4" {
		t.Fatalf("OutputFile = %q", res.OutputFile)
	}
	if res.Stats == nil || res.Stats.OriginalSize != 1000 || res.Stats.CompressedSize != 400 || res.Stats.CompressionRatio != "60.00%" {
		t.Fatalf("unexpected stats %+v", res.Stats)
	}
	if res.FileSize != 400 || res.JobID != "job-1" {
		t.Fatalf("unexpected result %+v", res)
	}

	args := enc.commands[0].Args
	for _, want := range []string{"500k", "64k", "scale=640:360", "24", "+faststart"} {
		if !slices.Contains(args, want) {
			t.Fatalf("missing %q in %v", want, args)
		}
	}
	if got := dirEntries(t, env.dirs.Upload); len(got) != 0 {
		t.Fatalf("uploads not cleaned: %v", got)
	}
	if got := dirEntries(t, env.dirs.Output); len(got) != 1 {
		t.Fatalf("expected one output, got %v", got)
	}

	evts := env.jobEvents(t, "job-1")
	if evts[0].State != events.StateReceived {
		t.Fatalf("first event = %+v", evts[0])
	}
	last := evts[len(evts)-1]
	if last.State != events.StateDone || last.OutputFile != res.OutputFile || last.Percent != 100 {
		t.Fatalf("last event = %+v", last)
	}
	var progress []float64
	for _, evt := range evts {
		if evt.State == events.StateTransforming && evt.Stage == "compress" {
			progress = append(progress, evt.Percent)
		}
	}
	if !slices.Equal(progress, []float64{0, 50, 100}) {
		t.Fatalf("progress events = %v", progress)
	}
	if !strings.HasPrefix(last.Message, "Video compressed") {
		t.Fatalf("done message = %q", last.Message)
	}
}

func TestRunGeneratesJobID(t *testing.T) {
	env := newTestEnv(t, &fakeEncoder{}, &fakeProber{})
	res, err := env.pipeline.Run(context.Background(), Request{
		Operation: OpExtractAudio,
		Inputs:    []Asset{env.upload(t, "clip.mp4", 10)},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := uuid.Parse(res.JobID); err != nil {
		t.Fatalf("JobID %q is not a UUID: %v", res.JobID, err)
	}
}

func TestExtractAudioToleratesProbeFailure(t *testing.T) {
	enc := &fakeEncoder{}
	env := newTestEnv(t, enc, &fakeProber{fail: map[string]bool{"1700000000000-clip.mp4": true}})
	res, err := env.pipeline.Run(context.Background(), Request{
		Operation: OpExtractAudio,
		Inputs:    []Asset{env.upload(t, "clip.mp4", 10)},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.OutputFile != "/output/audio-1700000000000-abcd1234.mp3" || res.Format != "mp3" {
		t.Fatalf("unexpected result %+v", res)
	}
	if enc.commands[0].DurationSeconds != 0 {
		t.Fatalf("duration should be unknown, got %v", enc.commands[0].DurationSeconds)
	}
	args := enc.commands[0].Args
	if !slices.Contains(args, "-vn") || !slices.Contains(args, "192k") {
		t.Fatalf("unexpected args %v", args)
	}
}

func TestConvertUsesMuxer(t *testing.T) {
	enc := &fakeEncoder{}
	env := newTestEnv(t, enc, &fakeProber{})
	res, err := env.pipeline.Run(context.Background(), Request{
		Operation: OpConvert,
		Inputs:    []Asset{env.upload(t, "clip.mp4", 10)},
		Format:    "MKV",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.OutputFile != "/output/converted-1700000000000-abcd1234.mkv" || res.Format != "mkv" {
		t.Fatalf("unexpected result %+v", res)
	}
	idx := slices.Index(enc.commands[0].Args, "-f")
	if idx < 0 || enc.commands[0].Args[idx+1] != "matroska" {
		t.Fatalf("unexpected args %v", enc.commands[0].Args)
	}
}

func TestWatermarkOverlay(t *testing.T) {
	enc := &fakeEncoder{}
	env := newTestEnv(t, enc, &fakeProber{})
	video := env.upload(t, "clip.mp4", 10)
	logo := env.upload(t, "logo.png", 10)
	res, err := env.pipeline.Run(context.Background(), Request{
		Operation: OpWatermark,
		Inputs:    []Asset{video},
		Watermark: &logo,
		Position:  "topleft",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.OutputFile != "/output/watermarked-1700000000000-abcd1234-clip.mp4" {
		t.Fatalf("OutputFile = %q", res.OutputFile)
	}
	if !slices.Contains(enc.commands[0].Args, "overlay=10:10") {
		t.Fatalf("unexpected args %v", enc.commands[0].Args)
	}
	if got := dirEntries(t, env.dirs.Upload); len(got) != 0 {
		t.Fatalf("uploads not cleaned: %v", got)
	}
}

func TestValidationFailuresTouchNothing(t *testing.T) {
	tests := []struct {
		name string
		req  func(t *testing.T, env *testEnv) Request
	}{
		{
			name: "merge with one input",
			req: func(t *testing.T, env *testEnv) Request {
				return Request{Operation: OpMerge, Inputs: []Asset{env.upload(t, "a.mp4", 10)}}
			},
		},
		{
			name: "watermark without image",
			req: func(t *testing.T, env *testEnv) Request {
				return Request{Operation: OpWatermark, Inputs: []Asset{env.upload(t, "a.mp4", 10)}}
			},
		},
		{
			name: "unknown quality",
			req: func(t *testing.T, env *testEnv) Request {
				return Request{Operation: OpCompress, Inputs: []Asset{env.upload(t, "a.mp4", 10)}, Quality: "ultra"}
			},
		},
		{
			name: "no input",
			req: func(*testing.T, *testEnv) Request {
				return Request{Operation: OpConvert}
			},
		},
		{
			name: "unknown operation",
			req: func(t *testing.T, env *testEnv) Request {
				return Request{Operation: "rotate", Inputs: []Asset{env.upload(t, "a.mp4", 10)}}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc := &fakeEncoder{}
			prober := &fakeProber{}
			env := newTestEnv(t, enc, prober, WithMaxMergeInputs(10))
			_, err := env.pipeline.Run(context.Background(), tt.req(t, env))
			if !errors.Is(err, services.ErrInvalidRequest) {
				t.Fatalf("expected invalid request, got %v", err)
			}
			if services.HTTPStatus(err) != http.StatusBadRequest {
				t.Fatalf("status = %d", services.HTTPStatus(err))
			}
			if len(enc.labels()) != 0 || prober.calls != 0 {
				t.Fatalf("no media work expected: encoder=%v probes=%d", enc.labels(), prober.calls)
			}
			if got := dirEntries(t, env.dirs.Upload); len(got) != 0 {
				t.Fatalf("owned uploads not removed: %v", got)
			}
		})
	}
}

func TestIrrelevantOptionsIgnored(t *testing.T) {
	tests := []struct {
		name string
		op   Operation
		req  Request
	}{
		{name: "compress", op: OpCompress, req: Request{Format: "gif", Position: "middle"}},
		{name: "convert", op: OpConvert, req: Request{Quality: "ultra", Position: "middle"}},
		{name: "watermark", op: OpWatermark, req: Request{Quality: "ultra", Format: "gif"}},
		{name: "extract audio", op: OpExtractAudio, req: Request{Quality: "ultra", Format: "gif", Position: "middle"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc := &fakeEncoder{}
			env := newTestEnv(t, enc, &fakeProber{})
			req := tt.req
			req.Operation = tt.op
			req.Inputs = []Asset{env.upload(t, "clip.mp4", 10)}
			if tt.op == OpWatermark {
				logo := env.upload(t, "logo.png", 10)
				req.Watermark = &logo
			}
			if _, err := env.pipeline.Run(context.Background(), req); err != nil {
				t.Fatalf("Run: %v", err)
			}
			if len(enc.labels()) == 0 {
				t.Fatal("expected the encoder to run")
			}
		})
	}
}

func TestMergeRejectsTooManyInputs(t *testing.T) {
	env := newTestEnv(t, &fakeEncoder{}, &fakeProber{}, WithMaxMergeInputs(2))
	var inputs []Asset
	for _, name := range []string{"a.mp4", "b.mp4", "c.mp4"} {
		inputs = append(inputs, env.upload(t, name, 10))
	}
	_, err := env.pipeline.Run(context.Background(), Request{Operation: OpMerge, Inputs: inputs})
	if !errors.Is(err, services.ErrInvalidRequest) {
		t.Fatalf("expected invalid request, got %v", err)
	}
}

func TestMergeStandardizesThenConcatenates(t *testing.T) {
	enc := &fakeEncoder{}
	prober := &fakeProber{}
	env := newTestEnv(t, enc, prober)
	var inputs []Asset
	for _, name := range []string{"portrait.mov", "small.mp4", "wide.mkv"} {
		inputs = append(inputs, env.upload(t, name, 10))
	}

	var manifest string
	enc.hook = func(cmd ffmpeg.Command) error {
		if cmd.Label == "concat" {
			data, err := os.ReadFile(cmd.Args[slices.Index(cmd.Args, "-i")+1])
			if err != nil {
				return err
			}
			manifest = string(data)
		}
		return nil
	}

	res, err := env.pipeline.Run(context.Background(), Request{JobID: "merge-1", Operation: OpMerge, Inputs: inputs})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := enc.labels(); !slices.Equal(got, []string{"standardize", "standardize", "standardize", "concat"}) {
		t.Fatalf("encoder calls = %v", got)
	}
	concat := enc.commands[3]
	if !slices.Contains(concat.Args, "copy") || concat.DurationSeconds != 30 {
		t.Fatalf("unexpected concat command %+v", concat)
	}
	if strings.Count(manifest, "file '") != 3 || !strings.Contains(manifest, "standardized-2-1700000000000-abcd1234.mp4") {
		t.Fatalf("unexpected manifest %q", manifest)
	}
	if res.OutputFile != "/output/merged-1700000000000-abcd1234.mp4" || res.Message != "Videos merged successfully" {
		t.Fatalf("unexpected result %+v", res)
	}
	if prober.calls != 3 {
		t.Fatalf("probes = %d", prober.calls)
	}
	for _, dir := range []string{env.dirs.Upload, env.dirs.Temp} {
		if got := dirEntries(t, dir); len(got) != 0 {
			t.Fatalf("%s not cleaned: %v", dir, got)
		}
	}
}

func TestMergeFailureRemovesEveryFileOnce(t *testing.T) {
	enc := &fakeEncoder{failOn: map[string]int{"standardize": 2}}
	env := newTestEnv(t, enc, &fakeProber{})
	var inputs []Asset
	for _, name := range []string{"a.mp4", "b.mp4", "c.mp4"} {
		inputs = append(inputs, env.upload(t, name, 10))
	}

	_, err := env.pipeline.Run(context.Background(), Request{JobID: "merge-2", Operation: OpMerge, Inputs: inputs})
	if !errors.Is(err, services.ErrStandardizeFailed) {
		t.Fatalf("expected standardize failure, got %v", err)
	}
	if services.StageOf(err) != "standardize" || services.MessageOf(err) != "failed to process video 2" {
		t.Fatalf("unexpected error detail %+v", services.Details(err))
	}
	for _, dir := range []string{env.dirs.Upload, env.dirs.Temp, env.dirs.Output} {
		if got := dirEntries(t, dir); len(got) != 0 {
			t.Fatalf("%s not cleaned: %v", dir, got)
		}
	}
	// three uploads plus the finished clip and the partial clip
	if len(env.removed) != 5 {
		t.Fatalf("removed %v", env.removed)
	}
	for path, n := range env.removed {
		if n != 1 {
			t.Fatalf("%s removed %d times", path, n)
		}
		if strings.Contains(path, "standardized-2-") {
			t.Fatalf("never-created clip referenced: %s", path)
		}
	}
	last := env.jobEvents(t, "merge-2")
	if final := last[len(last)-1]; final.State != events.StateFailed || final.Stage != "standardize" {
		t.Fatalf("final event = %+v", final)
	}
}

func TestMergeProbeFailure(t *testing.T) {
	enc := &fakeEncoder{}
	env := newTestEnv(t, enc, &fakeProber{fail: map[string]bool{"1700000000000-b.mp4": true}})
	inputs := []Asset{env.upload(t, "a.mp4", 10), env.upload(t, "b.mp4", 10)}
	_, err := env.pipeline.Run(context.Background(), Request{Operation: OpMerge, Inputs: inputs})
	if !errors.Is(err, services.ErrProbeFailed) {
		t.Fatalf("expected probe failure, got %v", err)
	}
	if got := enc.labels(); len(got) != 1 {
		t.Fatalf("encoder calls = %v", got)
	}
}

func TestSubtitlesBurnsGeneratedCues(t *testing.T) {
	enc := &fakeEncoder{}
	provider := &fakeProvider{utterances: []subtitles.Utterance{
		{Text: "hello world this is a test of subtitles", Start: 0, End: 4},
	}}
	env := newTestEnv(t, enc, &fakeProber{}, WithTranscriber(provider))

	var srt string
	enc.hook = func(cmd ffmpeg.Command) error {
		if cmd.Label != "burn_subtitles" {
			return nil
		}
		data, err := os.ReadFile(filepath.Join(env.dirs.Temp, "1700000000000-abcd1234.srt"))
		if err != nil {
			return err
		}
		srt = string(data)
		return nil
	}

	res, err := env.pipeline.Run(context.Background(), Request{
		Operation: OpSubtitles,
		Inputs:    []Asset{env.upload(t, "talk.mp4", 10)},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Subtitles != 2 || res.OutputFile != "/output/subtitled-1700000000000-abcd1234-talk.mp4" {
		t.Fatalf("unexpected result %+v", res)
	}
	if got := enc.labels(); !slices.Equal(got, []string{"extract_audio", "burn_subtitles"}) {
		t.Fatalf("encoder calls = %v", got)
	}
	want := "1\n00:00:00,000 --> 00:00:02,000\nhello world this is a test of\n\n2\n00:00:02,000 --> 00:00:04,000\nsubtitles\n"
	if srt != want {
		t.Fatalf("srt = %q, want %q", srt, want)
	}
	if !strings.HasSuffix(provider.audioPaths[0], "audio-1700000000000-abcd1234.wav") {
		t.Fatalf("audio path = %q", provider.audioPaths[0])
	}
	if got := dirEntries(t, env.dirs.Temp); len(got) != 0 {
		t.Fatalf("temp not cleaned: %v", got)
	}
}

func TestSubtitlesWithoutSpeechFails(t *testing.T) {
	enc := &fakeEncoder{}
	env := newTestEnv(t, enc, &fakeProber{}, WithTranscriber(&fakeProvider{
		utterances: []subtitles.Utterance{{Text: "  ", Start: 0, End: 1}},
	}))
	_, err := env.pipeline.Run(context.Background(), Request{
		Operation: OpSubtitles,
		Inputs:    []Asset{env.upload(t, "silent.mp4", 10)},
	})
	if !errors.Is(err, services.ErrTranscriptionFailed) || services.MessageOf(err) != "no speech found in audio" {
		t.Fatalf("unexpected error %v", err)
	}
	if got := enc.labels(); !slices.Equal(got, []string{"extract_audio"}) {
		t.Fatalf("encoder calls = %v", got)
	}
	for _, dir := range []string{env.dirs.Upload, env.dirs.Temp, env.dirs.Output} {
		if got := dirEntries(t, dir); len(got) != 0 {
			t.Fatalf("%s not cleaned: %v", dir, got)
		}
	}
}

func TestSubtitlesProviderErrors(t *testing.T) {
	t.Run("missing provider", func(t *testing.T) {
		env := newTestEnv(t, &fakeEncoder{}, &fakeProber{})
		_, err := env.pipeline.Run(context.Background(), Request{
			Operation: OpSubtitles,
			Inputs:    []Asset{env.upload(t, "talk.mp4", 10)},
		})
		if !errors.Is(err, services.ErrTranscriptionFailed) {
			t.Fatalf("expected transcription failure, got %v", err)
		}
	})
	t.Run("provider failure", func(t *testing.T) {
		provider := &fakeProvider{err: errors.New("429 rate limited")}
		env := newTestEnv(t, &fakeEncoder{}, &fakeProber{}, WithTranscriber(provider))
		_, err := env.pipeline.Run(context.Background(), Request{
			Operation: OpSubtitles,
			Inputs:    []Asset{env.upload(t, "talk.mp4", 10)},
		})
		if !errors.Is(err, services.ErrTranscriptionFailed) || services.StageOf(err) != "transcribe" {
			t.Fatalf("unexpected error %v", err)
		}
		if !strings.Contains(err.Error(), "429 rate limited") {
			t.Fatalf("provider cause lost: %v", err)
		}
	})
}

func TestCancellationSurfacesAsTransformFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	enc := &fakeEncoder{hook: func(ffmpeg.Command) error {
		cancel()
		return ctx.Err()
	}}
	env := newTestEnv(t, enc, &fakeProber{})
	_, err := env.pipeline.Run(ctx, Request{
		Operation: OpCompress,
		Inputs:    []Asset{env.upload(t, "clip.mp4", 10)},
	})
	if !errors.Is(err, services.ErrTransformFailed) || !errors.Is(err, context.Canceled) {
		t.Fatalf("unexpected error %v", err)
	}
	if services.MessageOf(err) != "job cancelled" {
		t.Fatalf("message = %q", services.MessageOf(err))
	}
	if got := dirEntries(t, env.dirs.Upload); len(got) != 0 {
		t.Fatalf("uploads not cleaned: %v", got)
	}
}

func TestUnownedInputsSurvive(t *testing.T) {
	env := newTestEnv(t, &fakeEncoder{}, &fakeProber{})
	input := env.upload(t, "local.mp4", 10)
	input.Owned = false
	if _, err := env.pipeline.Run(context.Background(), Request{Operation: OpConvert, Inputs: []Asset{input}}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := os.Stat(input.Path); err != nil {
		t.Fatalf("unowned input removed: %v", err)
	}
}

func TestNewCreatesDirectories(t *testing.T) {
	env := newTestEnv(t, &fakeEncoder{}, &fakeProber{})
	for _, dir := range []string{env.dirs.Upload, env.dirs.Temp, env.dirs.Output} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("%s not created: %v", dir, err)
		}
	}
	if err := EnsureDirectory(env.dirs.Temp); err != nil {
		t.Fatalf("EnsureDirectory should be idempotent: %v", err)
	}
	if err := EnsureDirectory(" "); err == nil {
		t.Fatal("expected error for blank directory")
	}
}
