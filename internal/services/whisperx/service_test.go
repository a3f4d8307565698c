package whisperx

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func TestBuildArgsCPU(t *testing.T) {
	svc := NewService(Config{})
	args := svc.buildArgs("/tmp/a.wav", "/tmp/out", "fre")

	if args[0] != "--index-url" || args[1] != pypiIndexURL {
		t.Fatalf("unexpected index args %v", args[:2])
	}
	for _, want := range [][]string{
		{"--model", DefaultModel},
		{"--vad_method", VADMethodSilero},
		{"--language", "fr"},
		{"--device", "cpu"},
		{"--compute_type", "float32"},
		{"--output_format", "json"},
		{"--batch_size", "4"},
		{"--vad_onset", "0.08"},
		{"--temperature", "0.0"},
	} {
		idx := slices.Index(args, want[0])
		if idx < 0 || idx+1 >= len(args) || args[idx+1] != want[1] {
			t.Fatalf("expected %s %s in %v", want[0], want[1], args)
		}
	}
	if slices.Contains(args, "--hf_token") {
		t.Fatal("silero run should not pass a hf token")
	}
}

func TestBuildArgsCUDAPyannote(t *testing.T) {
	svc := NewService(Config{Model: "medium", CUDAEnabled: true, VADMethod: VADMethodPyannote, HFToken: "hf_x"})
	args := svc.buildArgs("/tmp/a.wav", "/tmp/out", "")

	if !slices.Contains(args, cudaIndexURL) || !slices.Contains(args, "cuda") {
		t.Fatalf("expected cuda args, got %v", args)
	}
	if idx := slices.Index(args, "--hf_token"); idx < 0 || args[idx+1] != "hf_x" {
		t.Fatalf("expected hf token, got %v", args)
	}
	if slices.Contains(args, "--language") {
		t.Fatal("blank language should not be forwarded")
	}
	if svc.Model() != "medium" {
		t.Fatalf("unexpected model %q", svc.Model())
	}
}

func TestBuildArgsTuningOverrides(t *testing.T) {
	svc := NewService(Config{Tuning: Tuning{BeamSize: 1, VADOnset: 0.2}})
	args := svc.buildArgs("/tmp/a.wav", "/tmp/out", "")
	for _, want := range [][]string{
		{"--beam_size", "1"},
		{"--vad_onset", "0.2"},
		{"--chunk_size", "15"},
	} {
		idx := slices.Index(args, want[0])
		if idx < 0 || args[idx+1] != want[1] {
			t.Fatalf("expected %s %s in %v", want[0], want[1], args)
		}
	}
}

func TestTranscribeFileReadsSegments(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "audio-1.wav")

	var gotName string
	svc := NewService(Config{UVXBinary: "/opt/uvx"}, WithRunner(func(_ context.Context, name string, args ...string) ([]byte, error) {
		gotName = name
		body := `{"segments":[{"text":" hello there ","start":0.5,"end":2.25},{"text":"again","start":3,"end":4}]}`
		return nil, os.WriteFile(JSONPath(source, dir), []byte(body), 0o644)
	}))

	segments, err := svc.TranscribeFile(context.Background(), source, dir, "en")
	if err != nil {
		t.Fatalf("TranscribeFile: %v", err)
	}
	if gotName != "/opt/uvx" {
		t.Fatalf("expected configured uvx binary, got %q", gotName)
	}
	if len(segments) != 2 || segments[0].Start != 0.5 || segments[1].Text != "again" {
		t.Fatalf("unexpected segments %+v", segments)
	}
}

func TestTranscribeFilePropagatesRunnerError(t *testing.T) {
	svc := NewService(Config{}, WithRunner(func(context.Context, string, ...string) ([]byte, error) {
		return []byte("CUDA out of memory"), errors.New("exit status 1")
	}))
	_, err := svc.TranscribeFile(context.Background(), filepath.Join(t.TempDir(), "a.wav"), "", "")
	if err == nil || !strings.Contains(err.Error(), "CUDA out of memory") {
		t.Fatalf("expected runner output in error, got %v", err)
	}
	if _, err := svc.TranscribeFile(context.Background(), "", "", ""); err == nil {
		t.Fatal("expected error for empty source")
	}
}
