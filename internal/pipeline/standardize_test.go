package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"vidtools/internal/services"
)

func TestStandardizeArgsIndependentOfInput(t *testing.T) {
	a := StandardizeArgs("/in/portrait.mov", "/out/x.mp4")
	b := StandardizeArgs("/in/standardized-0.mp4", "/out/y.mp4")
	if len(a) != len(b) {
		t.Fatalf("argument counts differ: %d vs %d", len(a), len(b))
	}
	for i := 2; i < len(a)-1; i++ {
		if a[i] != b[i] {
			t.Fatalf("arg %d differs: %q vs %q", i, a[i], b[i])
		}
	}
	for _, want := range []string{"libx264", "yuv420p", "aac", "+faststart"} {
		if !slices.Contains(a, want) {
			t.Fatalf("missing %q in %v", want, a)
		}
	}
	idx := slices.Index(a, "-vf")
	if idx < 0 || a[idx+1] != "scale=1920:1080:force_original_aspect_ratio=decrease,pad=1920:1080:-1:-1:color=black" {
		t.Fatalf("unexpected video filter in %v", a)
	}
}

func TestStandardizeRemovesPartialOutput(t *testing.T) {
	enc := &fakeEncoder{failOn: map[string]int{"standardize": 1}}
	env := newTestEnv(t, enc, &fakeProber{})
	src := env.upload(t, "clip.mp4", 10)
	dst := filepath.Join(env.dirs.Temp, "standardized.mp4")

	err := env.pipeline.Standardize(context.Background(), src.Path, dst)
	if !errors.Is(err, services.ErrStandardizeFailed) {
		t.Fatalf("expected standardize failure, got %v", err)
	}
	if _, statErr := os.Stat(dst); !os.IsNotExist(statErr) {
		t.Fatalf("partial output still present: %v", statErr)
	}
	if _, statErr := os.Stat(src.Path); statErr != nil {
		t.Fatalf("source should be untouched: %v", statErr)
	}
}

func TestStandardizeProbeFailure(t *testing.T) {
	enc := &fakeEncoder{}
	env := newTestEnv(t, enc, &fakeProber{fail: map[string]bool{"1700000000000-bad.mp4": true}})
	src := env.upload(t, "bad.mp4", 10)

	err := env.pipeline.Standardize(context.Background(), src.Path, filepath.Join(env.dirs.Temp, "out.mp4"))
	if !errors.Is(err, services.ErrProbeFailed) {
		t.Fatalf("expected probe failure, got %v", err)
	}
	if len(enc.labels()) != 0 {
		t.Fatalf("encoder should not run after probe failure: %v", enc.labels())
	}
}

func TestStandardizeProbeFailureKeepsExistingOutput(t *testing.T) {
	enc := &fakeEncoder{}
	env := newTestEnv(t, enc, &fakeProber{fail: map[string]bool{"1700000000000-bad.mp4": true}})
	src := env.upload(t, "bad.mp4", 10)
	dst := filepath.Join(env.dirs.Temp, "existing.mp4")
	if err := os.WriteFile(dst, []byte("keep me"), 0o644); err != nil {
		t.Fatalf("write existing output: %v", err)
	}

	err := env.pipeline.Standardize(context.Background(), src.Path, dst)
	if !errors.Is(err, services.ErrProbeFailed) {
		t.Fatalf("expected probe failure, got %v", err)
	}
	data, readErr := os.ReadFile(dst)
	if readErr != nil {
		t.Fatalf("existing output removed: %v", readErr)
	}
	if string(data) != "keep me" {
		t.Fatalf("existing output modified: %q", data)
	}
}
