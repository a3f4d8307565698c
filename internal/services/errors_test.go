package services_test

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"vidtools/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrStandardizeFailed, "standardize", "ffmpeg", "encode clip 2", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrStandardizeFailed) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"standardize", "ffmpeg", "encode clip 2", "boom"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
	if stage := services.StageOf(err); stage != "standardize" {
		t.Fatalf("StageOf = %q", stage)
	}
	if got := services.MessageOf(err); got != "encode clip 2" {
		t.Fatalf("MessageOf = %q", got)
	}
}

func TestWrapWithoutCause(t *testing.T) {
	err := services.Wrap(services.ErrInvalidRequest, "validate", "", "merge needs at least 2 videos", nil)
	if got := err.Error(); got != "invalid request: validate: merge needs at least 2 videos" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestWrapNilMarkerDefaultsToTransform(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransformFailed) {
		t.Fatalf("expected transform marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected placeholder detail, got %q", err.Error())
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"invalid", services.Wrap(services.ErrInvalidRequest, "validate", "", "bad", nil), http.StatusBadRequest},
		{"not found", services.Wrap(services.ErrNotFound, "output", "", "missing", nil), http.StatusNotFound},
		{"probe", services.Wrap(services.ErrProbeFailed, "probe", "", "", errors.New("x")), http.StatusInternalServerError},
		{"transcription", services.Wrap(services.ErrTranscriptionFailed, "transcribe", "", "", nil), http.StatusInternalServerError},
		{"plain", errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := services.HTTPStatus(tc.err); got != tc.want {
			t.Fatalf("%s: status = %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestKindNamesMarker(t *testing.T) {
	err := services.Wrap(services.ErrTranscriptionFailed, "transcribe", "openai", "", errors.New("401"))
	if got := services.Kind(err); got != "transcription failed" {
		t.Fatalf("Kind = %q", got)
	}
	if got := services.Kind(errors.New("other")); got != "" {
		t.Fatalf("expected empty kind, got %q", got)
	}
}

func TestDetailsClassifiesWrappedError(t *testing.T) {
	err := services.Wrap(services.ErrStandardizeFailed, "standardize", "merge", "failed to process video 2", errors.New("exit status 1"))
	d := services.Details(err)
	if d.Status != 500 || d.Kind != "standardize failed" || d.Stage != "standardize" || d.Message != "failed to process video 2" {
		t.Fatalf("unexpected detail %+v", d)
	}
	plain := services.Details(errors.New("boom"))
	if plain.Status != 500 || plain.Kind != "" || plain.Message != "boom" {
		t.Fatalf("unexpected plain detail %+v", plain)
	}
}
