package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vidtools/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	result := CheckDirectoryAccess("test", t.TempDir())
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
	if !strings.Contains(result.Detail, "free") {
		t.Fatalf("expected free space in detail, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckDirectoryAccess("test", f); result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.UploadDir = filepath.Join(base, "uploads")
	cfg.Paths.TempDir = filepath.Join(base, "temp")
	cfg.Paths.OutputDir = filepath.Join(base, "output")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	return &cfg
}

func TestRunAllReportsMissingKey(t *testing.T) {
	cfg := testConfig(t)
	results := RunAll(context.Background(), cfg)
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	for _, r := range results[:3] {
		if !r.Passed {
			t.Fatalf("expected directory check to pass: %+v", r)
		}
	}
	if results[3].Passed {
		t.Fatalf("expected transcription check to fail without key: %+v", results[3])
	}

	cfg.Transcription.OpenAIAPIKey = "sk-test"
	results = RunAll(context.Background(), cfg)
	if !results[3].Passed {
		t.Fatalf("expected transcription check to pass: %+v", results[3])
	}
}

func TestCheckSystemDepsAddsUVXForWhisperX(t *testing.T) {
	cfg := testConfig(t)
	if got := len(CheckSystemDeps(context.Background(), cfg)); got != 2 {
		t.Fatalf("expected 2 requirements, got %d", got)
	}
	cfg.Transcription.Provider = config.ProviderWhisperX
	statuses := CheckSystemDeps(context.Background(), cfg)
	if len(statuses) != 3 || statuses[2].Name != "uvx" {
		t.Fatalf("expected uvx requirement, got %+v", statuses)
	}
}

func TestCheckTranscriptionAPI_OpenAI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/models" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Header.Get("Authorization") != "Bearer good-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := testConfig(t)
	cfg.Transcription.OpenAIBaseURL = srv.URL
	cfg.Transcription.OpenAIAPIKey = "good-key"
	if result := CheckTranscriptionAPI(context.Background(), cfg); !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}

	cfg.Transcription.OpenAIAPIKey = "bad-key"
	result := CheckTranscriptionAPI(context.Background(), cfg)
	if result.Passed || result.Detail != "auth failed (invalid api key)" {
		t.Fatalf("expected auth failure, got %+v", result)
	}
}

func TestCheckTranscriptionAPI_AssemblyAIMissingKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.Transcription.Provider = config.ProviderAssemblyAI
	result := CheckTranscriptionAPI(context.Background(), cfg)
	if result.Passed || result.Detail != "missing api key" {
		t.Fatalf("expected missing key, got %+v", result)
	}
}

func TestCheckTranscriptionAPI_WhisperXSkipped(t *testing.T) {
	cfg := testConfig(t)
	cfg.Transcription.Provider = config.ProviderWhisperX
	if result := CheckTranscriptionAPI(context.Background(), cfg); !result.Passed {
		t.Fatalf("expected local provider to pass, got %+v", result)
	}
}
