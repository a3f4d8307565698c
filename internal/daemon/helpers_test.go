package daemon_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"vidtools/internal/config"
	"vidtools/internal/daemon"
	"vidtools/internal/events"
	"vidtools/internal/jobstore"
	"vidtools/internal/media/ffmpeg"
	"vidtools/internal/media/ffprobe"
	"vidtools/internal/pipeline"
	"vidtools/internal/testsupport"
)

func testConfig(t *testing.T, opts ...testsupport.ConfigOption) *config.Config {
	t.Helper()
	return testsupport.NewConfig(t, opts...)
}

type writeEncoder struct{}

func (writeEncoder) Run(_ context.Context, cmd ffmpeg.Command) error {
	return os.WriteFile(cmd.Args[len(cmd.Args)-1], []byte("encoded"), 0o644)
}

type staticProber struct{}

func (staticProber) Inspect(context.Context, string) (ffprobe.Result, error) {
	return ffprobe.Result{
		Streams: []ffprobe.Stream{{CodecType: "video", Width: 1280, Height: 720}},
		Format:  ffprobe.Format{Duration: "5.0", Size: "100", FormatName: "mov,mp4"},
	}, nil
}

type recordingRunner struct {
	mu    sync.Mutex
	reqs  []pipeline.Request
	run   func(pipeline.Request) (pipeline.Result, error)
	calls int
}

func (r *recordingRunner) Run(_ context.Context, req pipeline.Request) (pipeline.Result, error) {
	r.mu.Lock()
	r.reqs = append(r.reqs, req)
	r.calls++
	r.mu.Unlock()
	if r.run != nil {
		return r.run(req)
	}
	return pipeline.Result{}, errors.New("not implemented")
}

type harness struct {
	cfg    *config.Config
	store  *jobstore.Store
	hub    *events.Hub
	daemon *daemon.Daemon
	server *httptest.Server
}

// newHarness serves the daemon handler; a nil runner selects a real pipeline
// backed by a file-writing encoder.
func newHarness(t *testing.T, cfg *config.Config, runner daemon.JobRunner) *harness {
	t.Helper()
	store := testsupport.MustOpenStore(t)
	hub := testsupport.NewHub(store)
	if runner == nil {
		p, err := pipeline.New(pipeline.Dirs{
			Upload: cfg.Paths.UploadDir,
			Temp:   cfg.Paths.TempDir,
			Output: cfg.Paths.OutputDir,
		}, writeEncoder{}, staticProber{}, pipeline.WithEvents(hub), pipeline.WithMaxMergeInputs(cfg.Server.MaxMergeInputs))
		if err != nil {
			t.Fatalf("pipeline.New: %v", err)
		}
		runner = p
	}
	d, err := daemon.New(cfg, store, hub, runner, nil, daemon.WithVersion("test"))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	srv := httptest.NewServer(d.Handler())
	t.Cleanup(func() {
		srv.Close()
		_ = d.Close()
	})
	return &harness{cfg: cfg, store: store, hub: hub, daemon: d, server: srv}
}

type upload struct {
	field string
	name  string
	data  string
}

func multipartRequest(t *testing.T, url string, fields map[string]string, files ...upload) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for key, value := range fields {
		if err := mw.WriteField(key, value); err != nil {
			t.Fatal(err)
		}
	}
	for _, f := range files {
		part, err := mw.CreateFormFile(f.field, f.name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := io.WriteString(part, f.data); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	req, err := http.NewRequest(http.MethodPost, url, &body)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	var names []string
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}
