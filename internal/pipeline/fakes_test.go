package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"vidtools/internal/events"
	"vidtools/internal/media/ffmpeg"
	"vidtools/internal/media/ffprobe"
	"vidtools/internal/subtitles"
)

type fakeEncoder struct {
	mu       sync.Mutex
	commands []ffmpeg.Command
	failOn   map[string]int // label -> 1-based call that fails
	calls    map[string]int
	size     int
	hook     func(cmd ffmpeg.Command) error
}

func (f *fakeEncoder) Run(ctx context.Context, cmd ffmpeg.Command) error {
	f.mu.Lock()
	f.commands = append(f.commands, cmd)
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[cmd.Label]++
	n := f.calls[cmd.Label]
	f.mu.Unlock()

	output := cmd.Args[len(cmd.Args)-1]
	if f.hook != nil {
		if err := f.hook(cmd); err != nil {
			return err
		}
	}
	if fail, ok := f.failOn[cmd.Label]; ok && fail == n {
		_ = os.WriteFile(output, []byte("partial"), 0o644)
		return &ffmpeg.Error{Label: cmd.Label, Err: errors.New("exit status 1"), Stderr: "Invalid data found"}
	}
	size := f.size
	if size == 0 {
		size = 16
	}
	if err := os.WriteFile(output, make([]byte, size), 0o644); err != nil {
		return err
	}
	if cmd.Progress != nil {
		cmd.Progress(ffmpeg.Progress{Percent: 50})
		cmd.Progress(ffmpeg.Progress{Percent: 50.4})
		cmd.Progress(ffmpeg.Progress{Percent: 100, Done: true})
	}
	return nil
}

func (f *fakeEncoder) labels() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.commands))
	for _, cmd := range f.commands {
		out = append(out, cmd.Label)
	}
	return out
}

type fakeProber struct {
	duration string
	fail     map[string]bool
	calls    int
}

func (f *fakeProber) Inspect(_ context.Context, path string) (ffprobe.Result, error) {
	f.calls++
	if f.fail[filepath.Base(path)] {
		return ffprobe.Result{}, errors.New("invalid data found when processing input")
	}
	duration := f.duration
	if duration == "" {
		duration = "10.0"
	}
	return ffprobe.Result{
		Streams: []ffprobe.Stream{{CodecType: "video", Width: 1280, Height: 720}},
		Format:  ffprobe.Format{Duration: duration, Size: "1000", FormatName: "mov,mp4,m4a"},
	}, nil
}

type fakeProvider struct {
	utterances []subtitles.Utterance
	err        error
	audioPaths []string
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Transcribe(_ context.Context, audioPath string) ([]subtitles.Utterance, error) {
	f.audioPaths = append(f.audioPaths, audioPath)
	if _, err := os.Stat(audioPath); err != nil {
		return nil, err
	}
	return f.utterances, f.err
}

type testEnv struct {
	pipeline *Pipeline
	dirs     Dirs
	hub      *events.Hub
	removed  map[string]int
	mu       sync.Mutex
}

func newTestEnv(t *testing.T, enc Encoder, prober Prober, opts ...Option) *testEnv {
	t.Helper()
	root := t.TempDir()
	env := &testEnv{
		dirs: Dirs{
			Upload: filepath.Join(root, "uploads"),
			Temp:   filepath.Join(root, "temp"),
			Output: filepath.Join(root, "output"),
		},
		hub:     events.NewHub(0),
		removed: make(map[string]int),
	}
	base := []Option{
		WithEvents(env.hub),
		WithClock(func() time.Time { return time.UnixMilli(1700000000000) }),
		WithTokenSource(func() string { return "abcd1234" }),
		WithRemove(func(path string) error {
			env.mu.Lock()
			env.removed[path]++
			env.mu.Unlock()
			return os.Remove(path)
		}),
	}
	p, err := New(env.dirs, enc, prober, append(base, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	env.pipeline = p
	return env
}

// upload writes an owned input file into the upload directory.
func (e *testEnv) upload(t *testing.T, name string, size int) Asset {
	t.Helper()
	path := filepath.Join(e.dirs.Upload, "1700000000000-"+name)
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatalf("write upload: %v", err)
	}
	return Asset{Path: path, Name: name, Owned: true}
}

func (e *testEnv) jobEvents(t *testing.T, jobID string) []events.Event {
	t.Helper()
	evts, _, err := e.hub.Fetch(context.Background(), jobID, 0, 0, false)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	return evts
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir %s: %v", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}
