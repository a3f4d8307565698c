package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"vidtools/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The upload, temp and output directories exist on return.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.UploadDir = filepath.Join(base, "uploads")
	cfgVal.Paths.TempDir = filepath.Join(base, "temp")
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Server.APIBind = "127.0.0.1:0"
	cfgVal.Server.ShutdownTimeoutSec = 2

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithAPIToken requires bearer authentication on the test server.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Server.APIToken = token
	}
}

// WithMaxMergeInputs overrides server.max_merge_inputs.
func WithMaxMergeInputs(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Server.MaxMergeInputs = n
	}
}

const ffmpegStub = `#!/bin/sh
for last; do :; done
case "$last" in
-*) echo "ffmpeg version stub"; exit 0 ;;
esac
printf 'encoded' > "$last"
printf 'out_time_us=5000000\nprogress=end\n'
`

const ffprobeStub = `#!/bin/sh
cat <<'JSON'
{"streams":[{"index":0,"codec_type":"video","codec_name":"h264","width":1280,"height":720},{"index":1,"codec_type":"audio","codec_name":"aac"}],"format":{"filename":"stub","nb_streams":2,"duration":"5.000000","size":"100","bit_rate":"160","format_name":"mov,mp4,m4a,3gp,3g2,mj2"}}
JSON
`

// WithStubbedMedia writes ffmpeg and ffprobe stand-ins and points the config
// at them. The ffmpeg stub writes "encoded" to its last argument; the
// ffprobe stub reports a 5 second 1280x720 clip with audio.
func WithStubbedMedia() ConfigOption {
	return func(b *configBuilder) {
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		stubs := map[string]string{"ffmpeg": ffmpegStub, "ffprobe": ffprobeStub}
		for name, script := range stubs {
			if err := os.WriteFile(filepath.Join(binDir, name), []byte(script), 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}
		b.cfg.Media.FFmpegBinary = filepath.Join(binDir, "ffmpeg")
		b.cfg.Media.FFprobeBinary = filepath.Join(binDir, "ffprobe")
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.UploadDir)
}
