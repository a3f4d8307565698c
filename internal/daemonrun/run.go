package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"vidtools/internal/config"
	"vidtools/internal/daemon"
	"vidtools/internal/deps"
	"vidtools/internal/events"
	"vidtools/internal/jobstore"
	"vidtools/internal/logging"
	"vidtools/internal/pipeline"
	"vidtools/internal/preflight"
	"vidtools/internal/transcription"
)

// eventHistory is how many job events the hub keeps for websocket replay.
const eventHistory = 4096

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	Version     string
}

// Run starts the vidtools HTTP daemon and blocks until the context ends or
// SIGINT/SIGTERM arrives.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger, err := logging.NewFromConfig(cfg, opts.LogLevel, opts.Development)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	logDependencySnapshot(signalCtx, logger, cfg)
	pidPath := filepath.Join(cfg.Paths.TempDir, "vidtools.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := jobstore.Open(cfg.Jobs.Database, logger)
	if err != nil {
		logger.Error("open job store", logging.Error(err))
		return err
	}

	hub := events.NewHub(eventHistory)
	hub.AddSink(store)

	provider, err := transcription.New(cfg, logger)
	if err != nil {
		logging.WarnWithContext(logger, "transcription unavailable", "transcription_unavailable",
			logging.String("provider", cfg.Transcription.Provider),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "set the provider API key in config.toml or .env"),
			logging.String(logging.FieldImpact, "subtitle generation requests will fail"),
		)
		provider = transcription.Unavailable(cfg.Transcription.Provider, err)
	}

	runner, err := pipeline.NewFromConfig(cfg, hub, provider, logger)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("create pipeline: %w", err)
	}

	d, err := daemon.New(cfg, store, hub, runner, logger,
		daemon.WithVersion(opts.Version),
		daemon.WithProviderName(provider.Name()),
	)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check server.api_bind and that no other vidtools instance is running"),
		)
		return err
	}

	<-signalCtx.Done()
	logger.Info("vidtools daemon shutting down")
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	attrs := []any{
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.String("transcription_provider", cfg.Transcription.Provider),
		logging.Bool("transcription_ready", cfg.TranscriptionReady() == nil),
	}
	statuses := preflight.CheckSystemDeps(ctx, cfg)
	for _, status := range statuses {
		key := strings.ToLower(status.Name)
		attrs = append(attrs,
			logging.Bool(key+"_available", status.Available),
			logging.String(key+"_binary", status.Command),
		)
	}
	logger.Info("dependency snapshot", attrs...)
	for _, missing := range deps.Missing(statuses) {
		logging.WarnWithContext(logger, "required binary missing", "dependency_missing",
			logging.String("dependency", missing.Name),
			logging.String("detail", missing.Detail),
			logging.String(logging.FieldErrorHint, "install it or set its path under [media] in config.toml"),
			logging.String(logging.FieldImpact, "media operations will fail until it is available"),
		)
	}
}
