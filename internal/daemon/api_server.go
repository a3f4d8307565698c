package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"

	"vidtools/internal/api"
	"vidtools/internal/config"
	"vidtools/internal/logging"
	"vidtools/internal/pipeline"
)

const defaultJobListLimit = 50

type apiServer struct {
	bind     string
	cfg      *config.Config
	logger   *slog.Logger
	daemon   *Daemon
	handler  http.Handler
	upgrader websocket.Upgrader

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	bind := strings.TrimSpace(cfg.Server.APIBind)
	if bind == "" {
		return nil, errors.New("server.api_bind is required")
	}
	srv := &apiServer{
		bind:   bind,
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
	}
	srv.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     srv.originAllowed,
	}
	srv.handler = srv.routes()
	return srv, nil
}

func (s *apiServer) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/api/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware(s.cfg.Server.APIToken))

		r.Post("/api/compress", s.handleOperation(pipeline.OpCompress))
		r.Post("/api/extract-mp3", s.handleOperation(pipeline.OpExtractAudio))
		r.Post("/api/watermark", s.handleOperation(pipeline.OpWatermark))
		r.Post("/api/merge", s.handleOperation(pipeline.OpMerge))
		r.Post("/api/formatconversion", s.handleOperation(pipeline.OpConvert))
		r.Post("/api/generatesubtitles", s.handleOperation(pipeline.OpSubtitles))

		r.Get("/api/status", s.handleStatus)
		r.Get("/api/options", s.handleOptions)
		r.Get("/api/jobs", s.handleJobs)
		r.Get("/api/jobs/{id}", s.handleJob)
		r.Get("/api/jobs/{id}/events", s.handleJobEvents)

		r.Get("/output/{name}", s.handleOutput)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	server := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	s.mu.Lock()
	s.listener = listener
	s.server = server
	s.mu.Unlock()

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop(timeout time.Duration) {
	s.mu.Lock()
	server := s.server
	s.server = nil
	s.listener = nil
	s.mu.Unlock()
	if server == nil {
		return
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.WarnWithContext(s.logger, "api server shutdown incomplete", "shutdown_timeout",
			logging.Error(err),
			logging.String(logging.FieldImpact, "in-flight jobs were interrupted"),
		)
		_ = server.Close()
	}
}

// Addr returns the bound address, or the configured bind before start.
func (s *apiServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.bind
}

func (s *apiServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, api.HealthResponse{OK: true})
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.daemon.Status(r.Context())
	counts := make(map[string]int, len(status.JobCounts))
	for state, n := range status.JobCounts {
		counts[string(state)] = n
	}
	payload := api.Status{
		Running:      status.Running,
		PID:          status.PID,
		Version:      status.Version,
		StartedAt:    api.FormatTime(status.StartedAt),
		Provider:     status.Provider,
		LockFilePath: status.LockFilePath,
		JobsDatabase: status.JobsDatabase,
		JobCounts:    counts,
		Checks:       api.FromChecks(status.Checks),
		Dependencies: api.FromDependencies(status.Dependencies),
	}
	if sweep := status.LastSweep; sweep != nil {
		payload.LastSweep = &api.SweepSummary{
			FinishedAt:   api.FormatTime(sweep.FinishedAt),
			FilesRemoved: len(sweep.Removed),
			Failures:     sweep.Failures,
			JobsPruned:   sweep.JobsPruned,
			LogsPruned:   sweep.LogsPruned,
		}
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *apiServer) handleOptions(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, api.OptionsResponse{
		Qualities:      api.FromPresets(pipeline.QualityPresets()),
		Formats:        pipeline.FormatNames(),
		Positions:      pipeline.PositionNames(),
		DefaultQuality: pipeline.DefaultQuality,
		DefaultFormat:  pipeline.DefaultFormat,
		MaxMergeInputs: s.cfg.Server.MaxMergeInputs,
		MaxUploadMB:    s.cfg.Server.MaxUploadMB,
	})
}

func (s *apiServer) handleJobs(w http.ResponseWriter, r *http.Request) {
	limit := defaultJobListLimit
	if value := strings.TrimSpace(r.URL.Query().Get("limit")); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	jobs, err := s.daemon.store.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.JobListResponse{Jobs: api.FromJobs(jobs)})
}

func (s *apiServer) handleJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, err := s.daemon.store.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if job == nil {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	s.writeJSON(w, http.StatusOK, api.JobResponse{Job: api.FromJob(*job)})
}

func (s *apiServer) originAllowed(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.cfg.Server.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Success: false, Error: message})
}
