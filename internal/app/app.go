// Package app wires the HTTP server, the enrichment pipeline and their
// dependencies from a Config.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"intakeflow/internal/clients/anthropic"
	"intakeflow/internal/clients/gcpspeech"
	"intakeflow/internal/clients/openai"
	"intakeflow/internal/config"
	"intakeflow/internal/database"
	"intakeflow/internal/domain/enrichment"
	"intakeflow/internal/domain/file"
	"intakeflow/internal/domain/intake"
	"intakeflow/internal/domain/pipeline"
	"intakeflow/internal/ingest"
	"intakeflow/internal/middleware"
	"intakeflow/internal/pkg/apperr"
	"intakeflow/internal/pkg/jwt"
	"intakeflow/internal/pkg/logger"
	"intakeflow/internal/pkg/response"
	"intakeflow/internal/realtime"
	"intakeflow/internal/storage"
)

const tokenTTL = 24 * time.Hour

type App struct {
	Config    *config.Config
	Log       *logger.Logger
	DB        *gorm.DB
	Store     storage.Store
	Tokens    *jwt.Service
	Hub       *realtime.Hub
	Mode      *pipeline.ModeSwitch
	Runner    *pipeline.Runner
	Scheduler *pipeline.Scheduler

	Files   file.Repository
	Results enrichment.Repository
	Intakes *intake.Service

	fileService *file.Service
	closers     []func() error
}

// New connects the database and storage and builds every service. The
// database is not migrated; callers run database.Migrate when they own the
// schema.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	db, err := database.Connect(cfg.DatabaseURL, log)
	if err != nil {
		return nil, err
	}
	store, err := storage.New(ctx, cfg.Storage, log)
	if err != nil {
		return nil, err
	}
	return Assemble(ctx, cfg, log, db, store), nil
}

// Assemble builds the services on top of an open database and store.
func Assemble(ctx context.Context, cfg *config.Config, log *logger.Logger, db *gorm.DB, store storage.Store) *App {
	a := &App{
		Config: cfg,
		Log:    log,
		DB:     db,
		Store:  store,
		Tokens: jwt.New(cfg.Auth.JWTSecret, tokenTTL),
		Hub:    realtime.NewHub(log),
		Mode:   pipeline.NewModeSwitch(cfg.Pipeline.MockAudio),
	}

	a.Files = file.NewRepository(db)
	a.Results = enrichment.NewRepository(db)
	a.Intakes = intake.NewService(intake.NewRepository(db), a.Files, a.Results, log)

	transcriber := a.transcriber(ctx)
	analyzer := anthropic.NewClaude(anthropic.Config{
		APIKey:  cfg.Providers.AnthropicKey,
		BaseURL: cfg.Providers.AnthropicBaseURL,
		Model:   cfg.Providers.ClaudeModel,
		Timeout: cfg.Providers.Timeout,
	}, log)
	if !analyzer.Configured() {
		log.Warn("ANTHROPIC_API_KEY not set, live analysis will fail")
	}

	a.Runner = pipeline.NewRunner(pipeline.Deps{
		Files:       a.Files,
		Store:       store,
		Results:     a.Results,
		Transcriber: transcriber,
		Analyzer:    analyzer,
		Projector:   a.Intakes,
		Notifier:    a.Hub,
		Mode:        a.Mode,
	}, log)
	a.Scheduler = pipeline.NewScheduler(a.Runner, cfg.Pipeline.Concurrency, log)
	a.fileService = file.NewService(a.Files, store, a.Scheduler, cfg.ThumbnailCacheSize, log)
	return a
}

func (a *App) transcriber(ctx context.Context) pipeline.Transcriber {
	p := a.Config.Providers
	if p.TranscribeProvider == "gcp" {
		t, err := gcpspeech.New(ctx, p.SpeechLanguage, p.Timeout, a.Log)
		if err != nil {
			a.Log.Warn("GCP speech unavailable, live transcription will fail", "error", err)
			return gcpspeech.Unconfigured(p.SpeechLanguage, a.Log)
		}
		a.closers = append(a.closers, t.Close)
		return t
	}

	w := openai.NewWhisper(openai.Config{
		APIKey:  p.OpenAIKey,
		BaseURL: p.OpenAIBaseURL,
		Model:   p.WhisperModel,
		Timeout: p.Timeout,
	}, a.Log)
	if !w.Configured() {
		a.Log.Warn("OPENAI_API_KEY not set, live transcription will fail")
	}
	return w
}

// Router builds the gin engine with every route mounted.
func (a *App) Router() *gin.Engine {
	cfg := a.Config
	exposeErrors := !cfg.IsProduction()

	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.RequestLogger(a.Log),
		middleware.ErrorLogger(a.Log, exposeErrors),
		middleware.CORS(cfg.CORSAllowedOrigins),
		middleware.Metrics(),
	)

	r.GET("/healthz", a.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	realtime.RegisterRoutes(r, realtime.NewHandler(a.Hub, a.Results, a.Tokens, cfg.Auth.Required, cfg.CORSAllowedOrigins))

	gateway := ingest.NewGateway(ingest.Options{
		MaxFileSize:      cfg.Upload.MaxFileSize,
		AllowedMimeTypes: file.AllowedMimeTypes,
		TempDir:          cfg.Upload.TempDir,
		TruncMinDeclared: cfg.Upload.TruncMinBytes,
		TruncMaxReceived: cfg.Upload.TruncMaxBytes,
	}, a.Log)

	v1 := r.Group("/api/v1")
	v1.Use(middleware.Actor(a.Tokens, cfg.Auth.Required))
	{
		file.RegisterRoutes(v1, file.NewHandler(a.fileService, gateway, exposeErrors))

		ph := pipeline.NewHandler(a.Files, a.Results, a.Scheduler, a.Mode, exposeErrors)
		pipeline.RegisterRoutes(v1, ph)
		if !cfg.IsProduction() {
			var guard []gin.HandlerFunc
			if cfg.Auth.Required {
				guard = append(guard, middleware.AdminOnly())
			}
			pipeline.RegisterDevRoutes(v1, ph, guard...)
		}

		intake.RegisterRoutes(v1, intake.NewHandler(a.Intakes, exposeErrors))
	}
	return r
}

func (a *App) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := database.Ping(ctx, a.DB); err != nil {
		a.Log.Warn("health check failed", "error", err)
		response.Error(c, http.StatusServiceUnavailable, apperr.CodeServiceUnavailable, "database unavailable")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"status": "ok"})
}

// Close waits for scheduled runs until ctx ends, then releases clients and
// the database pool.
func (a *App) Close(ctx context.Context) error {
	errs := []error{a.Scheduler.Shutdown(ctx)}
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		errs = append(errs, sqlDB.Close())
	}
	return errors.Join(errs...)
}
