package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/JeevaByte/auricite-startup-scorer-sub003/internal/api"
	"github.com/JeevaByte/auricite-startup-scorer-sub003/internal/config"
	"github.com/JeevaByte/auricite-startup-scorer-sub003/internal/events"
	"github.com/JeevaByte/auricite-startup-scorer-sub003/internal/jobs"
	"github.com/JeevaByte/auricite-startup-scorer-sub003/internal/llm"
	"github.com/JeevaByte/auricite-startup-scorer-sub003/internal/scoring"
	"github.com/JeevaByte/auricite-startup-scorer-sub003/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel(os.Getenv("AURICITE_LOG_LEVEL"))}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database. No URL means a single-process in-memory store, which is
	// enough for local development and demos.
	var db store.Store
	if cfg.Database.URL != "" {
		pg, err := store.NewPostgresStore(ctx, cfg.Database.URL)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		db = pg
		logger.Info("connected to database")
	} else {
		db = store.NewMemoryStore()
		logger.Warn("no database configured, using in-memory store")
	}
	defer db.Close()

	// Events (optional)
	var eventClient events.Client
	if cfg.Events.URL != "" {
		ec, err := events.NewNATSClient(ctx, cfg.Events.URL, logger)
		if err != nil {
			logger.Warn("failed to connect to nats, running without events", "error", err)
		} else {
			eventClient = ec
			defer ec.Close()
			logger.Info("connected to nats")
		}
	}

	// Gemini (optional). Without an API key the remote scoring methods are
	// absent and blends fall back to the rule score alone.
	var geminiClient *llm.GeminiClient
	if cfg.Gemini.APIKey != "" {
		gc, err := llm.NewGeminiClient(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Gemini.EmbeddingModel)
		if err != nil {
			logger.Warn("failed to create gemini client, rule scoring only", "error", err)
		} else {
			geminiClient = gc
			defer gc.Close()
			logger.Info("gemini client ready", "model", cfg.Gemini.Model)
		}
	} else {
		logger.Warn("no gemini api key, rule scoring only")
	}

	// Rule set
	ruleset := scoring.DefaultRuleSet()
	if cfg.Scoring.RuleSetPath != "" {
		rs, err := scoring.LoadRuleSet(cfg.Scoring.RuleSetPath)
		if err != nil {
			logger.Error("failed to load rule set", "path", cfg.Scoring.RuleSetPath, "error", err)
			os.Exit(1)
		}
		ruleset = rs
		logger.Info("loaded rule set", "version", ruleset.Version)
	}

	// Remote scoring methods and the explainer share one Gemini client. A
	// nil client leaves the methods absent and the explainer on its
	// deterministic fallback narratives.
	var generative, embedding scoring.Method
	var explainerGen llm.TextGenerator
	if geminiClient != nil {
		generative = scoring.NewGenerativeScorer(geminiClient, ruleset.ScaleMax, cfg.GeminiTimeout())
		embedding = scoring.NewEmbeddingScorer(geminiClient, ruleset.ScaleMax, cfg.GeminiTimeout())
		explainerGen = geminiClient
	}
	explainer := scoring.NewExplainer(explainerGen, cfg.GeminiTimeout())

	// Calibrator
	calibrator := scoring.DefaultCalibrator(ruleset.ScaleMax)
	if len(cfg.Scoring.Calibration.Points) > 0 {
		calibrator, err = scoring.NewCalibrator(cfg.Scoring.Calibration.Points, cfg.Scoring.Calibration.Shrink, ruleset.ScaleMax)
		if err != nil {
			logger.Error("invalid calibration config", "error", err)
			os.Exit(1)
		}
	}

	engine := scoring.NewEngine(ruleset, generative, embedding, cfg.Scoring.Combiner, calibrator, explainer, logger)

	// Worker
	handlers := jobs.NewHandlers(db, engine, eventClient, logger)
	registry, err := handlers.NewRegistry()
	if err != nil {
		logger.Error("failed to build job registry", "error", err)
		os.Exit(1)
	}
	worker := jobs.NewWorker(db, registry, eventClient, jobs.Config{
		PollInterval:      cfg.PollInterval(),
		BatchSize:         cfg.Jobs.BatchSize,
		JobTimeout:        cfg.JobTimeout(),
		RetryBackoff:      cfg.RetryBackoff(),
		StuckAfter:        cfg.StuckAfter(),
		ReconcileInterval: cfg.ReconcileInterval(),
	}, logger)
	worker.Start(ctx)
	defer worker.Stop()
	logger.Info("worker started", "poll_interval", cfg.PollInterval(), "batch_size", cfg.Jobs.BatchSize)

	if eventClient != nil {
		if err := handlers.SubscribeRescoreRequests(cfg.Jobs.DefaultMaxAttempts); err != nil {
			logger.Warn("failed to subscribe to rescore requests", "error", err)
		}
	}

	// API server
	router := api.NewRouter(db, eventClient, api.RouterConfig{
		AdminToken:         cfg.Server.AdminToken,
		RateLimit:          cfg.Server.RateLimit,
		DefaultMaxAttempts: cfg.Jobs.DefaultMaxAttempts,
	}, logger)
	apiServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Metrics server
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler: api.NewMetricsRouter(),
	}

	go func() {
		logger.Info("API server starting", "port", cfg.Server.Port)
		if err := apiServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("API server error", "error", err)
		}
	}()

	go func() {
		logger.Info("metrics server starting", "port", cfg.Server.MetricsPort)
		if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = apiServer.Shutdown(shutdownCtx)
	_ = metricsServer.Shutdown(shutdownCtx)

	logger.Info("shutdown complete")
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
