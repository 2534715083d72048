package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ahrie-ai/backend/config"
	"github.com/ahrie-ai/backend/internal/agent"
	"github.com/ahrie-ai/backend/internal/api"
	"github.com/ahrie-ai/backend/internal/bot"
	"github.com/ahrie-ai/backend/internal/database"
	"github.com/ahrie-ai/backend/internal/llm"
	"github.com/ahrie-ai/backend/internal/logger"
	"github.com/ahrie-ai/backend/internal/metrics"
	"github.com/ahrie-ai/backend/internal/router"
	"github.com/ahrie-ai/backend/internal/scheduler"
	"github.com/ahrie-ai/backend/internal/server"
	"github.com/ahrie-ai/backend/internal/service"
	"github.com/ahrie-ai/backend/internal/telegram"
	"github.com/ahrie-ai/backend/migrations"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(logger.Config{
		Service: "ahrie-api",
		Version: cfg.AppVersion,
		Env:     string(cfg.Env),
		Backend: cfg.LogBackend,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.L().Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	log := logger.L()
	m := metrics.New()

	db, err := database.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.RunMigrations(db.Gorm, database.MigrationSource(cfg.MigrationsDir, migrations.FS)); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	var (
		redisClient *redis.Client
		cache       redis.Cmdable
	)
	if cfg.RedisURL != "" {
		redisClient, err = database.NewRedisClient(ctx, cfg)
		if err != nil {
			log.Warn("redis unavailable, continuing without cache and rate limiting", "error", err)
		} else {
			cache = redisClient
		}
	}

	chain, err := llm.NewFromConfig(cfg, m)
	if err != nil {
		_ = db.Close()
		return err
	}
	log.Info("model chain ready", "providers", chain.Providers(), "monitoring", chain.MonitoringEnabled())

	team, err := agent.LoadTeam()
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to load personas: %w", err)
	}

	users := service.NewUserService(db.Gorm)
	conversations := service.NewConversationService(db.Gorm)
	catalog := service.NewCatalogService(db.Gorm)
	translations := service.NewTranslationService(db.Gorm, cache, llm.NewModelTranslator(chain), cfg.CacheTTL)
	translations.SetMetrics(m)

	var sessions agent.SessionStore = agent.NewMemorySessionStore()
	if cache != nil {
		sessions = agent.NewRedisSessionStore(cache, cfg.SessionTTL)
	}
	orchestrator := agent.NewOrchestrator(chain, team, sessions, catalog, translations)

	tg := telegram.NewClient(cfg.TelegramAPIURL, cfg.TelegramBotToken)

	var media bot.ClinicImager
	if cfg.MediaEnabled() {
		s3cfg, err := config.NewS3Config(ctx, cfg)
		if err != nil {
			log.Warn("clinic media disabled", "error", err)
		} else {
			media = service.NewMediaService(s3cfg, 0)
		}
	}

	handler := bot.NewHandler(tg, users, conversations, catalog, orchestrator, media)
	dispatcher := bot.NewDispatcher(handler, cache, m, 0)

	health := api.HealthDeps{
		AppName:    cfg.AppName,
		AppVersion: cfg.AppVersion,
		DB:         db,
		Team:       team,
		Redis:      cache,
		Bot:        tg,
		Models:     chain,
	}

	engine := router.SetupRouter(router.Deps{
		Config:  cfg,
		Metrics: m,
		Redis:   cache,
		Webhook: api.NewWebhookHandler(cfg, dispatcher, tg),
		Health:  api.NewHealthHandler(health),
		Info:    api.NewInfoHandler(cfg, team),
	})

	jobs := scheduler.New(m, 0)
	if err := scheduler.RegisterMaintenance(jobs, translations, conversations, cfg.TranslationCacheTTL, cfg.SessionTTL); err != nil {
		_ = db.Close()
		return err
	}

	srv := server.New(cfg.Addr(), engine)
	srv.OnShutdown("scheduler", jobs.Stop)
	srv.OnShutdown("dispatcher", dispatcher.Wait)
	if redisClient != nil {
		srv.OnShutdown("redis", func(context.Context) error { return redisClient.Close() })
	}
	srv.OnShutdown("database", func(context.Context) error { return db.Close() })

	if err := srv.Start(); err != nil {
		_ = db.Close()
		return err
	}
	jobs.Start()
	log.Info("server started", "addr", srv.Addr(), "webhook_url", cfg.WebhookURL(), "env", cfg.Env)

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case serveErr = <-srv.Done():
		log.Error("server stopped unexpectedly", "error", serveErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Join(serveErr, fmt.Errorf("shutdown: %w", err))
	}
	log.Info("server stopped")
	return serveErr
}
