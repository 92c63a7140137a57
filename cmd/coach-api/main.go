package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/coach-lineup-api/api/swagger"
	"github.com/noah-isme/coach-lineup-api/internal/handler"
	"github.com/noah-isme/coach-lineup-api/internal/middleware"
	"github.com/noah-isme/coach-lineup-api/internal/repository"
	"github.com/noah-isme/coach-lineup-api/internal/service"
	"github.com/noah-isme/coach-lineup-api/pkg/cache"
	"github.com/noah-isme/coach-lineup-api/pkg/config"
	"github.com/noah-isme/coach-lineup-api/pkg/database"
	"github.com/noah-isme/coach-lineup-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/coach-lineup-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/coach-lineup-api/pkg/middleware/requestid"
	"github.com/noah-isme/coach-lineup-api/pkg/storage"
)

// @title Coach Lineup API
// @version 1.0.0
// @description Local roster, lineup and backup service for a hockey coach
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewSQLite(cfg.Database)
	if err != nil {
		logr.Fatal("failed to open database", zap.String("path", cfg.Database.Path), zap.Error(err))
	}
	defer db.Close()

	clock := clockwork.NewRealClock()

	backupFiles, err := storage.NewLocalStorage(cfg.Backup.Dir, clock)
	if err != nil {
		logr.Fatal("failed to prepare backup directory", zap.Error(err))
	}
	importFiles, err := storage.NewLocalStorage(cfg.Imports.Dir, clock)
	if err != nil {
		logr.Fatal("failed to prepare imports directory", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Imports.SignedURLSecret, cfg.Imports.SignedURLTTL, clock)

	var metricsSvc *service.MetricsService
	if cfg.Metrics.Enabled {
		metricsSvc = service.NewMetricsService()
	}

	redisClient, err := cache.NewRedis(cfg.Cache, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, continuing without cache", zap.Error(err))
	}
	var cacheSvc *service.CacheService
	if redisClient != nil {
		cacheRepo := repository.NewCacheRepository(redisClient)
		defer cacheRepo.Close() //nolint:errcheck
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, true)
	}

	teamRepo := repository.NewTeamRepository(db)
	playerRepo := repository.NewPlayerRepository(db)
	lineupRepo := repository.NewLineupRepository(db)
	backupRepo := repository.NewBackupRepository(db)

	validate := service.NewValidator()
	teamSvc := service.NewTeamService(teamRepo, cacheSvc, validate, clock, logr)
	playerSvc := service.NewPlayerService(playerRepo, teamRepo, cacheSvc, validate, clock, logr)
	lineupSvc := service.NewLineupService(lineupRepo, playerRepo, teamRepo, metricsSvc, validate, clock, logr)
	pdfSvc := service.NewLineupPDFService(lineupSvc, teamRepo, nil, logr)
	rosterSvc := service.NewRosterCSVService(playerRepo, teamRepo, importFiles, signer, cacheSvc, metricsSvc,
		service.RosterCSVConfig{APIPrefix: cfg.APIPrefix, MaxFileSizeBytes: cfg.Imports.MaxFileSizeBytes}, clock, logr)
	backupSvc := service.NewBackupService(backupRepo, backupFiles, cacheSvc, metricsSvc, service.BackupConfig{
		DatabasePath:     cfg.Database.Path,
		MaxFileSizeBytes: cfg.Backup.MaxFileSizeBytes,
		KeepDays:         cfg.Backup.KeepDays,
	}, clock, logr)

	metricsHandler := handler.NewMetricsHandler(metricsSvc, backupSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.ResponseMeta(clock))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	if metricsSvc != nil {
		r.GET("/metrics", metricsHandler.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r.Group(cfg.APIPrefix), handler.Handlers{
		Teams:   handler.NewTeamHandler(teamSvc),
		Players: handler.NewPlayerHandler(playerSvc),
		Lineups: handler.NewLineupHandler(lineupSvc, pdfSvc),
		Roster:  handler.NewRosterCSVHandler(rosterSvc),
		Backup:  handler.NewBackupHandler(backupSvc),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "database", cfg.Database.Path)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}
