package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	_ "github.com/noah-isme/academic-dashboard-api/api/swagger"
	"github.com/noah-isme/academic-dashboard-api/internal/handler"
	"github.com/noah-isme/academic-dashboard-api/internal/repository"
	"github.com/noah-isme/academic-dashboard-api/internal/service"
	"github.com/noah-isme/academic-dashboard-api/pkg/cache"
	"github.com/noah-isme/academic-dashboard-api/pkg/config"
	"github.com/noah-isme/academic-dashboard-api/pkg/database"
	"github.com/noah-isme/academic-dashboard-api/pkg/logger"
	"github.com/noah-isme/academic-dashboard-api/pkg/upstream"
)

// @title Academic Dashboard API
// @version 1.0.0
// @description Role-based dashboards reconciled from the academic REST API
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const pruneInterval = 6 * time.Hour

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := service.NewMetricsService()
	checks := map[string]handler.Pinger{}

	redisClient, err := cache.NewRedis(cfg.Redis, cfg.Cache)
	if err != nil {
		logr.Sugar().Fatalw("redis unavailable", "error", err)
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logr, "")
	defer cacheRepo.Close() //nolint:errcheck
	if redisClient != nil {
		checks["redis"] = cacheRepo
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Dashboard.CacheTTL, logr, cfg.Cache.Enabled)

	var db *sqlx.DB
	if cfg.DataQuality.Enabled {
		db, err = database.NewPostgres(cfg.Database)
		if err != nil {
			logr.Sugar().Fatalw("postgres unavailable", "error", err)
		}
		defer db.Close() //nolint:errcheck
		if err := database.Migrate(ctx, db); err != nil {
			logr.Sugar().Fatalw("migration failed", "error", err)
		}
		checks["postgres"] = handler.PingerFunc(db.PingContext)
	}

	var dataQuality *service.DataQualityService
	dqCfg := service.DataQualityConfig{Workers: cfg.DataQuality.Workers, Retries: cfg.DataQuality.Retries}
	if db != nil {
		dataQuality = service.NewDataQualityService(repository.NewDataQualityRepository(db), metrics, logr, dqCfg)
	} else {
		dataQuality = service.NewDataQualityService(nil, metrics, logr, dqCfg)
	}
	dataQuality.Start(ctx)
	defer dataQuality.Stop()
	if db != nil {
		go pruneLoop(ctx, dataQuality, cfg.DataQuality.Retention, logr)
	}

	client := upstream.New(cfg.Upstream, upstream.WithLogger(logr))
	snapshots := service.NewSnapshotService(service.SnapshotServiceParams{
		Upstream: client,
		Cache:    cacheSvc,
		Metrics:  metrics,
		Issues:   dataQuality,
		Logger:   logr,
		TTL:      cfg.Cache.SnapshotTTL,
	})
	dashboards := service.NewDashboardService(service.DashboardServiceParams{
		Snapshots: snapshots,
		Cache:     cacheSvc,
		Logger:    logr,
		Config:    service.DashboardServiceConfig{CacheTTL: cfg.Dashboard.CacheTTL, TrendWindow: cfg.Dashboard.TrendWindow},
	})
	entities, err := service.NewEntityService(snapshots, client, logr)
	if err != nil {
		logr.Sugar().Fatalw("entity service setup failed", "error", err)
	}
	exports := service.NewExportService(entities, logr, nil, nil)
	auth := service.NewAuthService(logr, service.AuthConfig{AccessTokenSecret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer})

	router := newRouter(cfg, logr, handlers{
		auth:        auth,
		metrics:     metrics,
		dashboard:   handler.NewDashboardHandler(dashboards),
		collections: handler.NewCollectionHandler(entities, exports),
		snapshots:   handler.NewSnapshotHandler(snapshots),
		dataQuality: handler.NewDataQualityHandler(dataQuality),
		observe:     handler.NewMetricsHandler(metrics, checks),
		me:          handler.NewAuthHandler(),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "upstream", cfg.Upstream.BaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

func pruneLoop(ctx context.Context, svc *service.DataQualityService, retention time.Duration, logr *zap.Logger) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		if _, err := svc.Prune(ctx, retention); err != nil {
			logr.Warn("data quality prune failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
