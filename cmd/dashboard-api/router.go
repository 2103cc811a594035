package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-dashboard-api/internal/handler"
	"github.com/noah-isme/academic-dashboard-api/internal/middleware"
	"github.com/noah-isme/academic-dashboard-api/internal/models"
	"github.com/noah-isme/academic-dashboard-api/internal/service"
	"github.com/noah-isme/academic-dashboard-api/pkg/config"
	"github.com/noah-isme/academic-dashboard-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/academic-dashboard-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/academic-dashboard-api/pkg/middleware/requestid"
)

// handlers groups everything the router mounts.
type handlers struct {
	auth        middleware.Authenticator
	metrics     *service.MetricsService
	dashboard   *handler.DashboardHandler
	collections *handler.CollectionHandler
	snapshots   *handler.SnapshotHandler
	dataQuality *handler.DataQualityHandler
	observe     *handler.MetricsHandler
	me          *handler.AuthHandler
}

// collectionEditors may create, update and delete academic records.
var collectionEditors = []models.UserRole{models.RoleSuperAdmin, models.RoleJefeAcademico}

func newRouter(cfg *config.Config, logr *zap.Logger, h handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS))
	r.Use(middleware.Metrics(h.metrics, "/metrics", "/health", "/ready"))

	r.GET("/health", h.observe.Health)
	r.GET("/ready", h.observe.Ready)
	r.GET("/metrics", h.observe.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(h.auth), middleware.WithResponseMeta())

	api.GET("/auth/me", h.me.Me)

	dashboards := api.Group("/dashboard")
	for _, route := range []struct {
		name string
		fn   gin.HandlerFunc
	}{
		{models.DashboardSuperAdmin, h.dashboard.SuperAdmin},
		{models.DashboardAcademicHead, h.dashboard.AcademicHead},
		{models.DashboardSubDirector, h.dashboard.SubDirector},
		{models.DashboardTeacher, h.dashboard.Teacher},
		{models.DashboardPsychopedagogical, h.dashboard.Psychopedagogical},
		{models.DashboardTutor, h.dashboard.Tutor},
	} {
		owner, _ := models.DashboardOwner(route.name)
		dashboards.GET("/"+route.name, middleware.RequireRoles(owner, models.RoleSuperAdmin), route.fn)
	}

	collections := api.Group("/collections/:collection")
	collections.GET("", middleware.RequireRoles(models.StaffRoles...), h.collections.List)
	collections.GET("/export", middleware.RequireRoles(models.StaffRoles...), h.collections.Export)
	collections.POST("", middleware.RequireRoles(collectionEditors...), h.collections.Create)
	collections.PUT("/:id", middleware.RequireRoles(collectionEditors...), h.collections.Update)
	collections.DELETE("/:id", middleware.RequireRoles(collectionEditors...), h.collections.Delete)

	admin := api.Group("", middleware.RequireRoles(models.RoleSuperAdmin))
	admin.POST("/snapshots/reload", h.snapshots.Reload)
	admin.GET("/data-quality/issues", h.dataQuality.Issues)
	admin.GET("/metrics/system", h.observe.System)

	return r
}
