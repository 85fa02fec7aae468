package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/adenafil/campus-timetable-api/internal/engine"
	"github.com/adenafil/campus-timetable-api/internal/handler"
	"github.com/adenafil/campus-timetable-api/internal/middleware"
	"github.com/adenafil/campus-timetable-api/internal/repository"
	"github.com/adenafil/campus-timetable-api/internal/service"
	"github.com/adenafil/campus-timetable-api/pkg/cache"
	"github.com/adenafil/campus-timetable-api/pkg/config"
	"github.com/adenafil/campus-timetable-api/pkg/database"
	"github.com/adenafil/campus-timetable-api/pkg/export"
	"github.com/adenafil/campus-timetable-api/pkg/logger"
	corsmiddleware "github.com/adenafil/campus-timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/adenafil/campus-timetable-api/pkg/middleware/requestid"
)

// @title Campus Timetable API
// @version 0.1.0
// @description Course timetabling service backed by a simulated annealing solver
// @BasePath /api/v1
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

	validate := validator.New()
	metricsSvc := service.NewMetricsService()
	cacheSvc := buildCacheService(cfg, metricsSvc, logr)

	svcCfg := service.TimetableServiceConfig{
		ResultTTL: cfg.Results.TTL,
		Solver:    engineConfig(cfg.Solver),
	}

	var timetableSvc *service.TimetableService
	if cfg.Database.Enabled {
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
		}
		defer db.Close() //nolint:errcheck
		timetableSvc = service.NewTimetableService(repository.NewTimetableRepository(db), db, cacheSvc, metricsSvc, validate, logr, svcCfg)
	} else {
		timetableSvc = service.NewTimetableService(nil, nil, cacheSvc, metricsSvc, validate, logr, svcCfg)
	}

	exportSvc := service.NewExportService(timetableSvc, export.NewCSVExporter(), export.NewPDFExporter(), logr)
	authSvc := service.NewAuthService(validate, logr, service.AuthConfig{
		Secret:     cfg.Auth.Secret,
		Expiration: cfg.Auth.Expiration,
	})

	timetableHandler := handler.NewTimetableHandler(timetableSvc, exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)
	authHandler := handler.NewAuthHandler(authSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/token", authHandler.Token)

	// Reads stay open so dashboards can poll without credentials, but claims
	// are still attached when a token is sent. Writes require a valid token.
	reads := api.Group("")
	writes := api.Group("")
	if cfg.Auth.Enabled {
		reads.Use(middleware.OptionalJWT(authSvc))
		writes.Use(middleware.JWT(authSvc))
	}
	writes.POST("/timetables/generate", timetableHandler.Generate)
	reads.GET("/timetables", timetableHandler.List)
	reads.GET("/timetables/:id", timetableHandler.Get)
	reads.GET("/timetables/:id/export", timetableHandler.Export)
	writes.POST("/timetables/save", timetableHandler.Save)
	writes.POST("/timetables/:id/publish", timetableHandler.Publish)
	writes.DELETE("/timetables/:id", timetableHandler.Delete)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

func buildCacheService(cfg *config.Config, metricsSvc *service.MetricsService, logr *zap.Logger) *service.CacheService {
	if !cfg.Redis.Enabled {
		return service.NewCacheService(nil, metricsSvc, cfg.Cache.TTL, logr, false)
	}
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	return service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, cfg.Cache.Enabled)
}

// engineConfig maps env tuning onto the engine defaults; unset values keep
// their default.
func engineConfig(cfg config.SolverConfig) engine.Config {
	w := engine.DefaultWeights()
	if cfg.HardWeight > 0 {
		w.Hard = cfg.HardWeight
	}
	if cfg.PreferredTimeWeight > 0 {
		w.PreferredTime = cfg.PreferredTimeWeight
	}
	if cfg.PreferredRoomWeight > 0 {
		w.PreferredRoom = cfg.PreferredRoomWeight
	}
	if cfg.TransitWeight > 0 {
		w.Transit = cfg.TransitWeight
	}
	if cfg.CompactnessWeight > 0 {
		w.Compactness = cfg.CompactnessWeight
	}
	if cfg.PrayerWeight > 0 {
		w.Prayer = cfg.PrayerWeight
	}
	if cfg.EveningWeight > 0 {
		w.Evening = cfg.EveningWeight
	}
	if cfg.LabWeight > 0 {
		w.Lab = cfg.LabWeight
	}
	return engine.Config{
		InitialTemperature: cfg.InitialTemperature,
		MinTemperature:     cfg.MinTemperature,
		CoolingRate:        cfg.CoolingRate,
		MaxIterations:      cfg.MaxIterations,
		ReheatAfter:        cfg.ReheatAfter,
		ReheatFactor:       cfg.ReheatFactor,
		MaxReheats:         cfg.MaxReheats,
		Chains:             cfg.Chains,
		Seed:               cfg.Seed,
		Weights:            w,
	}
}
