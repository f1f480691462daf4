package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"healthcare-booking-server/internal/config"
	"healthcare-booking-server/internal/logger"
	"healthcare-booking-server/internal/metrics"
	"healthcare-booking-server/internal/middleware"
	"healthcare-booking-server/internal/routes"
	"healthcare-booking-server/internal/services"
	"healthcare-booking-server/internal/store"
	"healthcare-booking-server/internal/store/gormstore"
	"healthcare-booking-server/internal/store/memory"
	"healthcare-booking-server/internal/utils"
)

func main() {
	// A missing .env is fine; the environment may be set by the deployment.
	envErr := godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		boot := zerolog.New(os.Stderr)
		boot.Fatal().Err(err).Msg("error loading config")
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	if envErr != nil {
		log.Info().Msg("no .env file loaded, using process environment")
	}
	if cfg.UsesDevSecrets() {
		log.Warn().Str("env", cfg.Environment).Msg("JWT secrets are not set; using development defaults")
	}
	if cfg.HospitalKey == "" {
		log.Warn().Msg("HOSPITAL_KEY is not set; doctor signup is disabled")
	}

	st, closeStore, err := openStore(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Storage).Msg("error opening store")
	}
	defer closeStore()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	schedulingMetrics := metrics.NewSchedulingMetrics(reg)
	httpMetrics := metrics.NewHTTPMetrics(reg)

	tokens := utils.NewTokenManager(cfg)
	directory := services.NewDirectoryService(st, cfg.DoctorCacheTTL, log)
	records := services.NewRecordService(st, nil, schedulingMetrics, log)
	deps := routes.Dependencies{
		Config:     cfg,
		Tokens:     tokens,
		Identity:   services.NewIdentityService(st, tokens, directory, services.IdentityConfig{HospitalKey: cfg.HospitalKey}, log),
		Scheduling: services.NewSchedulingService(st, records, services.SchedulingConfig{
			Template:    services.SlotTemplate{Location: cfg.Scheduling.Location},
			HorizonDays: cfg.Scheduling.HorizonDays,
		}, schedulingMetrics, log),
		Records:     records,
		Directory:   directory,
		Symptoms:    services.NewSymptomChecker(directory),
		AuthLimiter: middleware.NewRateLimiter(cfg.AuthRateLimitPerMinute),
		Gatherer:    reg,
	}

	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.Logger(log, httpMetrics), middleware.Recovery())

	// Configure CORS
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Origin}
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderXRequestID}
	router.Use(cors.New(corsConfig))

	routes.SetupRoutes(router, deps)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("storage", cfg.Storage).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		return
	}
	log.Info().Msg("server stopped")
}

func openStore(cfg *config.Config, log zerolog.Logger) (store.Store, func(), error) {
	if cfg.Storage == config.StorageMemory {
		log.Warn().Msg("using in-memory store; data is lost on restart")
		return memory.New(), func() {}, nil
	}

	db, err := gormstore.Open(cfg.Database.DSN, log)
	if err != nil {
		return nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return gormstore.New(db), func() {
		if err := sqlDB.Close(); err != nil {
			log.Error().Err(err).Msg("error closing database")
		}
	}, nil
}
