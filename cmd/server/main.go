package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/mux"

	"github.com/OthmaneWahbi/gab-flow-insights/internal/api"
	"github.com/OthmaneWahbi/gab-flow-insights/internal/cache"
	"github.com/OthmaneWahbi/gab-flow-insights/internal/config"
	"github.com/OthmaneWahbi/gab-flow-insights/internal/drive"
	"github.com/OthmaneWahbi/gab-flow-insights/internal/pipeline/replenishment"
	"github.com/OthmaneWahbi/gab-flow-insights/internal/scheduler"
	"github.com/OthmaneWahbi/gab-flow-insights/internal/service"
	"github.com/OthmaneWahbi/gab-flow-insights/internal/source"
	"github.com/OthmaneWahbi/gab-flow-insights/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		logger.UseJSON()
		gin.SetMode(gin.ReleaseMode)
	}
	logger.SetLevel(cfg.Server.LogLevel)

	loc, err := time.LoadLocation(cfg.App.Timezone)
	if err != nil {
		logger.Log.Fatal().Err(err).Str("timezone", cfg.App.Timezone).Msg("Invalid timezone")
	}

	fallback := replenishment.DefaultFallback()
	if cfg.App.FallbackPath != "" {
		if fallback, err = replenishment.LoadFallbackDataset(cfg.App.FallbackPath); err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to load fallback dataset")
		}
	}

	ctx := context.Background()

	// Reference source
	built, err := source.New(ctx, cfg)
	if err != nil {
		logger.Log.Fatal().Err(err).Str("kind", cfg.Source.Kind).Msg("Failed to initialize reference source")
	}
	if built.DB != nil {
		defer built.DB.Close()
	}
	loader := source.NewLoader(built.Source)

	// Result cache
	results, err := cache.NewResultCache(cfg.Cache)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize result cache")
	}

	// Initialize services
	p := replenishment.NewReplenishmentPipeline(loader, results, replenishment.Config{
		Location: loc,
		Fallback: fallback,
	})
	replenishmentService := service.NewReplenishmentService(p, results)

	sources := mux.NewRouter()
	source.NewHandler(loader).RegisterRoutes(sources)
	if built.Drive != nil {
		drive.NewHandler(built.Drive, cfg.Drive.FolderID).RegisterRoutes(sources)
	}

	router := api.NewRouter(&api.Services{
		ReplenishmentService: replenishmentService,
		Sources:              sources,
		MaxUploadBytes:       cfg.Server.MaxUploadMB << 20,
	}, cfg.Server.AllowedOrigins)

	// Periodic source probe
	sched := scheduler.New(loader, loc)
	if ok, err := sched.Register(cfg.Source.ProbeCron); err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to schedule source probe")
	} else if ok {
		sched.Start()
		go sched.RunNow()
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info().
			Str("port", cfg.Server.Port).
			Str("source", loader.Source()).
			Str("cache", cfg.Cache.Backend).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sched.Stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error().Err(err).Msg("Server forced to shutdown")
	}
	// Results live only as long as the process.
	if err := results.Close(shutdownCtx); err != nil {
		logger.Log.Error().Err(err).Msg("Failed to clear result cache")
	}

	logger.Log.Info().Msg("Server exiting")
}
