package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"worldcup_sim/internal/api"
	"worldcup_sim/internal/api/handlers"
	"worldcup_sim/internal/bracket"
	"worldcup_sim/internal/cache"
	"worldcup_sim/internal/config"
	"worldcup_sim/internal/logger"
	"worldcup_sim/internal/metrics"
	"worldcup_sim/internal/prediction"
	"worldcup_sim/internal/presets"
	"worldcup_sim/internal/rng"
	"worldcup_sim/internal/teams"
	"worldcup_sim/internal/tournament"
)

const serviceName = "worldcup-sim"

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Setup logging
	log := logger.InitLogger(cfg.LogLevel, cfg.IsDevelopment())
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	roster, err := loadRoster(cfg.RatingsFile)
	if err != nil {
		log.Fatalf("Failed to load roster: %v", err)
	}

	formats := bracket.NewRegistry()
	if cfg.FormatsFile != "" {
		if err := formats.LoadFormats(cfg.FormatsFile); err != nil {
			log.Fatalf("Failed to load formats: %v", err)
		}
	}

	store, err := presets.Load(formats)
	if err != nil {
		log.Fatalf("Failed to load presets: %v", err)
	}

	prng, err := rng.NewFactory(cfg.PRNG)
	if err != nil {
		log.Fatalf("Failed to select PRNG: %v", err)
	}

	predictor, model, err := newPredictor(cfg, roster, log)
	if err != nil {
		log.Fatalf("Failed to set up goal model: %v", err)
	}

	// Connect to Redis
	ctx := context.Background()
	resultCache, err := cache.New(ctx, cfg.RedisURL, cfg.CacheTTL, log)
	if err != nil {
		log.Fatalf("Failed to set up result cache: %v", err)
	}
	defer resultCache.Close()

	collector := metrics.NewCollector()
	sim := tournament.New(formats, tournament.Options{
		Workers:        cfg.SimulationWorkers,
		MaxSimulations: cfg.MaxSimulations,
		Timeout:        cfg.SimulationTimeout,
		Seed:           cfg.SimulationSeed,
		PRNG:           prng,
		Logger:         log,
		Observer:       collector,
	})

	h := handlers.New(handlers.Deps{
		Simulator:          sim,
		Predictor:          predictor,
		Roster:             roster,
		Presets:            store,
		Cache:              resultCache,
		Metrics:            collector,
		Logger:             log,
		Model:              model,
		DefaultSimulations: cfg.DefaultSimulations,
		PRNG:               cfg.PRNG,
	})
	router := api.NewRouter(h, cfg.CorsOrigins)

	// Log all registered routes
	log.Info("=== REGISTERED ROUTES ===")
	for _, route := range router.Routes() {
		log.Infof("%s %s", route.Method, route.Path)
	}
	log.Info("=========================")

	// Setup server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.SimulationTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.WithService(serviceName).WithFields(logrus.Fields{
			"port":      cfg.Port,
			"predictor": model.Type,
			"cache":     resultCache.Enabled(),
			"formats":   formats.Names(),
		}).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}

	log.Info("Server exited")
}

func loadRoster(path string) (*teams.Roster, error) {
	if path == "" {
		return teams.Default()
	}
	return teams.Load(path)
}

// newPredictor picks the remote prediction service when PREDICTOR_URL is set
// and the in-process Elo model otherwise.
func newPredictor(cfg *config.Config, roster *teams.Roster, log *logrus.Logger) (prediction.Predictor, handlers.ModelInfo, error) {
	if cfg.PredictorURL != "" {
		client := prediction.NewRemoteClient(cfg.PredictorURL,
			prediction.WithTimeout(cfg.PredictorTimeout),
			prediction.WithRateLimit(cfg.PredictorRateLimit, 1+int(cfg.PredictorRateLimit)),
			prediction.WithBreakerThreshold(cfg.CircuitBreakerThreshold),
			prediction.WithLogger(log),
		)
		return client, handlers.ModelInfo{
			Key:  "remote:" + cfg.PredictorURL,
			Type: "remote",
			Parameters: map[string]interface{}{
				"url":                       cfg.PredictorURL,
				"rate_limit":                cfg.PredictorRateLimit,
				"circuit_breaker_threshold": cfg.CircuitBreakerThreshold,
			},
		}, nil
	}

	eloCfg := prediction.EloConfig{
		GoalBase:      cfg.GoalBase,
		GoalScale:     cfg.GoalScale,
		HomeAdvantage: cfg.HomeAdvantage,
	}
	model, err := prediction.NewEloModel(roster.Ratings(), eloCfg)
	if err != nil {
		return nil, handlers.ModelInfo{}, err
	}
	return model, handlers.ModelInfo{
		Key:  fmt.Sprintf("elo:%g:%g:%g:%s", cfg.GoalBase, cfg.GoalScale, cfg.HomeAdvantage, cfg.RatingsFile),
		Type: "elo",
		Parameters: map[string]interface{}{
			"goal_base":      cfg.GoalBase,
			"goal_scale":     cfg.GoalScale,
			"home_advantage": cfg.HomeAdvantage,
			"min_lambda":     prediction.MinLambda,
			"teams":          roster.Len(),
		},
	}, nil
}
