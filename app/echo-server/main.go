package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stumbleDiscovery/app/echo-server/router"
	"stumbleDiscovery/business/discovery"
	"stumbleDiscovery/business/experiment"
	"stumbleDiscovery/business/reputation"
	"stumbleDiscovery/business/similarity"
	"stumbleDiscovery/business/trending"
	psqlRepo "stumbleDiscovery/internal/repository/postgres"
	redisRepo "stumbleDiscovery/internal/repository/redis"
	"stumbleDiscovery/internal/rest"
	"stumbleDiscovery/pkg/config"
	"stumbleDiscovery/pkg/database/postgres"
	"stumbleDiscovery/pkg/database/redis"
	"stumbleDiscovery/pkg/logger"
	"stumbleDiscovery/pkg/metrics"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.App.Environment)
	logger.Info("Starting Discovery Engine", "version", cfg.App.Version)

	db, err := postgres.Init(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}

	logger.Info("Database connected successfully")

	redisClient, err := redis.NewRedisClient(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to redis", "error", err)
	}

	metrics.Init()

	// Init repo
	contentRepo := psqlRepo.NewContentRepository(db)
	userCtxRepo := psqlRepo.NewUserContextRepository(db)
	interactionRepo := psqlRepo.NewInteractionRepository(db)
	reputationRepo := psqlRepo.NewReputationRepository(db)
	trendingRepo := psqlRepo.NewTrendingRepository(db)
	experimentRepo := psqlRepo.NewExperimentRepository(db)
	scoringCfgRepo := psqlRepo.NewScoringConfigRepository(db)
	trendingCache := redisRepo.NewTrendingCache(redisClient)

	// Init service
	matcher := similarity.NewMatcher(contentRepo, contentRepo)
	aggregator := reputation.NewAggregator(reputationRepo, reputationRepo)
	calculator := trending.NewCalculator(interactionRepo, trendingRepo, trendingCache)
	manager := experiment.NewManager(experimentRepo)
	discoveryService := discovery.NewService(
		contentRepo,
		userCtxRepo,
		reputationRepo,
		calculator,
		matcher,
		nil,
		manager,
		manager,
		interactionRepo,
		scoringCfgRepo,
		cfg.Discovery.CandidatePoolSize,
		cfg.Discovery.FetchTimeout,
	)

	// Init handler
	discoveryHandler := rest.NewDiscoveryHandler(discoveryService)
	trendingHandler := rest.NewTrendingHandler(calculator)
	similarityHandler := rest.NewSimilarityHandler(matcher)
	experimentHandler := rest.NewExperimentHandler(manager)
	scoringCfgHandler := rest.NewScoringConfigHandler(scoringCfgRepo)
	moderationHandler := rest.NewModerationHandler(reputationRepo, aggregator)

	// Init echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: []string{"http://localhost:3000", "http://localhost:8080"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Setup routes
	api := e.Group("/api/v1")
	router.SetDiscoveryRoutes(api, discoveryHandler)
	router.SetTrendingRoutes(api, trendingHandler)
	router.SetSimilarityRoutes(api, similarityHandler)
	router.SetExperimentRoutes(api, experimentHandler)
	router.SetScoringConfigRoutes(api, scoringCfgHandler)
	router.SetModerationRoutes(api, moderationHandler)

	// Batch jobs
	jobCtx, stopJobs := context.WithCancel(context.Background())
	defer stopJobs()

	trendingRunner := trending.NewRunner(calculator, cfg.Jobs.TrendingInterval)
	go trendingRunner.Start(jobCtx)

	reputationRunner := reputation.NewRunner(aggregator, cfg.Jobs.ReputationInterval)
	go reputationRunner.Start(jobCtx)

	// Goroutine server
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		logger.Info("Server starting", "address", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	stopJobs()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown server
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	logger.Info("Server stopped")
}
