package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"appdeck-core/internal/application/service"
	"appdeck-core/internal/config"
	"appdeck-core/internal/database"
	"appdeck-core/internal/domain/deployment"
	"appdeck-core/internal/domain/events"
	"appdeck-core/internal/github"
	infraGitHub "appdeck-core/internal/infrastructure/github"
	"appdeck-core/internal/infrastructure/memory"
	"appdeck-core/internal/infrastructure/persistence"
	"appdeck-core/internal/logging"
	"appdeck-core/internal/metrics"
	"appdeck-core/internal/middleware"
	"appdeck-core/internal/notification"
	"appdeck-core/internal/presentation/handlers"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title AppDeck Core API
// @version 1.0
// @description Deployment tracking and GitHub repository snapshots
// @termsOfService http://swagger.io/terms/

// @contact.name AppDeck Team

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description HS256 JWT bearer token

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.New(cfg.Log)
	log := logging.Component(logger, "server")

	// Initialize metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(registry)
	if err != nil {
		log.WithError(err).Fatal("Failed to register metrics")
	}

	// Initialize storage
	store, db, err := openStore(cfg, logger)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize deployment store")
	}
	if db != nil {
		defer db.Close()
	}

	// External service clients
	githubClient, err := github.NewClient(cfg.GitHub)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize GitHub client")
	}
	githubService := infraGitHub.NewGitHubService(githubClient)

	// Notifications and domain events
	hub := notification.NewHub(logging.Component(logger, "notifications"))
	dispatcher := events.NewDispatcher(logging.Component(logger, "events"))
	dispatcher.Register(events.Wildcard, hub.ForwardEvents)
	notifierFor := func(topic string) notification.Notifier { return hub.For(topic) }

	// Initialize application layer
	trackers := service.NewTrackerRegistry(
		store,
		notifierFor,
		dispatcher,
		m,
		logging.Component(logger, "tracker"),
		service.TrackerOptions{
			CompletionDelay:   cfg.Tracker.CompletionDelay(),
			CompletionTimeout: cfg.Tracker.CompletionWriteTimeout(),
		},
		cfg.Registry.MaxApps,
	)
	defer trackers.Close()

	aggregators := service.NewAggregatorRegistry(
		githubService,
		notifierFor,
		dispatcher,
		m,
		logging.Component(logger, "aggregator"),
		cfg.Registry.MaxRepos,
	)

	// Initialize presentation layer
	var pinger handlers.Pinger
	if db != nil {
		pinger = db
	}
	healthHandler := handlers.NewHealthHandler(pinger)
	deploymentHandler := handlers.NewDeploymentHandler(trackers)
	repositoryHandler := handlers.NewRepositoryHandler(aggregators)
	notificationHandler := handlers.NewNotificationHandler(hub, logging.Component(logger, "sse"))

	authMiddleware := middleware.NewAuthMiddleware(&cfg.Auth)
	if !authMiddleware.Enabled() {
		log.Warn("AUTH_JWT_SECRET is not set, API authentication is disabled")
	}

	// Set Gin mode
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logging.Component(logger, "http")))
	router.Use(middleware.Metrics(m))
	router.Use(cors.New(corsConfig(cfg.Server.CORSAllowedOrigins)))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Health check endpoint (no auth required)
		v1.GET("/health", healthHandler.Health)

		apps := v1.Group("/apps")
		apps.Use(authMiddleware.RequireAuth())
		{
			apps.GET("/:id/deployments", deploymentHandler.ListDeployments)
			apps.POST("/:id/deployments", deploymentHandler.CreateDeployment)
			apps.POST("/:id/deployments/:deploymentId/trigger", deploymentHandler.TriggerDeployment)
		}

		repos := v1.Group("/repos")
		repos.Use(authMiddleware.RequireAuth())
		{
			repos.GET("/snapshot", repositoryHandler.GetSnapshot)
			repos.POST("/refetch", repositoryHandler.Refetch)
		}

		v1.GET("/notifications/stream", authMiddleware.SSEAuth(), notificationHandler.Stream)
	}

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})))

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Create HTTP server. WriteTimeout stays zero so notification streams are
	// not cut off.
	server := &http.Server{
		Addr:        cfg.GetServerAddress(),
		Handler:     router,
		ReadTimeout: time.Duration(cfg.Server.ReadTimeout) * time.Second,
		IdleTimeout: time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.WithField("address", cfg.GetServerAddress()).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	// Give outstanding requests 30 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}

	log.Info("Server exited")
}

// openStore returns the configured deployment store. db is nil for the
// memory driver.
func openStore(cfg *config.Config, logger *logrus.Logger) (deployment.DeploymentStore, *database.DB, error) {
	if cfg.Database.Driver == config.DriverMemory {
		logging.Component(logger, "store").Warn("Using in-memory deployment store; data is lost on restart")
		return memory.NewDeploymentStore(), nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.NewConnection(ctx, &cfg.Database)
	if err != nil {
		return nil, nil, err
	}

	if cfg.Database.AutoMigrate {
		if err := database.NewMigrator(db, logging.Component(logger, "migrate")).Up(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
	}

	return persistence.NewDeploymentRepository(db), db, nil
}

func corsConfig(origins []string) cors.Config {
	c := cors.DefaultConfig()
	c.AddAllowHeaders("Accept", "Authorization")
	for _, o := range origins {
		if o == "*" {
			c.AllowAllOrigins = true
			return c
		}
	}
	c.AllowOrigins = origins
	c.AllowCredentials = true
	return c
}
