package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"queuedesk/api/routes"
	"queuedesk/internal/hours"
	"queuedesk/internal/notifications"
	"queuedesk/internal/shared/config"
	"queuedesk/internal/shared/database"
	"queuedesk/internal/tickets"
	"queuedesk/pkg/cache"
	"queuedesk/pkg/logger"
	"queuedesk/pkg/ratelimit"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	appLogger := logger.GetDefault()

	// Smart environment loading
	if err := godotenv.Load(); err != nil {
		// Check if we're in production/container mode
		if os.Getenv("GIN_MODE") == "release" || os.Getenv("DOCKER_CONTAINER") == "true" {
			appLogger.Info("Production environment: using container environment variables")
		} else {
			appLogger.Info("No .env file found, using system environment variables")
		}
	} else {
		appLogger.Info("Development environment: loaded .env file")
	}

	// Load config
	cfg := config.Load()

	// Set Gin mode (debug/release)
	gin.SetMode(cfg.GinMode)

	// Initialize DB
	db, err := database.InitDB(cfg)
	if err != nil {
		appLogger.Error("failed to connect:", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Operating-hours schedule: one timezone basis scopes every day-key
	schedule, err := hours.NewSchedule(
		cfg.Queue.OpenStart,
		cfg.Queue.OpenEnd,
		cfg.Queue.LunchStart,
		cfg.Queue.LunchEnd,
		cfg.Queue.Timezone,
	)
	if err != nil {
		appLogger.Error("invalid operating-hours configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// Initialize Rate Limiter
	var rateLimiter *ratelimit.RateLimiter
	if cfg.RateLimit.Enabled {
		rateLimiterConfig := &ratelimit.Config{
			Enabled:         cfg.RateLimit.Enabled,
			WindowDuration:  cfg.RateLimit.WindowDuration,
			DefaultRequests: cfg.RateLimit.DefaultRequests,
			PublicRequests:  cfg.RateLimit.PublicRequests,
			AuthRequests:    cfg.RateLimit.AuthRequests,
			KioskRequests:   cfg.RateLimit.KioskRequests,
			StaffRequests:   cfg.RateLimit.StaffRequests,
			AdminRequests:   cfg.RateLimit.AdminRequests,
			HealthRequests:  cfg.RateLimit.HealthRequests,
			WhitelistedIPs:  cfg.RateLimit.WhitelistedIPs,
		}

		rateLimiter = ratelimit.NewRateLimiter(db.GetRedis(), rateLimiterConfig)
		appLogger.Info("Rate limiter initialized",
			slog.Bool("enabled", cfg.RateLimit.Enabled),
			slog.Duration("window", cfg.RateLimit.WindowDuration),
			slog.Int("default_requests", cfg.RateLimit.DefaultRequests),
		)
	} else {
		appLogger.Info("Rate limiting disabled")
	}

	// Kafka event pipeline: issue/serve/cancel announcements plus the
	// board worker that mirrors "now serving" into Redis.
	var announcer tickets.Announcer
	if cfg.Kafka.Enabled {
		producerConfig := notifications.DefaultKafkaProducerConfig()
		producerConfig.Brokers = cfg.Kafka.Brokers
		producerConfig.EventsTopic = cfg.Kafka.EventsTopic

		producer, err := notifications.NewKafkaEventProducer(producerConfig)
		if err != nil {
			appLogger.Error("Failed to initialize event producer", slog.Any("error", err))
			appLogger.Info("Continuing without event announcements")
		} else {
			announcer = notifications.NewAnnouncer(producer)
			defer func() {
				if err := producer.Close(); err != nil {
					appLogger.Error("Error closing event producer", slog.Any("error", err))
				}
			}()
			appLogger.Info("Kafka event producer initialized",
				slog.Any("brokers", cfg.Kafka.Brokers),
				slog.String("topic", cfg.Kafka.EventsTopic),
			)
		}

		if db.Redis != nil {
			consumerConfig := notifications.DefaultConsumerConfig()
			consumerConfig.Brokers = cfg.Kafka.Brokers
			consumerConfig.Topics = []string{cfg.Kafka.EventsTopic}
			consumerConfig.GroupID = cfg.Kafka.GroupID

			boardConsumer, err := notifications.NewBoardConsumer(consumerConfig, cache.NewService(db.GetRedis()))
			if err != nil {
				appLogger.Error("Failed to initialize board consumer", slog.Any("error", err))
			} else if err := boardConsumer.StartConsumers(context.Background(), 2); err != nil {
				appLogger.Error("Failed to start board consumer", slog.Any("error", err))
			} else {
				defer func() {
					if err := boardConsumer.Stop(); err != nil {
						appLogger.Error("Error stopping board consumer", slog.Any("error", err))
					}
				}()
				appLogger.Info("Board consumer started", slog.String("group", consumerConfig.GroupID))
			}
		}
	} else {
		appLogger.Info("Kafka disabled, event announcements off")
	}

	// Ticketing engine: shared by the HTTP layer and the sweepers
	ticketRepo := tickets.NewRepository(db.GetPostgreSQL())
	ticketService := tickets.NewService(ticketRepo, schedule, tickets.EngineConfig{
		HoldTimeout:        cfg.Queue.HoldTimeout,
		UnitServiceMinutes: cfg.Queue.UnitServiceMinutes,
	}, announcer)
	if db.Redis != nil {
		ticketService.SetCacheService(cache.NewService(db.GetRedis()))
		appLogger.Info("Board caching enabled")
	}

	// Background sweepers: cut-off cancellation and hold expiry
	jobCtx, jobCancel := context.WithCancel(context.Background())
	defer jobCancel()

	jobProcessor := tickets.NewJobProcessor(ticketService, schedule, &tickets.JobConfig{
		CutoffSweepInterval: cfg.Queue.CutoffSweepEvery,
		HoldSweepInterval:   cfg.Queue.HoldSweepEvery,
	})
	jobProcessor.Start(jobCtx)
	defer jobProcessor.Stop()

	// Setup router with rate limiter
	router := setupRouter(cfg, db, ticketService, rateLimiter)

	// HTTP server
	srv := &http.Server{
		Addr:           cfg.GetServerAddress(),
		Handler:        router,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		appLogger.Info("🚀 Server running",
			slog.String("address", cfg.GetServerAddress()),
			slog.String("health_check", fmt.Sprintf("http://localhost:%s/health", cfg.Port)),
			slog.String("api_status", fmt.Sprintf("http://localhost:%s%s/status", cfg.Port, cfg.GetAPIBasePath())),
			slog.String("version", cfg.APIVersion),
			slog.Bool("redis_cache", (db.Redis != nil)),
			slog.Bool("rate_limiting", cfg.RateLimit.Enabled),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed", slog.Any("error", err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Forced shutdown", slog.Any("error", err))
	}

	appLogger.Info("Server exited gracefully")
}

func setupRouter(cfg *config.Config, db *database.DB, ticketService tickets.Service, rateLimiter *ratelimit.RateLimiter) *gin.Engine {
	engine := gin.New()
	appLogger := logger.GetDefault()

	// Built-in middleware: logs requests + recovers from panics
	engine.Use(RequestLoggerMiddleware(appLogger), gin.Recovery())

	// CORS configuration
	engine.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return true // allow every origin dynamically
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-RateLimit-*"},
		ExposeHeaders:    []string{"Content-Length", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Global rate limiting middleware (applied to all routes)
	if rateLimiter != nil {
		engine.Use(ratelimit.Middleware(rateLimiter))
		appLogger.Info("Rate limiting middleware applied to all routes")
	}

	// Initialize and setup routes
	appRouter := routes.NewRouter(cfg, db, ticketService)
	appRouter.SetupRoutes(engine)

	return engine
}

func RequestLoggerMiddleware(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)
		l.LogHTTPRequest(c, duration)
	}
}
