package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/mscandco/distribution-api/internal/auth"
	"github.com/mscandco/distribution-api/internal/client"
	"github.com/mscandco/distribution-api/internal/config"
	"github.com/mscandco/distribution-api/internal/handler"
	"github.com/mscandco/distribution-api/internal/logging"
	"github.com/mscandco/distribution-api/internal/middleware"
	"github.com/mscandco/distribution-api/internal/notify"
	"github.com/mscandco/distribution-api/internal/service"
	"github.com/mscandco/distribution-api/internal/store"
	ws "github.com/mscandco/distribution-api/internal/websocket"
	"github.com/mscandco/distribution-api/internal/worker"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logOutput, closeLog := logging.Setup(cfg.Log)
	defer closeLog()

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	// Test Redis connection
	ctx := context.Background()
	redisUp := true
	if err := redisClient.Ping(ctx).Err(); err != nil {
		redisUp = false
		log.Printf("Warning: Redis not available: %v", err)
	}

	// Release and report store
	releaseStore, err := openStore(ctx, cfg, redisClient)
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", cfg.Store.Driver, err)
	}
	defer releaseStore.Close()
	log.Printf("Info: using %s store", releaseStore.Driver())

	// Initialize validator
	validate := handler.NewValidator()

	// Initialize WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Initialize R2 client (optional - manifests are not exported without it)
	var objects client.ObjectStore
	if cfg.R2.Configured() {
		r2Client, err := client.NewR2Client(&cfg.R2)
		if err != nil {
			log.Printf("Warning: R2 client not initialized: %v", err)
		} else {
			objects = r2Client
		}
	} else {
		log.Println("Info: R2 storage not configured, manifest export disabled")
	}

	// Initialize Zitadel JWKS verifier (optional - falls back to legacy JWT)
	var tokenVerifier auth.TokenVerifier
	if cfg.Zitadel.Issuer != "" {
		jwksVerifier, err := auth.NewJWKSVerifier(&cfg.Zitadel)
		if err != nil {
			log.Printf("Warning: JWKS verifier not initialized: %v", err)
		} else {
			defer jwksVerifier.Close()
			tokenVerifier = jwksVerifier
		}
	}
	authenticator := auth.NewAuthenticator(tokenVerifier, cfg.JWT.Secret)

	// Event delivery: the task queue when enabled, in-process otherwise
	eventWorker := worker.NewEventWorker(releaseStore, objects, hub)
	var notifier notify.Notifier
	var workerServer *asynq.Server
	if cfg.Notify.Enabled {
		asynqClient := asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer asynqClient.Close()
		notifier = notify.NewAsynqNotifier(asynqClient, cfg.Notify.Queue, cfg.Notify.MaxRetry)
		workerServer = newWorkerServer(cfg)
		go runWorkerServer(workerServer, eventWorker)
	} else {
		log.Println("Info: task queue disabled, delivering events in-process")
		notifier = notify.NewInline(eventWorker)
	}

	// Initialize services
	releaseService := service.NewReleaseService(releaseStore, notifier, objects)
	reportService := service.NewReportService(releaseStore, notifier)
	changeRequestService := service.NewChangeRequestService(releaseStore, notifier)

	// Initialize handlers
	releaseHandler := handler.NewReleaseHandler(releaseService, validate)
	reportHandler := handler.NewReportHandler(reportService, validate)
	changeRequestHandler := handler.NewChangeRequestHandler(changeRequestService, validate)
	authHandler := handler.NewAuthHandler(authenticator)

	// Initialize middleware
	var apiAuthMiddleware fiber.Handler
	if cfg.Gateway.Enabled {
		// Behind Traefik: auth is handled by ForwardAuth, read X-User-* headers
		log.Println("Info: Gateway mode enabled, using header-based auth")
		apiAuthMiddleware = middleware.GatewayAuthMiddleware()
	} else {
		apiAuthMiddleware = middleware.NewAuthMiddlewareWithFallback(tokenVerifier, cfg.JWT.Secret).Authenticate()
	}
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    4 * 1024 * 1024,
	})

	// Global middleware
	app.Use(recover.New())
	logFormat := "[${time}] ${status} - ${latency} ${method} ${path}\n"
	if strings.EqualFold(cfg.Server.LogLevel, "debug") {
		logFormat = "[${time}] ${status} - ${latency} ${method} ${path} ${queryParams} ${body}\n"
		log.Println("Debug logging enabled")
	}
	app.Use(logger.New(logger.Config{
		Format: logFormat,
		Output: logOutput,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Base URL - timestamp
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"timestamp": time.Now().Unix(),
		})
	})

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		status := "ok"
		storeUp := releaseStore.Ping(c.UserContext()) == nil
		if !storeUp {
			status = "degraded"
		}
		return c.JSON(fiber.Map{
			"status": status,
			"services": fiber.Map{
				"store": fiber.Map{"driver": releaseStore.Driver(), "up": storeUp},
				"redis": redisUp,
				"r2":    objects != nil,
				"auth":  authenticator.Configured(),
			},
		})
	})

	// ForwardAuth verification endpoint (internal, called by Traefik)
	app.Get("/auth/verify", authHandler.Verify)

	// API routes
	api := app.Group("/api", apiAuthMiddleware, rateLimiter.MutationLimit(cfg.RateLimit.MutationsPerMin))

	// Release routes
	releases := api.Group("/releases")
	releases.Post("/", releaseHandler.Create)
	releases.Get("/", releaseHandler.List)
	releases.Get("/:id", releaseHandler.Get)
	releases.Patch("/:id", releaseHandler.Update)
	releases.Post("/:id/transition", releaseHandler.Transition)
	releases.Post("/:id/amendment", releaseHandler.ProposeAmendment)
	releases.Get("/:id/amendment", releaseHandler.GetAmendment)
	releases.Post("/:id/amendment/resolve", releaseHandler.ResolveAmendment)
	releases.Get("/:id/manifest", releaseHandler.Manifest)
	releases.Post("/:id/change-requests", changeRequestHandler.Create)
	releases.Get("/:id/change-requests", changeRequestHandler.List)
	releases.Get("/:id/change-requests/:requestId", changeRequestHandler.Get)
	releases.Post("/:id/change-requests/:requestId/approve", changeRequestHandler.Approve)
	releases.Post("/:id/change-requests/:requestId/reject", changeRequestHandler.Reject)

	// Revenue report routes
	reports := api.Group("/reports")
	reports.Post("/", reportHandler.Submit)
	reports.Get("/", reportHandler.List)
	reports.Get("/:id", reportHandler.Get)
	reports.Post("/:id/approve", reportHandler.Approve)
	reports.Post("/:id/reject", reportHandler.Reject)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/releases/:releaseId", websocket.New(func(c *websocket.Conn) {
		hub.HandleConnection(c, c.Params("releaseId"))
	}))
	app.Get("/ws/reports/:reportId", websocket.New(func(c *websocket.Conn) {
		hub.HandleConnection(c, ws.ReportTopic(c.Params("reportId")))
	}))

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
		if workerServer != nil {
			workerServer.Shutdown()
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s (%s)", addr, cfg.Server.Env)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func openStore(ctx context.Context, cfg *config.Config, redisClient *redis.Client) (*store.Store, error) {
	switch cfg.Store.Driver {
	case config.StoreRedis:
		return store.NewRedis(redisClient, cfg.Store.KeyPrefix), nil
	case config.StoreSQLite:
		return store.OpenSQLite(ctx, cfg.Store.SQLitePath)
	case config.StoreMemory:
		log.Println("Warning: memory store selected, data is lost on restart")
		return store.NewMemory(), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

func newWorkerServer(cfg *config.Config) *asynq.Server {
	asynqLogLevel := asynq.InfoLevel
	if strings.EqualFold(cfg.Server.LogLevel, "debug") {
		asynqLogLevel = asynq.DebugLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "warn") {
		asynqLogLevel = asynq.WarnLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "error") {
		asynqLogLevel = asynq.ErrorLevel
	}

	return asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				cfg.Notify.Queue: 1,
			},
			LogLevel: asynqLogLevel,
		},
	)
}

func runWorkerServer(srv *asynq.Server, eventWorker *worker.EventWorker) {
	mux := asynq.NewServeMux()
	mux.HandleFunc(notify.TaskTypeReleaseEvent, eventWorker.ProcessReleaseTask)
	mux.HandleFunc(notify.TaskTypeReportEvent, eventWorker.ProcessReportTask)

	if err := srv.Run(mux); err != nil {
		log.Printf("Asynq worker error: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
