package main

import (
	"context"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/sceneforge/api/internal/client"
	"github.com/sceneforge/api/internal/config"
	"github.com/sceneforge/api/internal/ffmpeg"
	"github.com/sceneforge/api/internal/handler"
	"github.com/sceneforge/api/internal/ledger"
	"github.com/sceneforge/api/internal/middleware"
	"github.com/sceneforge/api/internal/service"
	"github.com/sceneforge/api/internal/worker"
	ws "github.com/sceneforge/api/internal/websocket"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Test Redis connection
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis not available: %v", err)
	}

	// Initialize Asynq client
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()

	// Initialize validator
	validate := validator.New()

	// Initialize WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Job ledger: redis-backed so status polling works across replicas
	jobLedger := ledger.NewRedis(redisClient)

	// Initialize R2 client (optional - continues if not configured)
	var storage client.StorageClient
	var r2Client *client.R2Client
	if cfg.R2.AccessKeyID != "" && cfg.R2.SecretAccessKey != "" {
		var err error
		r2Client, err = client.NewR2Client(&cfg.R2)
		if err != nil {
			log.Printf("Warning: R2 client not initialized: %v", err)
		} else {
			storage = r2Client
		}
	} else {
		log.Println("Info: R2 storage not configured, composition jobs will be rejected")
	}

	// Pipeline collaborators
	engine := ffmpeg.NewEngine(&cfg.Compose)
	fetcher := client.NewFetchClient(time.Duration(cfg.Compose.FetchTimeout) * time.Second)
	webhooks := client.NewWebhookClient(time.Duration(cfg.Compose.WebhookTimeout) * time.Second)

	// Services and handlers
	composeService := service.NewComposeService(jobLedger, asynqClient)
	composeHandler := handler.NewComposeHandler(composeService, validate)

	// Auth: header-based behind the gateway, HMAC bearer tokens otherwise
	var apiAuthMiddleware fiber.Handler
	if cfg.Gateway.Enabled {
		log.Println("Info: Gateway mode enabled — using header-based auth")
		apiAuthMiddleware = middleware.GatewayAuthMiddleware()
	} else {
		apiAuthMiddleware = middleware.NewAuthMiddleware(cfg.JWT.Secret).Authenticate()
	}
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    10 * 1024 * 1024, // 10MB
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
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
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
		_, ffmpegErr := exec.LookPath(cfg.Compose.FFmpegBin)
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"redis":  redisClient.Ping(c.Context()).Err() == nil,
				"r2":     r2Client != nil,
				"ffmpeg": ffmpegErr == nil,
			},
		})
	})

	// API routes
	api := app.Group("/api", apiAuthMiddleware)

	compose := api.Group("/compose")
	compose.Post("/start", rateLimiter.ComposeLimit(cfg.RateLimit.ComposePerHour), composeHandler.Start)
	compose.Get("/status/:jobId", composeHandler.Status)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/jobs/:jobId", websocket.New(func(c *websocket.Conn) {
		jobID := c.Params("jobId")
		hub.HandleConnection(c, jobID)
	}))

	// Start Asynq worker server
	go startWorkerServer(cfg, jobLedger, fetcher, storage, engine, webhooks, hub)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func startWorkerServer(
	cfg *config.Config,
	jobLedger ledger.Ledger,
	fetcher client.Fetcher,
	storage client.StorageClient,
	engine worker.MediaEngine,
	webhooks *client.WebhookClient,
	hub *ws.Hub,
) {
	asynqLogLevel := asynq.InfoLevel
	if strings.EqualFold(cfg.Server.LogLevel, "debug") {
		asynqLogLevel = asynq.DebugLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "warn") {
		asynqLogLevel = asynq.WarnLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "error") {
		asynqLogLevel = asynq.ErrorLevel
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			// The only cap on concurrent compositions; each task owns
			// an ffmpeg subprocess and a scratch directory.
			Concurrency: cfg.Compose.Concurrency,
			Queues: map[string]int{
				"compose": 10,
			},
			LogLevel: asynqLogLevel,
		},
	)

	composeWorker := worker.NewComposeWorker(
		jobLedger, fetcher, storage, engine, webhooks, hub, cfg.Compose.ScratchDir,
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(service.TaskTypeCompose, composeWorker.ProcessTask)

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
