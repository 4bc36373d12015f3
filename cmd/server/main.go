package main

import (
	"context"
	"log"
	"os"
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
	fiberSwagger "github.com/gofiber/swagger"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/slidereel/api/docs"
	"github.com/slidereel/api/internal/catalog"
	"github.com/slidereel/api/internal/client"
	"github.com/slidereel/api/internal/config"
	"github.com/slidereel/api/internal/handler"
	"github.com/slidereel/api/internal/middleware"
	"github.com/slidereel/api/internal/service"
	ws "github.com/slidereel/api/internal/websocket"
	"github.com/slidereel/api/internal/worker"
	"github.com/slidereel/api/internal/workspace"
)

// @title          SlideReel API
// @version        1.0
// @description    Backend API for SlideReel — narrated slideshow video assembly.
// @host           localhost:8000
// @BasePath       /
// @schemes        http https
// @securityDefinitions.apikey BearerAuth
// @in             header
// @name           Authorization
// @description    Enter your bearer token in the format **Bearer &lt;token&gt;**
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Configure Swagger host/scheme based on environment
	if cfg.Server.ApiDomain != "" {
		docs.SwaggerInfo.Host = cfg.Server.ApiDomain
		docs.SwaggerInfo.Schemes = []string{"https"}
	} else {
		docs.SwaggerInfo.Host = "localhost:" + cfg.Server.Port
		docs.SwaggerInfo.Schemes = []string{"http"}
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

	// Initialize storage backend
	var storageClient client.StorageClient
	if cfg.Storage.Backend == "r2" {
		storageClient, err = client.NewR2Client(&cfg.Storage.R2)
		if err != nil {
			log.Fatalf("Failed to initialize R2 storage: %v", err)
		}
	} else {
		storageClient, err = client.NewLocalStore(cfg.Storage.LocalDir)
		if err != nil {
			log.Fatalf("Failed to initialize local storage: %v", err)
		}
		log.Printf("Info: using local storage at %s", cfg.Storage.LocalDir)
	}

	// Load read-only catalogs
	catalogs, err := catalog.Load(cfg.Catalog.SoundtracksPath, cfg.Catalog.FiltersPath)
	if err != nil {
		log.Fatalf("Failed to load catalogs: %v", err)
	}
	log.Printf("Loaded %d soundtracks, %d filters", len(catalogs.Soundtracks()), len(catalogs.Filters()))

	// Workspace manager for per-run intermediate blobs
	workspaces, err := workspace.NewManager(cfg.Assembly.WorkspaceRoot)
	if err != nil {
		log.Fatalf("Failed to initialize workspace root: %v", err)
	}

	// Initialize services
	assetService := service.NewAssetService(storageClient)
	runService := service.NewRunService(redisClient, asynqClient)

	// Initialize handlers
	assemblyHandler := handler.NewAssemblyHandler(runService, assetService, validate, cfg.Assembly.MaxUploadBytes)
	catalogHandler := handler.NewCatalogHandler(catalogs)
	authHandler := handler.NewAuthHandler(cfg.JWT.Secret)

	// Initialize middleware
	var apiAuthMiddleware fiber.Handler
	if cfg.Gateway.Enabled {
		// Behind Traefik: auth is handled by ForwardAuth, read X-User-* headers
		log.Println("Info: Gateway mode enabled — using header-based auth")
		apiAuthMiddleware = middleware.GatewayAuthMiddleware()
	} else {
		apiAuthMiddleware = middleware.NewAuthMiddleware(cfg.JWT.Secret).Authenticate()
	}
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    400 * 1024 * 1024, // 30 images + narration in one multipart body
	})

	// Global middleware
	app.Use(recover.New())
	isDebug := strings.EqualFold(cfg.Server.LogLevel, "debug")
	logFormat := "[${time}] ${status} - ${latency} ${method} ${path}\n"
	if isDebug {
		logFormat = "[${time}] ${status} - ${latency} ${method} ${path} ${queryParams} ${reqHeaders}\n"
		log.Println("Debug logging enabled")
	}
	app.Use(logger.New(logger.Config{
		Format: logFormat,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
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
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"redis":    redisClient.Ping(c.Context()).Err() == nil,
				"storage":  cfg.Storage.Backend,
				"encoder":  cfg.Encoder.Mode,
				"catalogs": len(catalogs.Soundtracks()) + len(catalogs.Filters()),
				"auth":     cfg.JWT.Secret != "",
			},
		})
	})

	// Swagger UI
	app.Get("/swagger/*", fiberSwagger.HandlerDefault)

	// ForwardAuth verification endpoint (internal, called by Traefik)
	app.Get("/auth/verify", authHandler.Verify)

	// API routes
	api := app.Group("/api", apiAuthMiddleware)

	// Assembly routes
	asm := api.Group("/assembly")
	asm.Post("/start", rateLimiter.AssemblyLimit(cfg.RateLimit.AssemblyPerHour), assemblyHandler.Start)
	asm.Get("/status/:runId", rateLimiter.StatusLimit(cfg.RateLimit.StatusPerMin), assemblyHandler.Status)
	asm.Get("/result/:runId", assemblyHandler.Result)
	asm.Post("/cancel/:runId", assemblyHandler.Cancel)

	// Catalog routes
	cat := api.Group("/catalog")
	cat.Get("/soundtracks", catalogHandler.Soundtracks)
	cat.Get("/filters", catalogHandler.Filters)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/runs/:runId", websocket.New(func(c *websocket.Conn) {
		runID := c.Params("runId")
		hub.HandleConnection(c, runID)
	}))

	// Start Asynq worker server
	go startWorkerServer(cfg, runService, assetService, workspaces, catalogs, hub)

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
	runService *service.RunService,
	assetService *service.AssetService,
	workspaces *workspace.Manager,
	catalogs *catalog.Catalog,
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
			// Encode steps within a run are strictly serial; concurrency here
			// only governs how many independent runs execute at once.
			Concurrency: 2,
			Queues: map[string]int{
				"assembly": 10,
			},
			LogLevel: asynqLogLevel,
		},
	)

	assemblyWorker := worker.NewAssemblyWorker(cfg, runService, assetService, workspaces, catalogs, hub)

	mux := asynq.NewServeMux()
	mux.HandleFunc(service.TaskTypeAssembly, assemblyWorker.ProcessTask)

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
