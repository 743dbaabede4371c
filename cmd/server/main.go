package main

import (
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/IsaiahDupree/MediaPoster-sub001/configs"
	"github.com/IsaiahDupree/MediaPoster-sub001/internal/adapter"
	"github.com/IsaiahDupree/MediaPoster-sub001/internal/api/handlers"
	"github.com/IsaiahDupree/MediaPoster-sub001/internal/api/middleware"
	job "github.com/IsaiahDupree/MediaPoster-sub001/internal/jobs"
	"github.com/IsaiahDupree/MediaPoster-sub001/internal/queue"
	"github.com/IsaiahDupree/MediaPoster-sub001/internal/repository"
	"github.com/IsaiahDupree/MediaPoster-sub001/internal/service"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()
	setupLogger(cfg.LogFormat)

	if path := os.Getenv("SCHEDULER_CONFIG"); path != "" {
		sc, err := config.LoadSchedulerFile(path, cfg.Scheduler)
		if err != nil {
			log.Fatalf("Failed to load scheduler config: %v", err)
		}
		cfg.Scheduler = sc
	}
	if err := cfg.Scheduler.Validate(); err != nil {
		log.Fatalf("Invalid scheduler config: %v", err)
	}

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()
	enqueuer := queue.NewEnqueuer(client)

	postRepo := repository.NewScheduledPostRepository(db)
	contentRepo := repository.NewContentRepository(db)
	socialAccountRepo := repository.NewSocialAccountRepository(db)

	r2Service := service.NewR2Service(cfg.R2)
	tokens := service.NewAccountTokenProvider(socialAccountRepo, cfg.SecretKey)

	adapters, err := buildAdapters(cfg, tokens)
	if err != nil {
		log.Fatalf("Failed to build platform adapters: %v", err)
	}
	registry, err := adapter.NewRegistry(adapters...)
	if err != nil {
		log.Fatalf("Failed to register platform adapters: %v", err)
	}
	registry.Freeze()

	resolver := service.NewContentResolver(contentRepo, r2Service)
	inventoryService := service.NewInventoryService(contentRepo, cfg.Scheduler)
	plannerService, err := service.NewPlannerService(inventoryService, postRepo, cfg.Scheduler)
	if err != nil {
		log.Fatalf("Failed to create planner: %v", err)
	}
	scheduleService, err := service.NewScheduleService(postRepo, contentRepo, plannerService, registry.Platforms(), cfg.Scheduler)
	if err != nil {
		log.Fatalf("Failed to create schedule service: %v", err)
	}
	publisherService := service.NewPublisherService(postRepo, resolver, registry, service.PublisherConfig{
		MaxRetries:         cfg.Scheduler.MaxRetries,
		Concurrency:        cfg.Scheduler.PublishConcurrency,
		LongFormMinSeconds: cfg.Scheduler.LongFormMinSeconds,
	})

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Minute,
		WriteTimeout: 10 * time.Minute,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			slog.Error(err.Error(), "path", c.Path())
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-API-Key",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	authMiddleware := middleware.NewAuthMiddleware(*cfg)
	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	handlers.Register(api,
		handlers.NewPostHandler(scheduleService, publisherService, enqueuer),
		handlers.NewScheduleHandler(inventoryService, plannerService, scheduleService),
	)

	// cron jobs
	publishDueJob := job.NewPublishDueJob(postRepo, enqueuer, cfg.Scheduler.DueBatchSize, cfg.Scheduler.MaxRetries)
	replanJob := job.NewReplanJob(plannerService)

	c := cron.New()
	if err := c.AddFunc(cfg.Scheduler.DuePollSpec, publishDueJob.EnqueueDue); err != nil {
		log.Fatalf("Invalid due poll spec: %v", err)
	}
	if err := c.AddFunc(cfg.Scheduler.ReplanSpec, replanJob.Replan); err != nil {
		log.Fatalf("Invalid replan spec: %v", err)
	}
	c.Start()

	//queue
	queueW := queue.NewQueue(publisherService, enqueuer)

	server := asynq.NewServer(redisConn, asynq.Config{
		Concurrency: cfg.Scheduler.PublishConcurrency,
	})
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskTypePublishPost, queueW.HandlePublishPostTask)

	log.Println("Starting the Asynq server...")
	if err := server.Start(mux); err != nil {
		log.Fatalf("Could not start Asynq server: %v", err)
	}

	go func() {
		if err := app.Listen(cfg.ListenAddr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	slog.Info("server is running", "addr", cfg.ListenAddr, "platforms", registry.Platforms(), "mode", cfg.PlatformMode)

	gracefulShutdown(app, server, c)
}

func setupLogger(format string) {
	var h slog.Handler
	if format == "json" {
		h = slog.NewJSONHandler(os.Stdout, nil)
	} else {
		h = slog.NewTextHandler(os.Stdout, nil)
	}
	slog.SetDefault(slog.New(h))
}

func buildAdapters(cfg *config.Config, tokens adapter.TokenProvider) ([]adapter.Adapter, error) {
	apiClient := &http.Client{Timeout: 2 * time.Minute}
	downloadClient := &http.Client{Timeout: 15 * time.Minute}

	adapters := make([]adapter.Adapter, 0, len(cfg.Scheduler.Platforms))
	for _, platform := range cfg.Scheduler.Platforms {
		var a adapter.Adapter
		switch {
		case cfg.PlatformMode == "mock":
			a = adapter.NewMock(platform)
		case platform == adapter.PlatformTikTok:
			a = adapter.NewTikTokAdapter(tokens, apiClient, "")
		case platform == adapter.PlatformInstagram:
			a = adapter.NewInstagramAdapter(tokens, apiClient, "")
		case platform == adapter.PlatformYouTube:
			a = adapter.NewYouTubeAdapter(tokens, downloadClient)
		default:
			return nil, fmt.Errorf("no live adapter for platform %q", platform)
		}
		adapters = append(adapters, adapter.WithRateLimit(a, cfg.Scheduler.PlatformRatePerSec, 1))
	}
	return adapters, nil
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, server *asynq.Server, c *cron.Cron) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	c.Stop()
	if err := app.Shutdown(); err != nil {
		log.Printf("Failed to shut down server: %v", err)
	}
	server.Shutdown()

	log.Println("Server shutdown complete.")
}
