package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	config "github.com/postdeckhq/postdeck/configs"
	"github.com/postdeckhq/postdeck/internal/api/handlers"
	"github.com/postdeckhq/postdeck/internal/api/middleware"
	"github.com/postdeckhq/postdeck/internal/events"
	job "github.com/postdeckhq/postdeck/internal/jobs"
	"github.com/postdeckhq/postdeck/internal/queue"
	"github.com/postdeckhq/postdeck/internal/repository"
	"github.com/postdeckhq/postdeck/internal/service"
	"github.com/robfig/cron"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

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

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    100 * 1024 * 1024, // 100 MB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	postRepo := repository.NewScheduledPostRepository(db)
	credentialRepo := repository.NewCredentialRepository(db)
	postMediaRepo := repository.NewPostMediaRepository(db)
	mediaAssetRepo := repository.NewMediaAssetRepository(db)
	historyRepo := repository.NewPublishHistoryRepository(db)
	kanbanRepo := repository.NewKanbanRepository(db)
	apiKeyRepository := repository.NewApiKeyRepository(db)

	bus := events.NewBus()
	kanbanMover := events.NewKanbanMover(kanbanRepo)
	bus.Subscribe(kanbanMover.HandlePostPublished)

	publishers := service.NewPublisherRegistry(
		service.NewTwitterService(*cfg),
		service.NewLinkedinService(*cfg),
	)

	r2Service := service.NewR2Service(*cfg)
	postService := service.NewPostService(db, postRepo, mediaAssetRepo, postMediaRepo)
	mediaService := service.NewMediaService(mediaAssetRepo, *r2Service)
	credentialService := service.NewCredentialService(*cfg, credentialRepo, publishers)
	connectService := service.NewConnectService(*cfg, credentialService)
	processorService := service.NewProcessorService(*cfg, postRepo, credentialRepo, postMediaRepo, historyRepo, publishers, bus)
	apiKeyService := service.NewApiKeyService(apiKeyRepository)

	authMiddleware := middleware.NewAuthMiddleware(*cfg, apiKeyService)

	platform := handlers.NewPlatformHandler(*cfg, connectService)
	app.Get("/auth/:platform", platform.ConnectAccount)
	app.Get("/auth/:platform/callback", platform.CallbackHandler)

	cronHandler := handlers.NewCronHandler(*cfg, processorService)
	app.Post("/cron/process-scheduled", cronHandler.ProcessScheduled)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	apiKeys := handlers.NewApiKeyHandler(apiKeyService)
	api.Post("/api_key/new", apiKeys.CreateApiKey)
	api.Get("/api_key/list", apiKeys.ListKeys)
	api.Post("/api_key/remove", apiKeys.RemoveAPIKey)

	post := handlers.NewPostHandler(postService, client)
	api.Post("/posts/create", post.CreatePost)
	api.Get("/posts", post.ListPosts)
	api.Post("/posts/retry", post.RetryPost)
	api.Post("/posts/remove", post.RemovePost)

	media := handlers.NewMediaHandler(mediaService)
	api.Post("/media/upload", media.UploadMedia)

	credential := handlers.NewCredentialHandler(credentialService)
	api.Post("/credentials/validate", credential.ValidateCredential)
	api.Get("/credentials", credential.ListCredentials)
	api.Post("/credentials/remove", credential.RemoveCredential)

	// cron jobs
	credentialCheckJob := job.NewCredentialCheckJob(*cfg, credentialRepo, credentialService)

	//queue
	queueW := queue.NewQueue(processorService)

	c := cron.New()
	c.AddFunc("@every 01h00m00s", credentialCheckJob.CheckCredentials)
	// safety net for posts whose queue task was lost
	c.AddFunc("@every 00h05m00s", func() {
		if _, err := processorService.ProcessDue(context.Background()); err != nil {
			log.Printf("Scheduled tick failed: %v", err)
		}
	})
	c.Start()

	go func() {
		server := asynq.NewServer(redisConn, asynq.Config{
			Concurrency: 10,
		})

		mux := asynq.NewServeMux()
		mux.HandleFunc(queue.TaskTypePublishPost, queueW.HandlePublishPostTask)

		log.Println("Starting the Asynq server...")
		if err := server.Run(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	go func() {
		if err := app.Listen(":3000"); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Println("Server is running on http://localhost:3000")

	gracefulShutdown(app, db)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, db *sql.DB) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}

	closeDB(db)
	log.Println("Server shutdown complete.")
}
