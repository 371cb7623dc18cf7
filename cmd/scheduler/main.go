package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/joho/godotenv"
	config "github.com/maheshrc27/igscheduler/configs"
	"github.com/maheshrc27/igscheduler/internal/api"
	"github.com/maheshrc27/igscheduler/internal/api/handlers"
	"github.com/maheshrc27/igscheduler/internal/api/middleware"
	job "github.com/maheshrc27/igscheduler/internal/jobs"
	"github.com/maheshrc27/igscheduler/internal/service"
	"github.com/robfig/cron"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	switch len(cfg.SecretKey) {
	case 16, 24, 32:
	default:
		log.Fatalf("SECRET_KEY must be 16, 24 or 32 bytes, got %d", len(cfg.SecretKey))
	}

	if cfg.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: cfg.Environment,
		})
		if err != nil {
			log.Fatalf("sentry.Init: %s", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	ctx := context.Background()

	st, err := openStore(ctx, cfg)
	if err != nil {
		sentry.CaptureException(err)
		log.Fatalf("Failed to open store: %v", err)
	}

	credentialService := service.NewCredentialService(cfg.SecretKey, st.credentials)
	instagramService := service.NewInstagramService(cfg.Instagram, credentialService)
	postService := service.NewPostService(st.posts)

	routes := api.Handlers{
		Post:    handlers.NewPostHandler(postService),
		Account: handlers.NewAccountHandler(credentialService),
	}
	if cfg.R2.BucketName != "" {
		r2Service, err := service.NewR2Service(ctx, cfg.R2)
		if err != nil {
			log.Fatalf("Failed to configure R2: %v", err)
		}
		routes.Media = handlers.NewMediaHandler(service.NewMediaService(r2Service))
	}

	// cron jobs
	publishJob := job.NewPublishJob(st.posts, instagramService)
	refreshTokenJob := job.NewTokenRefreshJob(st.credentials, instagramService, cfg.SecretKey, cfg.Instagram.RefreshWindow)

	c := cron.New()
	if err := c.AddFunc(cfg.PublishInterval, publishJob.Run); err != nil {
		log.Fatalf("Invalid publish interval %q: %v", cfg.PublishInterval, err)
	}
	if err := c.AddFunc(cfg.Instagram.RefreshInterval, refreshTokenJob.RefreshTokens); err != nil {
		log.Fatalf("Invalid token refresh interval %q: %v", cfg.Instagram.RefreshInterval, err)
	}
	c.Start()
	log.Printf("Scheduler started (%s)", cfg.PublishInterval)

	app := fiber.New(fiber.Config{
		BodyLimit: 100 * 1024 * 1024, // 100 MB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})
	app.Use(logger.New())
	api.SetupRoutes(app, middleware.NewAuthMiddleware(cfg.SecretKey), routes)

	go func() {
		if err := app.Listen(cfg.ListenAddr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	gracefulShutdown(app, c, publishJob, st, cfg.ShutdownTimeout)
}

// gracefulShutdown stops new ticks, gives an in-flight tick the shutdown
// timeout to finish, then closes the store. Posts still being published when
// the timeout expires stay in processing.
func gracefulShutdown(app *fiber.App, c *cron.Cron, publishJob *job.PublishJob, st *store, timeout time.Duration) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down...")

	if err := app.Shutdown(); err != nil {
		log.Printf("Failed to shut down server: %v", err)
	}
	c.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := publishJob.Stop(ctx); err != nil {
		log.Printf("Publish tick still running after %s; in-flight posts stay processing", timeout)
	}

	st.Close()
	log.Println("Shutdown complete.")
}
