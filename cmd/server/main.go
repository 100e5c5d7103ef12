package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/membership/backend/internal/config"
	"github.com/membership/backend/internal/database"
	"github.com/membership/backend/internal/handlers"
	"github.com/membership/backend/internal/middleware"
	"github.com/membership/backend/internal/notify"
	"github.com/membership/backend/internal/router"
	"github.com/membership/backend/internal/services"
	"github.com/membership/backend/internal/storage"
	"github.com/membership/backend/pkg/logger"
	"github.com/membership/backend/pkg/utils"
)

func main() {
	logger.Init()

	cfg := config.Load()
	utils.ConfigureJWT(cfg.JWT.Secret, cfg.JWT.ExpirationHours)

	db, err := database.Connect(cfg.DB)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	var auditStore storage.ObjectStore
	if cfg.MinIO.Enabled {
		storageClient, err := storage.NewMinIOClient(cfg.MinIO)
		if err != nil {
			log.Fatalf("minio initialization failed: %v", err)
		}
		if err := storageClient.EnsureBucket(ctx); err != nil {
			log.Fatalf("failed ensuring minio bucket: %v", err)
		}
		auditStore = storageClient
	}

	auditService := services.NewAuditService(db, auditStore, cfg.Audit.QueueSize)
	auditService.StartExporter(ctx, cfg.Audit.ExportInterval)

	transport, err := notify.NewTransport(cfg.Email)
	if err != nil {
		log.Fatalf("email transport initialization failed: %v", err)
	}
	mailer := notify.NewMailer(cfg.Email, transport)
	notifier := services.NewSignupNotifier(mailer, 2*cfg.Email.Timeout)

	app := fiber.New(fiber.Config{BodyLimit: cfg.Server.BodyLimit})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS(cfg.Server.FrontendURL))
	app.Use(middleware.RequestLogger())
	app.Use(middleware.SecurityLogger())

	router.Mount(app, router.Routes(router.Dependencies{
		Auth:         handlers.NewAuthHandler(db, auditService),
		Branches:     handlers.NewBranchesHandler(db),
		Members:      handlers.NewMembersHandler(db, auditService, notifier),
		Groups:       handlers.NewGroupsHandler(db, auditService),
		GroupMembers: handlers.NewGroupMembersHandler(db, auditService),
		Audit:        handlers.NewAuditHandler(db),
		Middleware:   middleware.NewAuthMiddleware(db),
	}))

	listenAddr := fmt.Sprintf(":%s", cfg.Server.Port)

	logger.Info("server_starting", map[string]interface{}{
		"port":          cfg.Server.Port,
		"address":       listenAddr,
		"db_driver":     cfg.DB.Driver,
		"audit_export":  cfg.MinIO.Enabled,
		"email_service": cfg.Email.Service,
		"version":       handlers.Version,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(listenAddr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Printf("shutting down server due to signal: %s", sig)
		stop()
		shutdownDone := make(chan struct{})
		go func() {
			_ = app.Shutdown()
			close(shutdownDone)
		}()
		select {
		case <-shutdownDone:
		case <-time.After(10 * time.Second):
			log.Print("forced shutdown timeout reached")
		}
	case err := <-errCh:
		if err != nil {
			log.Fatalf("server error: %v", err)
		}
	}
}
