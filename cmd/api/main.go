package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mehdiakbarifar/chavosh/internal/app"
	"github.com/mehdiakbarifar/chavosh/internal/attach"
	"github.com/mehdiakbarifar/chavosh/internal/chat"
	"github.com/mehdiakbarifar/chavosh/internal/config"
	"github.com/mehdiakbarifar/chavosh/internal/email"
	"github.com/mehdiakbarifar/chavosh/internal/identity"
	"github.com/mehdiakbarifar/chavosh/internal/registry"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx := context.Background()

	if strings.TrimSpace(cfg.AdminEmail) == "" {
		log.Fatalf("ADMIN_EMAIL is required")
	}

	var regStore registry.Store
	switch {
	case strings.TrimSpace(cfg.DatabaseURL) != "":
		log.Printf("Using PostgreSQL for registry storage")
		pgStore, err := registry.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("database connection failed: %v", err)
		}
		defer pgStore.Close()
		regStore = pgStore
	case strings.TrimSpace(cfg.RedisURL) != "":
		log.Printf("Using Redis for registry storage")
		redisStore, err := registry.NewRedisStore(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer redisStore.Close()
		regStore = redisStore
	default:
		log.Printf("Using file storage for registry")
		fileStore, err := registry.NewFileStore(cfg.DataDir)
		if err != nil {
			log.Fatalf("failed to create data dir: %v", err)
		}
		regStore = fileStore
	}

	reg, err := registry.New(regStore, cfg.AdminEmail)
	if err != nil {
		log.Fatalf("invalid ADMIN_EMAIL: %v", err)
	}
	if err := reg.Load(ctx); err != nil {
		log.Fatalf("failed to load registry: %v", err)
	}

	var attachStore attach.Store
	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		log.Printf("Using MinIO for attachment storage")
		attachStore, err = attach.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			log.Fatalf("minio connection failed: %v", err)
		}
	} else {
		log.Printf("Using disk for attachment storage")
		attachStore, err = attach.NewDiskStore(cfg.UploadDir)
		if err != nil {
			log.Fatalf("failed to create upload dir: %v", err)
		}
	}

	var notifier *email.Service
	emailSvc := email.NewService(email.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
	})
	if emailSvc.IsConfigured() {
		notifier = emailSvc
	} else {
		log.Printf("SMTP not configured, approval notifications disabled")
	}

	adminPageURL := cfg.AdminPageURL
	if adminPageURL == "" && strings.TrimSpace(cfg.PublicURL) != "" {
		adminPageURL = strings.TrimRight(cfg.PublicURL, "/") + "/admin"
	}

	verifier := identity.NewTokenVerifier(cfg.ProviderSecret)
	msgLog := chat.NewLog(attachStore)
	service := app.NewService(reg, msgLog, attachStore, verifier, notifier, adminPageURL)

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Chavosh API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
