package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"github.com/vicraft/backend/internal/auth"
	"github.com/vicraft/backend/internal/config"
	"github.com/vicraft/backend/internal/database"
	"github.com/vicraft/backend/internal/paypal"
	"github.com/vicraft/backend/internal/repository"
	"github.com/vicraft/backend/internal/server"
	"github.com/vicraft/backend/internal/service"
	"github.com/vicraft/backend/internal/shortapi"
	"github.com/vicraft/backend/internal/storage"
	"github.com/vicraft/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logr := logger.New()

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("database connect: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("database migrate: %v", err)
	}

	shortapiClient := shortapi.NewClient(cfg, logr)
	paypalClient := paypal.NewClient(cfg, logr)
	verifier := auth.NewVerifier(cfg.JWTSecret)

	userRepo := repository.NewUserRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	historyRepo := repository.NewHistoryRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)

	userService := service.NewUserService(userRepo, cfg.WelcomeCoins, logr)
	catalogService := service.NewCatalogService(catalogRepo, logr)
	generationService := service.NewGenerationService(catalogRepo, userRepo, historyRepo, shortapiClient, logr)
	paymentService := service.NewPaymentService(orderRepo, userRepo, catalogRepo, paypalClient, cfg, logr)
	maintenanceService := service.NewMaintenanceService(historyRepo, shortapiClient, generationService, cfg.HistoryRetentionDays, logr)

	if err := catalogService.EnsureDefaults(ctx); err != nil {
		log.Fatalf("ensure catalog defaults: %v", err)
	}

	uploader, err := storage.NewUploader(cfg)
	if err != nil {
		log.Fatalf("storage uploader: %v", err)
	}

	srv := server.NewServer(cfg, logr, verifier, userService, generationService, paymentService, catalogService, maintenanceService, uploader)
	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logr.Error("server stopped", "err", err)
	}
}
