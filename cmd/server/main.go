package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/genereveal-server/internal/api"
	"github.com/genereveal-server/internal/cache"
	"github.com/genereveal-server/internal/config"
	"github.com/genereveal-server/internal/export"
	"github.com/genereveal-server/internal/logging"
	"github.com/genereveal-server/internal/schema"
	"github.com/genereveal-server/internal/session"
	"github.com/genereveal-server/pkg/predictor"
)

func main() {
	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := logging.New(cfg.Logging)
	logger.WithFields(logrus.Fields{
		"host":        cfg.Server.Host,
		"port":        cfg.Server.Port,
		"environment": cfg.Environment,
		"predictor":   cfg.Predictor.BaseURL,
	}).Info("Starting GeneReveal server")

	modelCache, err := cache.NewModelCache(cfg.Cache, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create model cache")
	}
	defer modelCache.Close()

	client := predictor.NewClient(cfg.Predictor, logger, predictor.WithCache(modelCache))
	defer client.Close()

	sessions, err := session.NewStore(schema.Default(), cfg.Session, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create session store")
	}

	// Export is optional; reports are still served without it
	sink, err := export.New(cfg.Export)
	if err != nil {
		logger.WithError(err).Warn("Report export disabled")
		sink = nil
	}

	server := api.NewServer(configManager, logger, client, sessions, sink)

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Error("Server stopped with error")
		return
	}

	logger.Info("Server stopped")
}
