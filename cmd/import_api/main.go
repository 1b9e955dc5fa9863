package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/propcrm-transaction-import/internal/config"
	"github.com/propcrm-transaction-import/internal/data/mongo"
	"github.com/propcrm-transaction-import/internal/data/postgres"
	"github.com/propcrm-transaction-import/internal/import_api"
	"github.com/propcrm-transaction-import/internal/importer/match"
	"github.com/propcrm-transaction-import/internal/importer/service"
	"github.com/propcrm-transaction-import/internal/logger"
	"github.com/propcrm-transaction-import/internal/platform/messaging/producers"
	"github.com/propcrm-transaction-import/internal/platform/persistence"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("import_api")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	// Initialize databases with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	// Initialize Kafka producer for batch lifecycle events
	eventProducer, err := producers.NewBatchEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize batch event producer", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	transactionRepo := postgres.NewTransactionRepository(log, postgresDB)
	propertyRepo := postgres.NewPropertyRepository(log, postgresDB)
	customerRepo := postgres.NewCustomerRepository(log, postgresDB)
	paymentSourceRepo := postgres.NewPaymentSourceRepository(log, postgresDB)
	auditRepo := mongo.NewAuditRepository(log, mongoDB.Database())

	// Initialize entity resolvers
	matchOpts := match.Options{
		FuzzyThreshold: cfg.Matching.FuzzyThreshold,
		MaxCandidates:  cfg.Matching.MaxCandidates,
	}
	propertyResolver := match.NewPropertyResolver(propertyRepo, matchOpts, log)
	customerResolver := match.NewCustomerResolver(customerRepo, matchOpts, log)

	// Initialize services
	importService, err := service.NewHistoricalImportService(
		log,
		transactionRepo,
		propertyResolver,
		customerResolver,
		paymentSourceRepo,
		auditRepo,
		eventProducer,
		cfg.Import,
		cfg.WorkerPool,
	)
	if err != nil {
		log.Error("Failed to initialize import service", "error", err)
		os.Exit(1)
	}
	batchService := service.NewBatchManagementService(log, transactionRepo, auditRepo, eventProducer)

	// Initialize REST server
	server := import_api.NewServer(log, cfg, importService, batchService)
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Shutdown HTTP server first so no new imports start mid-teardown
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	// Release the row analysis worker pool
	importService.Shutdown()

	if err = eventProducer.Close(); err != nil {
		log.Error("Error closing Kafka producer", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
