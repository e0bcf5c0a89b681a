// Command migrate provisions the configured note store: the DynamoDB table
// with TTL enabled, or the PostgreSQL schema.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"share-note-backend/infrastructure/config"
	"share-note-backend/infrastructure/di"
	"share-note-backend/infrastructure/persistence/dynamodb"
	"share-note-backend/infrastructure/persistence/postgres"

	"go.uber.org/zap"
)

func main() {
	timeout := flag.Duration("timeout", 5*time.Minute, "overall provisioning timeout")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := di.ProvideLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Provisioning failed", zap.String("backend", cfg.StoreBackend), zap.Error(err))
	}
	logger.Info("Provisioning complete", zap.String("backend", cfg.StoreBackend))
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	switch cfg.StoreBackend {
	case config.BackendDynamoDB:
		awsCfg, err := di.ProvideAWSConfig(ctx, cfg)
		if err != nil {
			return err
		}
		client := di.ProvideDynamoDBClient(awsCfg, cfg)
		return dynamodb.EnsureTable(ctx, client, cfg.DynamoDBTable, logger)

	case config.BackendPostgres:
		db, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		return postgres.RunMigrations(ctx, db)

	default:
		logger.Info("Nothing to provision for this backend")
		return nil
	}
}
