package main

import (
	"context"

	"github.com/quatton/qseq/pkg/config"
	"github.com/quatton/qseq/pkg/db"
	"github.com/quatton/qseq/pkg/qlog"
)

func main() {
	logger := qlog.NewDefault()
	ctx := context.Background()

	env, err := config.LoadEnv()
	if err != nil {
		logger.Fatalf("failed to process env vars: %v", err)
	}

	database, err := db.New(ctx, env.DB)
	if err != nil {
		logger.Fatalf("failed to connect to database: %v", err)
	}
	defer database.Close()

	logger.Info("Running migrations...")
	if err := db.Migrate(ctx, database, logger); err != nil {
		logger.Fatalf("failed to migrate: %v", err)
	}
	logger.Info("Migrations completed successfully.")
}
