// Command hunter is a terminal client for the treasure store: it warms up
// from the local snapshot, lists the active clusters, and persists the
// reconciled working set for the next run.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"gold-ticket-system/client"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, reading environment variables directly")
	}

	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	baseURL := os.Getenv("STORE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:5300"
	}
	snapshotPath := os.Getenv("SNAPSHOT_PATH")
	if snapshotPath == "" {
		snapshotPath = "treasures.json"
	}

	api := client.NewAPI(baseURL, logger)
	guard := client.NewSubmissionGuard(time.Second, nil)
	coordinator := client.NewCoordinator(api, nil, nil, guard, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	snapshot := client.FileSnapshotStore{Path: snapshotPath}
	if err := coordinator.Bootstrap(ctx, snapshot); err != nil {
		logger.Fatal("could not reach treasure store",
			zap.String("store_url", baseURL), zap.Error(err))
	}

	clusters := coordinator.Clusters()
	logger.Info("active treasure clusters", zap.Int("count", len(clusters)))
	for _, c := range clusters {
		fmt.Printf("%-40s %3d box(es) across %d drop(s)\n", c.Key, c.RemainingBoxes, len(c.Treasures))
	}

	client.SaveWorkingSet(snapshot, coordinator.Treasures(), logger)
}
