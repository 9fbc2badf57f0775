package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/garanaibrahim7/expense-manager/internal/connectivity"
	"github.com/garanaibrahim7/expense-manager/internal/localstore"
	"github.com/garanaibrahim7/expense-manager/internal/logger"
	"github.com/garanaibrahim7/expense-manager/internal/remote"
	"github.com/garanaibrahim7/expense-manager/internal/syncengine"
)

func main() {
	// Initialize logger
	log := logger.New()

	db := flag.String("db", "expense-manager.db", "Path to the local SQLite database")
	user := flag.String("user", "", "User id whose rows are synced (required)")
	project := flag.String("project", "", "GCP project of the Firestore remote (required)")
	probeURL := flag.String("probe-url", "https://www.gstatic.com/generate_204", "URL probed to detect connectivity")
	probeInterval := flag.Duration("probe-interval", 30*time.Second, "Connectivity probe interval")
	sweepInterval := flag.Duration("sweep-interval", 5*time.Minute, "Periodic push sweep interval")
	flag.Parse()

	if *user == "" || *project == "" {
		log.Fatal().Msg("Error: -user and -project are required")
	}

	log.Info().Str("user_id", *user).Msg("Starting sync daemon")

	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	store, err := localstore.Open(*db)
	if err != nil {
		log.Fatal().Err(err).Str("db", *db).Msg("Failed to open local store")
	}
	defer store.Close()

	rs, err := remote.NewFirestoreStore(ctx, *project)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize Firestore remote")
	}
	defer rs.Close()

	probe := connectivity.NewProbe(*probeURL, *probeInterval)
	go probe.Run(ctx)

	engine := syncengine.New(store, rs, probe)

	// Login-time pull before the sweep loop starts.
	if err := engine.InitialPull(ctx, *user); err != nil {
		log.Warn().Err(err).Msg("Initial pull failed, continuing with local data")
	}

	// Sweep on reconnect notifications and on a steady timer. Sweeps are
	// idempotent, so an overlap between the two triggers is harmless.
	go func() {
		reconnects := probe.Subscribe()
		ticker := time.NewTicker(*sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-reconnects:
				log.Info().Msg("Connectivity restored, sweeping dirty rows")
			case <-ticker.C:
			}

			if _, err := engine.PushSweep(ctx, *user); err != nil {
				log.Warn().Err(err).Msg("Push sweep failed")
			}
		}
	}()

	log.Info().Msg("Sync daemon started, watching for dirty rows...")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down sync daemon...")
	cancel()

	// Final best-effort sweep so a clean shutdown leaves nothing dirty.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	shutdownCtx = logger.WithContext(shutdownCtx, log)
	if _, err := engine.PushSweep(shutdownCtx, *user); err != nil {
		log.Error().Err(err).Msg("Final push sweep failed")
	}

	log.Info().Msg("Sync daemon exited")
}
