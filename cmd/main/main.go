package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crypto-tracker/src/config"
	"crypto-tracker/src/logger"
	"crypto-tracker/src/tracing"

	"github.com/joho/godotenv"
)

// -----------------------------------------------------------------------------

func main() {
	// 1. Parse command line flags
	configPath := flag.String("config", "../../config/default.yaml", "path to config file")
	envPath := flag.String("env", ".env", "optional dotenv file")
	flag.Parse()

	// 2. .env values become TRACKER_* overrides; a missing file is fine
	if err := godotenv.Load(*envPath); err != nil && !os.IsNotExist(err) {
		fmt.Printf("Error loading %s: %v\n", *envPath, err)
	}

	// 3. Load config
	conf, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// 4. Setup Logger and Tracing
	appLogger := logger.NewLogger(conf, conf.Name)

	if err := tracing.Init(conf.Name, conf.TracingEnabled); err != nil {
		appLogger.Warning("Tracing disabled: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		tracing.Shutdown(ctx)
	}()

	// 5. Setup Components
	store, err := setupStore(conf.MConfig, appLogger)
	if err != nil {
		appLogger.Critical("Failed to init watchlist store: %v", err)
	}
	if store != nil {
		defer store.Close()
	}

	networkManager := setupNetwork(conf.MConfig)
	source := setupTickerClient(conf.MConfig, networkManager)
	known := setupCatalog(conf.MConfig)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tracker := setupTracker(ctx, conf.MConfig, source, store, appLogger)
	defer tracker.Dispose()

	// 6. Start Servers
	servers := startServers(conf, *configPath, tracker, known, appLogger)
	defer servers.stop()

	// 7. Wait for a signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-quit:
		appLogger.Info("Received %v, shutting down...", sig)
	case err := <-servers.errs:
		appLogger.Error("Server failed: %v", err)
	}
}
