package main

import (
	"context"

	"crypto-tracker/src/catalog"
	"crypto-tracker/src/data_source/mercado"
	"crypto-tracker/src/interfaces"
	"crypto-tracker/src/logger"
	"crypto-tracker/src/models"
	"crypto-tracker/src/network"
	"crypto-tracker/src/storage"
	"crypto-tracker/src/tracker"
)

// -----------------------------------------------------------------------------

// setupStore opens the watch-list store selected by storage.db_type
func setupStore(config *models.MConfig, appLogger *logger.Logger) (interfaces.IWatchlistStore, error) {
	storeLogger := logger.NewLogger(config, "WatchlistStore")
	store, err := storage.NewWatchlistStore(config, storeLogger)
	if err != nil {
		return nil, err
	}

	if store == nil {
		appLogger.Info("Watch list kept in memory only")
		return nil, nil
	}

	// Postgres may reference symbols held in another table
	if pg, ok := store.(*storage.PostgresStore); ok {
		expanded, err := pg.ExpandWatchlist(config.Watchlist)
		if err != nil {
			appLogger.Error("Failed to expand watchlist references: %v", err)
		} else {
			config.Watchlist = expanded
		}
	}

	return store, nil
}

// -----------------------------------------------------------------------------

// setupNetwork initializes the network manager
func setupNetwork(config *models.MConfig) interfaces.INetworkManager {
	networkLogger := logger.NewLogger(config, "NetworkManager")
	return network.NewAsyncNetworkManager(config, networkLogger)
}

// -----------------------------------------------------------------------------

func setupTickerClient(config *models.MConfig, networkManager interfaces.INetworkManager) *mercado.TickerClient {
	return mercado.NewTickerClient(config, networkManager)
}

// -----------------------------------------------------------------------------

func setupCatalog(config *models.MConfig) *catalog.Catalog {
	return catalog.New(config.KnownAssets)
}

// -----------------------------------------------------------------------------

// setupTracker restores the stored watch list, adds the configured one and
// starts the refresh timer
func setupTracker(
	ctx context.Context,
	config *models.MConfig,
	source interfaces.ITickerSource,
	store interfaces.IWatchlistStore,
	appLogger *logger.Logger,
) *tracker.Tracker {
	t := tracker.New(config, source, store, logger.NewLogger(config, "Tracker"))

	if err := t.Restore(); err != nil {
		appLogger.Error("Failed to restore watch list: %v", err)
	}
	for _, symbol := range config.Watchlist {
		t.AddAsset(symbol)
	}

	t.Start(ctx)
	appLogger.Info("Tracking %d assets every %v", len(t.Symbols()), config.RefreshInterval())
	return t
}
