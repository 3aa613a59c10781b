package storage

import (
	"crypto-tracker/src/helpers"
	"crypto-tracker/src/interfaces"
	"crypto-tracker/src/logger"
	"crypto-tracker/src/models"
)

// NewWatchlistStore builds and initializes the store selected by
// storage.db_type. The memory type has no store and returns nil.
func NewWatchlistStore(cfg *models.MConfig, log *logger.Logger) (interfaces.IWatchlistStore, error) {
	var store interfaces.IWatchlistStore

	switch cfg.Storage.DBType {
	case "memory", "":
		return nil, nil
	case "postgres":
		pg, err := NewPostgresStore(cfg, log)
		if err != nil {
			return nil, helpers.NewDatabaseError("failed to create postgres store", err)
		}
		store = pg
	case "sqlite":
		store = NewSQLiteStore(cfg, log)
	default:
		return nil, helpers.NewConfigurationError("unknown database type "+cfg.Storage.DBType, nil)
	}

	if err := store.Initialize(); err != nil {
		return nil, err
	}
	return store, nil
}
