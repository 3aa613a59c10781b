package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"crypto-tracker/src/helpers"
	"crypto-tracker/src/logger"
	"crypto-tracker/src/models"

	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------

type SQLiteStore struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewSQLiteStore(cfg *models.MConfig, log *logger.Logger) *SQLiteStore {
	return &SQLiteStore{
		Config: cfg,
		Logger: log,
	}
}

// -----------------------------------------------------------------------------

func (d *SQLiteStore) Initialize() error {
	dsn := d.Config.Storage.DBPath

	if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return helpers.NewDatabaseError("failed to create database directory", err)
			}
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return helpers.NewDatabaseError("failed to open sqlite", err)
	}

	// One connection keeps :memory: databases alive and serializes writers
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return helpers.NewDatabaseError("failed to reach sqlite", err)
	}

	d.DB = db

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	query := `
		CREATE TABLE IF NOT EXISTS watchlist (
			symbol TEXT PRIMARY KEY,
			position INTEGER NOT NULL,
			added_at INTEGER NOT NULL
		);
	`
	if _, err := db.Exec(query); err != nil {
		return helpers.NewDatabaseError("failed to create watchlist", err)
	}

	d.Logger.Info("SQLite watchlist ready at %s", dsn)
	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteStore) LoadSymbols() ([]string, error) {
	rows, err := d.DB.Query("SELECT symbol FROM watchlist ORDER BY position")
	if err != nil {
		return nil, helpers.NewDatabaseError("failed to load watchlist", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, helpers.NewDatabaseError("failed to scan watchlist", err)
		}
		symbols = append(symbols, s)
	}

	if err := rows.Err(); err != nil {
		return nil, helpers.NewDatabaseError("failed to read watchlist", err)
	}
	return symbols, nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteStore) AddSymbol(symbol string) error {
	query := `
		INSERT OR IGNORE INTO watchlist (symbol, position, added_at)
		VALUES (?, (SELECT COALESCE(MAX(position), 0) + 1 FROM watchlist), ?)
	`
	if _, err := d.DB.Exec(query, symbol, time.Now().Unix()); err != nil {
		return helpers.NewDatabaseError(fmt.Sprintf("failed to store %s", symbol), err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteStore) RemoveSymbol(symbol string) error {
	if _, err := d.DB.Exec("DELETE FROM watchlist WHERE symbol = ?", symbol); err != nil {
		return helpers.NewDatabaseError(fmt.Sprintf("failed to remove %s", symbol), err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteStore) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
