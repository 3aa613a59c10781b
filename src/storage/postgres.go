package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"crypto-tracker/src/helpers"
	"crypto-tracker/src/logger"
	"crypto-tracker/src/models"

	_ "github.com/lib/pq"
)

// -----------------------------------------------------------------------------

type PostgresStore struct {
	Config *models.MConfig
	DB     *sql.DB
	Schema string
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

// NewPostgresStore uses the executable name as schema so several trackers can
// share one database.
func NewPostgresStore(cfg *models.MConfig, log *logger.Logger) (*PostgresStore, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable name: %w", err)
	}
	name := filepath.Base(exe)
	name = strings.TrimSuffix(name, filepath.Ext(name))

	return &PostgresStore{
		Config: cfg,
		Schema: name,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresStore) table() string {
	return fmt.Sprintf(`"%s"."watchlist"`, d.Schema)
}

// -----------------------------------------------------------------------------

func (d *PostgresStore) Initialize() error {
	dsn := d.Config.Storage.DBConnectionString
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return helpers.NewDatabaseError("failed to open postgres", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return helpers.NewDatabaseError("failed to reach postgres", err)
	}

	d.DB = db

	if _, err := d.DB.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, d.Schema)); err != nil {
		return helpers.NewDatabaseError(fmt.Sprintf("failed to create schema %s", d.Schema), err)
	}

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			symbol TEXT PRIMARY KEY,
			position BIGSERIAL,
			added_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`, d.table())
	if _, err := d.DB.Exec(query); err != nil {
		return helpers.NewDatabaseError("failed to create watchlist", err)
	}

	d.Logger.Info("PostgresStore initialized successfully (Schema: %s)", d.Schema)
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresStore) LoadSymbols() ([]string, error) {
	rows, err := d.DB.Query(fmt.Sprintf(`SELECT symbol FROM %s ORDER BY position`, d.table()))
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

func (d *PostgresStore) AddSymbol(symbol string) error {
	query := fmt.Sprintf(`INSERT INTO %s (symbol) VALUES ($1) ON CONFLICT (symbol) DO NOTHING`, d.table())
	if _, err := d.DB.Exec(query, symbol); err != nil {
		return helpers.NewDatabaseError(fmt.Sprintf("failed to store %s", symbol), err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresStore) RemoveSymbol(symbol string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE symbol = $1`, d.table())
	if _, err := d.DB.Exec(query, symbol); err != nil {
		return helpers.NewDatabaseError(fmt.Sprintf("failed to remove %s", symbol), err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresStore) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
