// ./internal/state/db.go
package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"
)

// DB is a global database connection pool.
var DB *sql.DB

// DBConfig holds database connection parameters.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string // "disable", "require", "verify-full", etc.
}

// InitDB initializes the database connection pool.
func InitDB(cfg DBConfig) error {
	psqlInfo := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	var err error
	DB, err = sql.Open("postgres", psqlInfo)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(25)
	DB.SetConnMaxLifetime(5 * time.Minute)

	err = DB.Ping()
	if err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Msg("Successfully connected to the PostgreSQL database!")
	return nil
}

// CloseDB closes the database connection pool.
func CloseDB() {
	if DB != nil {
		log.Info().Msg("Closing database connection...")
		if err := DB.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database connection")
		}
	}
}

// EnsureSchema applies the necessary DDL to create tables if they don't exist.
func EnsureSchema() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	schemaSQL := `
		-- Single-row mirror of the token economy state. The chain is the
		-- authority; this row survives restarts between reconciles.
		CREATE TABLE IF NOT EXISTS economy_state (
			id INTEGER PRIMARY KEY DEFAULT 1,
			total_supply_hp NUMERIC(38, 18) NOT NULL,
			total_collateral_usdt NUMERIC(38, 18) NOT NULL,
			reserve_ratio_percent INTEGER NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT single_row_check CHECK (id = 1)
		);

		CREATE TABLE IF NOT EXISTS stake_records (
			id UUID PRIMARY KEY,
			owner_account VARCHAR(64) NOT NULL,
			amount_hp NUMERIC(38, 18) NOT NULL,
			value_usd_at_stake NUMERIC(38, 18) NOT NULL,
			start_time TIMESTAMPTZ NOT NULL,
			end_time TIMESTAMPTZ NOT NULL,
			apr_bps BIGINT NOT NULL,
			status VARCHAR(16) NOT NULL,
			early_withdrawal BOOLEAN NOT NULL DEFAULT FALSE,
			withdrawn_by VARCHAR(16),
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_stake_records_owner ON stake_records(owner_account, created_at);
		CREATE INDEX IF NOT EXISTS idx_stake_records_status ON stake_records(status);

		CREATE TABLE IF NOT EXISTS operation_receipts (
			receipt_id SERIAL PRIMARY KEY,
			op_timestamp TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			op_type VARCHAR(32) NOT NULL,
			account VARCHAR(64) NOT NULL,
			amount_hp NUMERIC(38, 18),
			amount_usdt NUMERIC(38, 18),
			tx_hash VARCHAR(80),
			success BOOLEAN NOT NULL,
			message TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_operation_receipts_timestamp ON operation_receipts(op_timestamp DESC);
		CREATE INDEX IF NOT EXISTS idx_operation_receipts_account ON operation_receipts(account);
		CREATE INDEX IF NOT EXISTS idx_operation_receipts_type ON operation_receipts(op_type);
	`
	_, err := DB.Exec(schemaSQL)
	if err != nil {
		return fmt.Errorf("failed to execute schema DDL: %w", err)
	}
	log.Info().Msg("Database schema ensured.")
	return nil
}

// TestDBConnection tests if the database connection is healthy
func TestDBConnection() error {
	if DB == nil {
		return fmt.Errorf("database connection is nil")
	}

	// Use a short timeout context for health checks
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := DB.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	return nil
}
