package main

import (
	"context"
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/happy-paisa/hpe/internal/chain"
	"github.com/happy-paisa/hpe/internal/collateral"
	"github.com/happy-paisa/hpe/internal/config"
	"github.com/happy-paisa/hpe/internal/engine"
	"github.com/happy-paisa/hpe/internal/logger"
	"github.com/happy-paisa/hpe/internal/pricing"
	"github.com/happy-paisa/hpe/internal/staking"
	"github.com/happy-paisa/hpe/internal/state"
	"github.com/happy-paisa/hpe/internal/web"
)

const (
	RECONCILE_INTERVAL = 5 * time.Minute
)

// main is the entry point for the Happy Paisa engine.
func main() {
	// --- 1. Initialization Phase ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Initialize(os.Getenv("LOG_LEVEL"))
	log.Info().Msg("Happy Paisa engine starting...")

	// Initialize Database Connection
	dbCfg := state.DBConfig{
		Host: os.Getenv("DB_HOST"), Port: mustAtoi(os.Getenv("DB_PORT"), 5432),
		User: os.Getenv("DB_USER"), Password: os.Getenv("DB_PASSWORD"),
		DBName: os.Getenv("DB_NAME"), SSLMode: os.Getenv("DB_SSLMODE"),
	}
	if err := state.InitDB(dbCfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer state.CloseDB()
	if err := state.EnsureSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure database schema")
	}

	// --- 2. Core State Restoration ---
	accountant, err := collateral.NewAccountant(collateral.PegRateUSDTPerHP, config.InitialReserveRatioPercent)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create reserve accountant")
	}

	persisted, err := state.LoadEconomyState()
	switch {
	case err == nil:
		if err := accountant.Restore(persisted.TotalSupplyHP, persisted.TotalCollateralUSDT, persisted.ReserveRatioPercent); err != nil {
			log.Fatal().Err(err).Msg("Persisted economy state is invalid")
		}
		log.Info().Msg("Economy state restored from store.")
	case errors.Is(err, state.ErrNoEconomyState):
		log.Info().Msg("No persisted economy state, starting fresh; first reconcile will populate it.")
	default:
		log.Fatal().Err(err).Msg("Failed to load persisted economy state")
	}

	ledger, err := staking.NewLedger(staking.DefaultParams())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create staking ledger")
	}
	stakeRecords, err := state.LoadAllStakeRecords()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load stake records")
	}
	if err := ledger.Restore(stakeRecords); err != nil {
		log.Fatal().Err(err).Msg("Failed to restore staking ledger")
	}

	// --- 3. External Collaborators ---
	gateway, err := chain.NewClient(config.RPCEndpoint, config.HPTokenAddress, config.USDTTokenAddress)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize chain client")
	}
	defer gateway.Close()

	priceFeed, err := pricing.NewHTTPFeed(config.PriceAPIURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize price feed")
	}

	// --- 4. Create Engine with Dependency Injection ---
	eng, err := engine.New(engine.Config{
		Gateway:    gateway,
		Accountant: accountant,
		Ledger:     ledger,
		PriceFeed:  priceFeed,
		Store:      state.PGStore{},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create engine")
	}
	log.Info().Msg("Engine created successfully")

	// --- 5. Start Web Server ---
	webPort := os.Getenv("WEB_PORT")
	if webPort == "" {
		webPort = "8080"
	}

	webServer := web.NewWebServer(webPort, eng, config.OwnerAPIToken)
	go func() {
		log.Info().Str("port", webPort).Str("url", "http://localhost:"+webPort).Msg("Starting engine web API")
		if err := webServer.Start(); err != nil {
			log.Error().Err(err).Msg("Web server failed to start")
		}
	}()

	// --- 6. Start Reconcile Loop ---
	log.Info().Str("interval", RECONCILE_INTERVAL.String()).Msg("Starting reconcile loop")

	ctx := context.Background()
	eng.RunLoop(ctx, RECONCILE_INTERVAL)
}

// Helper to convert string to int with a default value
func mustAtoi(s string, defaultValue int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return i
}
