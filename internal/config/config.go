package config

import (
	"errors"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
)

// AppConfig holds all application configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// RPCEndpoint is the EVM JSON-RPC endpoint of the target network (BSC).
	RPCEndpoint string

	// HPTokenAddress is the deployed HP token contract. The contract itself holds
	// the USDT collateral, so its USDT balance is the authoritative reserve figure.
	HPTokenAddress string
	// USDTTokenAddress is the USDT contract used as collateral.
	USDTTokenAddress string
	// OwnerAddress is the account that carries the owner capability on-chain.
	OwnerAddress string

	// OwnerAPIToken authenticates owner-gated HTTP endpoints (profit withdrawal,
	// reserve ratio changes, early unstake).
	OwnerAPIToken string

	// InitialReserveRatioPercent seeds the reserve ratio when no persisted
	// economy state exists yet. 105 means 5% over-collateralization.
	InitialReserveRatioPercent int64

	// PriceAPIURL is the HTTP endpoint serving the volatile HP/USD display price.
	// The HP/USDT peg itself is a constant and never fetched.
	PriceAPIURL string
)

// LoadConfig loads configuration from environment variables and sets the global config vars.
// All environment variables without a documented default are required.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	var err error

	RPCEndpoint, err = getEnv("HPE_RPC_ENDPOINT")
	if err != nil {
		return err
	}

	HPTokenAddress, err = getEnv("HPE_HP_TOKEN_ADDRESS")
	if err != nil {
		return err
	}

	USDTTokenAddress, err = getEnv("HPE_USDT_TOKEN_ADDRESS")
	if err != nil {
		return err
	}

	OwnerAddress, err = getEnv("HPE_OWNER_ADDRESS")
	if err != nil {
		return err
	}

	OwnerAPIToken, err = getEnv("HPE_OWNER_API_TOKEN")
	if err != nil {
		return err
	}

	PriceAPIURL, err = getEnv("HPE_PRICE_API_URL")
	if err != nil {
		return err
	}

	InitialReserveRatioPercent, err = getEnvAsInt64WithDefault("HPE_INITIAL_RESERVE_RATIO_PERCENT", 105)
	if err != nil {
		return err
	}

	log.Debug().
		Str("RPCEndpoint", RPCEndpoint).
		Str("HPToken", HPTokenAddress).
		Str("Owner", OwnerAddress).
		Int64("InitialReserveRatioPercent", InitialReserveRatioPercent).
		Msg("Configuration loaded successfully.")

	return nil
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

// getEnvAsInt64WithDefault retrieves an environment variable as an int64,
// falling back to a default when unset. Returns error if set but invalid.
func getEnvAsInt64WithDefault(key string, defaultValue int64) (int64, error) {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue, nil
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid int64, got: " + valueStr)
	}
	return value, nil
}
