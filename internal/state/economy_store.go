package state

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"
)

// ErrNoEconomyState is returned when no persisted economy state exists yet.
var ErrNoEconomyState = errors.New("no persisted economy state")

// EconomyState is the persisted single-row economy snapshot.
type EconomyState struct {
	TotalSupplyHP       sdkmath.LegacyDec
	TotalCollateralUSDT sdkmath.LegacyDec
	ReserveRatioPercent int64
	UpdatedAt           time.Time
}

// SaveEconomyState upserts the single economy state row.
func SaveEconomyState(totalSupplyHP, totalCollateralUSDT sdkmath.LegacyDec, reserveRatioPercent int64) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	stmt := `
		INSERT INTO economy_state (id, total_supply_hp, total_collateral_usdt, reserve_ratio_percent, updated_at)
		VALUES (1, $1, $2, $3, CURRENT_TIMESTAMP)
		ON CONFLICT (id) DO UPDATE SET
			total_supply_hp = EXCLUDED.total_supply_hp,
			total_collateral_usdt = EXCLUDED.total_collateral_usdt,
			reserve_ratio_percent = EXCLUDED.reserve_ratio_percent,
			updated_at = CURRENT_TIMESTAMP;
	`
	_, err := DB.Exec(stmt, totalSupplyHP.String(), totalCollateralUSDT.String(), reserveRatioPercent)
	if err != nil {
		return fmt.Errorf("failed to save economy state: %w", err)
	}
	return nil
}

// LoadEconomyState reads the persisted economy state, or ErrNoEconomyState
// when the service has never run before.
func LoadEconomyState() (*EconomyState, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
		SELECT total_supply_hp, total_collateral_usdt, reserve_ratio_percent, updated_at
		FROM economy_state WHERE id = 1;
	`
	var supplyStr, collateralStr string
	var st EconomyState
	err := DB.QueryRow(query).Scan(&supplyStr, &collateralStr, &st.ReserveRatioPercent, &st.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoEconomyState
		}
		return nil, fmt.Errorf("failed to load economy state: %w", err)
	}

	st.TotalSupplyHP, err = decFromDB(supplyStr)
	if err != nil {
		return nil, fmt.Errorf("invalid persisted total supply: %w", err)
	}
	st.TotalCollateralUSDT, err = decFromDB(collateralStr)
	if err != nil {
		return nil, fmt.Errorf("invalid persisted total collateral: %w", err)
	}

	log.Debug().
		Str("totalSupplyHP", st.TotalSupplyHP.String()).
		Str("totalCollateralUSDT", st.TotalCollateralUSDT.String()).
		Int64("reserveRatioPercent", st.ReserveRatioPercent).
		Msg("Loaded persisted economy state")
	return &st, nil
}

// decFromDB parses a NUMERIC column value into a LegacyDec.
func decFromDB(s string) (sdkmath.LegacyDec, error) {
	dec, err := sdkmath.LegacyNewDecFromStr(s)
	if err != nil {
		return sdkmath.LegacyDec{}, fmt.Errorf("failed to parse decimal %q: %w", s, err)
	}
	return dec, nil
}
