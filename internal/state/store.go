package state

import (
	sdkmath "cosmossdk.io/math"

	"github.com/happy-paisa/hpe/internal/types"
)

// PGStore adapts the package-level persistence functions to the engine's
// Store interface so the engine can be exercised against a test double.
type PGStore struct{}

// SaveEconomy persists the economy snapshot.
func (PGStore) SaveEconomy(totalSupplyHP, totalCollateralUSDT sdkmath.LegacyDec, reserveRatioPercent int64) error {
	return SaveEconomyState(totalSupplyHP, totalCollateralUSDT, reserveRatioPercent)
}

// InsertStake persists a new stake record.
func (PGStore) InsertStake(rec *types.StakeRecord) error {
	return InsertStakeRecord(rec)
}

// UpdateStake writes through a stake transition.
func (PGStore) UpdateStake(rec *types.StakeRecord) error {
	return UpdateStakeRecord(rec)
}

// SaveReceipt persists an operation receipt.
func (PGStore) SaveReceipt(receipt *types.OperationReceipt) error {
	return SaveOperationReceipt(receipt)
}
