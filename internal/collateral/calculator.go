/*

Pure collateral arithmetic for the HP/USDT peg.

Minting 1 HP requires peg × ratio/100 USDT (11.55 at peg 11, ratio 105); burning
returns only the base peg (11). The reserve premium is not refunded on burn —
that asymmetry is deliberate and is what accumulates as owner profit.

*/

package collateral

import (
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/happy-paisa/hpe/internal/types"
)

// PegRateUSDTPerHP is the fixed base exchange rate: 11 USDT = 1 HP.
// It is constant for the lifetime of the system and never fetched.
var PegRateUSDTPerHP = sdkmath.LegacyNewDec(11)

const (
	// MinReserveRatioPercent is no excess collateral at all.
	MinReserveRatioPercent int64 = 100
	// MaxReserveRatioPercent caps over-collateralization at 2x the peg.
	MaxReserveRatioPercent int64 = 200
)

// Calculator computes mint collateral and burn payouts against a fixed peg.
type Calculator struct {
	pegRate sdkmath.LegacyDec
}

// NewCalculator returns a calculator for the given peg rate.
func NewCalculator(pegRate sdkmath.LegacyDec) (Calculator, error) {
	if pegRate.IsNil() || !pegRate.IsPositive() {
		return Calculator{}, fmt.Errorf("peg rate must be positive, got %s", pegRate)
	}
	return Calculator{pegRate: pegRate}, nil
}

// PegRate returns the fixed USDT-per-HP base rate.
func (c Calculator) PegRate() sdkmath.LegacyDec {
	return c.pegRate
}

// CollateralNeeded returns the USDT a holder must deposit to mint hpAmount HP
// at the given reserve ratio: hpAmount × peg × ratioPercent/100.
func (c Calculator) CollateralNeeded(hpAmount sdkmath.LegacyDec, reserveRatioPercent int64) (sdkmath.LegacyDec, error) {
	if err := validateAmount(hpAmount); err != nil {
		return sdkmath.LegacyDec{}, err
	}
	if err := ValidateReserveRatio(reserveRatioPercent); err != nil {
		return sdkmath.LegacyDec{}, err
	}
	return hpAmount.Mul(c.pegRate).MulInt64(reserveRatioPercent).QuoInt64(100), nil
}

// USDTReturnOnBurn returns the USDT released when hpAmount HP is burned.
// Only the base peg is refunded, never the reserve premium.
func (c Calculator) USDTReturnOnBurn(hpAmount sdkmath.LegacyDec) (sdkmath.LegacyDec, error) {
	if err := validateAmount(hpAmount); err != nil {
		return sdkmath.LegacyDec{}, err
	}
	return hpAmount.Mul(c.pegRate), nil
}

// ValidateReserveRatio checks a reserve ratio against the permitted [100,200] range.
func ValidateReserveRatio(reserveRatioPercent int64) error {
	if reserveRatioPercent < MinReserveRatioPercent || reserveRatioPercent > MaxReserveRatioPercent {
		return fmt.Errorf("%w: got %d", types.ErrInvalidRatio, reserveRatioPercent)
	}
	return nil
}

func validateAmount(amount sdkmath.LegacyDec) error {
	if amount.IsNil() || !amount.IsPositive() {
		return fmt.Errorf("%w: got %s", types.ErrInvalidAmount, amount)
	}
	return nil
}
